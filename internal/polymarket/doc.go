// Package polymarket is a read-only client for Polymarket's Gamma (market
// discovery) and CLOB (order book) REST APIs.
//
// Endpoints:
//   - Gamma: https://gamma-api.polymarket.com
//   - CLOB: https://clob.polymarket.com
//
// Gamma quotes prices in dollars (0-1) and encodes several array fields as
// JSON strings; the conversions here return cents and model types.
package polymarket
