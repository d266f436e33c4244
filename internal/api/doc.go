// Package api is the Kalshi REST client used to pull open markets, event
// categories, order books and settlement results.
//
// REST endpoints:
//   - Production: https://api.elections.kalshi.com/trade-api/v2
//   - Demo: https://demo-api.kalshi.co/trade-api/v2
//
// Requests are signed with RSA-PSS when a Signer is configured; public
// market data works unsigned. Kalshi order books list bids only, so
// NormalizeOrderbook turns NO bids into YES asks and the reverse.
package api
