// Package metrics provides Prometheus metrics for monitoring.
//
// Key metrics:
//   - Cycle count, duration and outcome
//   - Markets fetched per platform
//   - Collaborator call results, including rate limiting and open breakers
//   - Research calls, deferrals and dedup skips
//   - Opportunity count and paper ledger balance
//
// All methods are safe on a nil *Metrics, so components can run without a
// registry.
package metrics
