// Package poller fetches order books for a batch of markets with bounded
// concurrency and attaches them to the market snapshots.
//
// Venue adapters call Enrich after listing markets. A failed or timed-out
// book fetch leaves that market on its displayed prices; it never fails the
// batch.
package poller
