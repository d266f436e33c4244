// Package market holds the current market snapshots and base rates.
//
// The registry is an in-memory cache in front of the store. A market refresh
// replaces the whole snapshot; base rates are replaced on re-research, with
// the superseded value optionally appended to a history record.
package market
