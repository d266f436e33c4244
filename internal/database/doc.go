// Package database provides PostgreSQL connection pool management.
//
// The pool backs the key/value state store used for markets, base rates,
// the paper ledger and research dedup state.
package database
