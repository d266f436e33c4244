// Package dedup tracks paid research calls so a market is not researched
// again within a cooldown, and caps research calls per cycle.
//
// State is a map of market id to last-researched time. It is loaded from the
// store when the scheduler starts and flushed at the end of every cycle.
package dedup
