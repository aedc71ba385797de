// Package store holds the display's in-memory Message Buffer and Dedup Set.
//
// Buffer keeps the most recent notifications in arrival order, evicting the
// oldest once capacity is reached. Before accepting a notification it checks
// a composite key (order_id, message, timestamp) against the dedup set and
// drops repeats. The dedup set is trimmed to the newest capacity/2 keys once
// it grows past capacity.
//
// A Buffer belongs to one display session; nothing is persisted.
package store
