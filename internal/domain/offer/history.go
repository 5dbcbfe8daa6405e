package offer

import "time"

// HistoryType tags a price history entry.
type HistoryType string

const (
	// HistoryInitial is the price the offer was created with.
	HistoryInitial HistoryType = "initial"
	// HistoryRejected is a price that was replaced by a counteroffer after a
	// rejection.
	HistoryRejected HistoryType = "rejected"
)

// HistoryEntry is one element of an offer's append-only price ledger.
// Entries are never mutated or removed once appended.
type HistoryEntry struct {
	PriceCents int64
	At         time.Time
	Type       HistoryType
}
