package scriptengine

import (
	"time"

	"github.com/wyfcoding/ore/internal/randomvar"
)

// PayLogEntry is one ordered cashflow record, logged with the raw
// (undiscounted) amount so reporting can re-derive discounted or gross
// views per leg/type/slot.
type PayLogEntry struct {
	Amount       randomvar.RandomVariable
	Mask         randomvar.Filter
	Obs, Pay     time.Time
	Currency     string
	LegNo        int
	CashflowType string
	Slot         int
}

// PayLog is the ordered, append-only cashflow record produced by
// logpay. Writes happen in AST-visitation order, which is deterministic
// given a fixed tree; valuation.Driver gives each trade its own PayLog.
type PayLog struct {
	entries []PayLogEntry
}

// NewPayLog returns an empty log.
func NewPayLog() *PayLog { return &PayLog{} }

// Append records a new cashflow entry.
func (p *PayLog) Append(e PayLogEntry) { p.entries = append(p.entries, e) }

// Entries returns the recorded entries in visitation order.
func (p *PayLog) Entries() []PayLogEntry { return p.entries }

// Merge appends other's entries after p's.
func (p *PayLog) Merge(other *PayLog) {
	p.entries = append(p.entries, other.entries...)
}
