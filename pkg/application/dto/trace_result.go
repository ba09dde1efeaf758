package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// TraceStep is one recorded event in a lineage chain
type TraceStep struct {
	EventID      int       `json:"event_id"`
	Kind         string    `json:"kind"`
	Process      string    `json:"process"`
	LabelProcess string    `json:"label_process"`
	PartNumber   string    `json:"part_number"`
	Serial       string    `json:"serial"`
	EventDate    time.Time `json:"event_date"`
}

// TraceBreak describes where a lineage chain could not be continued
type TraceBreak struct {
	EventID    int    `json:"event_id"`
	Process    string `json:"process"`
	FailedStep string `json:"failed_step"`
	Reason     string `json:"reason"`
}

// TraceResult is the chain of custody from an event back toward the line start.
// Chain starts with the traced event itself.
type TraceResult struct {
	EventID  int         `json:"event_id"`
	Chain    []TraceStep `json:"chain"`
	Complete bool        `json:"complete"`
	BrokenAt *TraceBreak `json:"broken_at,omitempty"`
}

// Origin returns the earliest step found
func (r *TraceResult) Origin() TraceStep {
	return r.Chain[len(r.Chain)-1]
}

// ShiftShare is one shift's portion of a split basket
type ShiftShare struct {
	Shift    string          `json:"shift"`
	Operator string          `json:"operator"`
	Quantity int             `json:"quantity"`
	Percent  decimal.Decimal `json:"percent"`
}

// ShiftSummary breaks a basket's quantity down by the shifts that produced it
type ShiftSummary struct {
	EventID int          `json:"event_id"`
	Total   int          `json:"total"`
	Shifts  []ShiftShare `json:"shifts"`
}
