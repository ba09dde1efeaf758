package events

import (
	"time"
)

const (
	SerialConsumedEvent    = "serial.consumed"
	SerialWrappedEvent     = "serial.wrapped"
	LedgerSeededEvent      = "ledger.seeded"
	UnitPrintedEvent       = "unit.printed"
	UnitScannedEvent       = "unit.scanned"
	DuplicateRejectedEvent = "unit.duplicate_rejected"
	LineageTracedEvent     = "lineage.traced"
)

// SerialStream names the stream holding a part's allocations for one mode
func SerialStream(mode, partNumber string) string {
	return "serial-" + mode + "-" + partNumber
}

// UnitStream names the stream holding a part's recorded prints and scans
func UnitStream(partNumber string) string {
	return "unit-" + partNumber
}

type SerialConsumed struct {
	PartNumber string `json:"part_number"`
	PartID     int    `json:"part_id"`
	Mode       string `json:"mode"`
	Value      int    `json:"value"`
	Formatted  string `json:"formatted"`
}

type SerialWrapped struct {
	PartNumber string `json:"part_number"`
	Mode       string `json:"mode"`
	Limit      int    `json:"limit"`
}

type LedgerSeeded struct {
	PartNumber string `json:"part_number"`
	Mode       string `json:"mode"`
	Start      int    `json:"start"`
}

type UnitRecorded struct {
	EventID        int       `json:"event_id"`
	Kind           string    `json:"kind"`
	PartNumber     string    `json:"part_number"`
	Serial         string    `json:"serial"`
	Process        string    `json:"process"`
	LabelProcess   string    `json:"label_process"`
	ProductionDate time.Time `json:"production_date"`
	EventDate      time.Time `json:"event_date"`
}

type DuplicateRejected struct {
	PartNumber string `json:"part_number"`
	Serial     string `json:"serial"`
	ExistingID int    `json:"existing_id"`
	Process    string `json:"process"`
}

type LineageTraced struct {
	EventID       int    `json:"event_id"`
	PartNumber    string `json:"part_number"`
	PredecessorID int    `json:"predecessor_id,omitempty"`
	Linked        bool   `json:"linked"`
	FailedStep    string `json:"failed_step,omitempty"`
	Reason        string `json:"reason,omitempty"`
}
