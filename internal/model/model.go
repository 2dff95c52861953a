package model

import (
	"time"

	"github.com/samber/mo"
)

// MaxWeeklyCount bounds weekly expansion to ten years of occurrences.
const MaxWeeklyCount = 520

// Options controls a single reshaping pass over an ICS document.
type Options struct {
	// StartDate, if present, becomes the new earliest DTSTART. It is a
	// floating time: only its wall-clock fields matter.
	StartDate mo.Option[time.Time]

	// Weekly enables explicit weekly expansion.
	Weekly bool
	// WeeklyCount is the number of weekly occurrences. Ignored unless Weekly
	// is set; non-positive values behave as 1, values above MaxWeeklyCount
	// are rejected.
	WeeklyCount int

	// GeneratedAt stamps synthesized UIDs. Zero means time.Now().
	GeneratedAt time.Time
}

// Occurrences returns the effective number of occurrences to produce.
func (o Options) Occurrences() int {
	if !o.Weekly || o.WeeklyCount <= 0 {
		return 1
	}
	return o.WeeklyCount
}

// Diagnostic records a field that was skipped, synthesized or dropped while
// processing. Diagnostics never change the output.
type Diagnostic struct {
	// Block is the source block index, or -1 for document-level notes.
	Block   int    `json:"block" yaml:"block"`
	Field   string `json:"field,omitempty" yaml:"field,omitempty"`
	Message string `json:"message" yaml:"message"`
}

// Result is the output of one reshaping pass.
type Result struct {
	ICSContent string `json:"icsContent"`
	Filename   string `json:"filename"`
	Summary    string `json:"summary"`

	// Occurrences is the effective weekly count (1 without expansion).
	Occurrences int `json:"occurrences"`
	// Blocks is the number of VEVENT blocks extracted from the input.
	Blocks int `json:"blocks"`
	// Fallback is set when the input had no VEVENT markers and was treated
	// as a single event body.
	Fallback bool `json:"fallback,omitempty"`

	Diagnostics []Diagnostic `json:"diagnostics,omitempty"`
}
