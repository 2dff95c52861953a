package ics

import (
	"errors"
	"fmt"
	"strings"
	"time"

	appLog "icsfix/internal/log"
	"icsfix/internal/model"
)

// ErrEmptyInput is returned by Process when the input is blank.
var ErrEmptyInput = errors.New("ics: input is empty; paste or load ICS content first")

// ErrTooManyOccurrences is returned by Process when a weekly count exceeds
// model.MaxWeeklyCount.
var ErrTooManyOccurrences = errors.New("ics: too many weekly occurrences")

// Process repairs and reshapes one ICS document:
//
//   - line endings are normalized to CRLF
//   - VEVENT blocks are extracted (the whole text is one block if none exist)
//   - DTSTART/DTEND are shifted so the earliest start lands on
//     opts.StartDate, and rewritten as floating DATE-TIME values
//   - with opts.Weekly, blocks are copied opts.WeeklyCount times one week
//     apart, with unique UIDs and without RRULE lines
//   - the result is wrapped in a single VCALENDAR envelope
//
// Only blank input and an oversized weekly count are errors; field-level
// problems are reported in Result.Diagnostics.
func Process(raw string, opts model.Options) (model.Result, error) {
	if strings.TrimSpace(raw) == "" {
		return model.Result{}, ErrEmptyInput
	}
	if opts.Weekly && opts.WeeklyCount > model.MaxWeeklyCount {
		return model.Result{}, fmt.Errorf("%w: %d (max %d)", ErrTooManyOccurrences, opts.WeeklyCount, model.MaxWeeklyCount)
	}

	generatedAt := opts.GeneratedAt
	if generatedAt.IsZero() {
		generatedAt = time.Now()
	}
	occurrences := opts.Occurrences()

	normalized := Normalize(raw)
	blocks, diags := ExtractBlocks(normalized)

	offset := ComputeOffset(blocks, opts.StartDate)
	if opts.StartDate.IsPresent() && EarliestStart(blocks).IsAbsent() {
		diags = append(diags, model.Diagnostic{
			Block:   -1,
			Field:   PropDTStart,
			Message: "no parseable DTSTART; start date ignored",
		})
	}

	expanded, expandDiags := Expand(blocks, Plan{
		Offset:      offset,
		Occurrences: occurrences,
		Weekly:      opts.Weekly,
		GeneratedAt: generatedAt,
	})
	diags = append(diags, expandDiags...)

	summary := Summarize(expanded)
	res := model.Result{
		ICSContent:  Wrap(expanded),
		Filename:    Filename(summary, occurrences),
		Summary:     DisplaySummary(summary, occurrences),
		Occurrences: occurrences,
		Blocks:      len(blocks),
		Fallback:    len(blocks) == 1 && blocks[0].Synthetic,
		Diagnostics: diags,
	}

	appLog.Debug("ics processed",
		"blocks", len(blocks),
		"occurrences", occurrences,
		"offset", offset.String(),
		"diagnostics", len(diags),
		"filename", res.Filename,
	)
	return res, nil
}
