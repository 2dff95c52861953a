package ics

import (
	"errors"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
)

// EventReport describes one VEVENT of an inspected document.
type EventReport struct {
	UID     string    `json:"uid"`
	Summary string    `json:"summary"`
	Start   time.Time `json:"start"`
	End     time.Time `json:"end"`
	HasRule bool      `json:"has_rule"`
}

// Report is the outcome of Inspect.
type Report struct {
	Events        []EventReport `json:"events"`
	DuplicateUIDs []string      `json:"duplicate_uids,omitempty"`
	MissingUIDs   int           `json:"missing_uids"`
}

// Inspect parses a full calendar document with an RFC 5545 parser and
// summarizes its events. It is independent from the rewriting engine, which
// makes it useful for checking produced output.
func Inspect(content string) (Report, error) {
	var rep Report
	if strings.TrimSpace(content) == "" {
		return rep, ErrEmptyInput
	}

	cal, err := ical.ParseCalendar(strings.NewReader(Normalize(content)))
	if err != nil {
		return rep, err
	}
	if cal == nil {
		return rep, errors.New("ics: no calendar found")
	}

	seen := make(map[string]int)
	for _, ev := range cal.Events() {
		er := EventReport{}
		if p := ev.GetProperty(ical.ComponentPropertyUniqueId); p != nil {
			er.UID = p.Value
		}
		if p := ev.GetProperty(ical.ComponentPropertySummary); p != nil {
			er.Summary = p.Value
		}
		if p := ev.GetProperty(ical.ComponentPropertyDtStart); p != nil {
			er.Start = ParseStamp(p.Value).OrEmpty()
		}
		if p := ev.GetProperty(ical.ComponentPropertyDtEnd); p != nil {
			er.End = ParseStamp(p.Value).OrEmpty()
		}
		er.HasRule = ev.GetProperty(ical.ComponentPropertyRrule) != nil

		if er.UID == "" {
			rep.MissingUIDs++
		} else {
			seen[er.UID]++
			if seen[er.UID] == 2 {
				rep.DuplicateUIDs = append(rep.DuplicateUIDs, er.UID)
			}
		}
		rep.Events = append(rep.Events, er)
	}
	return rep, nil
}
