package ics

import (
	"fmt"
	"strings"
	"time"

	"github.com/teambition/rrule-go"

	"icsfix/internal/model"
)

// Plan controls how Expand replicates blocks.
type Plan struct {
	// Offset is added to every parseable DTSTART/DTEND.
	Offset time.Duration
	// Occurrences is the number of weekly copies (at least 1).
	Occurrences int
	// Weekly strips RRULE lines, since the series is expanded explicitly.
	Weekly bool
	// GeneratedAt stamps synthesized UIDs.
	GeneratedAt time.Time
}

// Expand produces one output block per (occurrence, block) pair: all blocks
// of occurrence 0 first, then occurrence 1, and so on.
func Expand(blocks []Block, plan Plan) ([]string, []model.Diagnostic) {
	n := max(plan.Occurrences, 1)
	plan.Occurrences = n

	series := make([][]string, len(blocks))
	var diags []model.Diagnostic

	// UIDs already claimed by an earlier block also get the block index, so
	// a master and its RECURRENCE-ID override stay distinct.
	claimed := make(map[string]bool, len(blocks))
	for i, b := range blocks {
		var d []model.Diagnostic
		series[i], d = expandBlock(b, plan, claimed)
		diags = append(diags, d...)
	}

	out := make([]string, 0, len(blocks)*n)
	for k := 0; k < n; k++ {
		for i := range blocks {
			out = append(out, series[i][k])
		}
	}
	return out, diags
}

// expandBlock returns the plan.Occurrences copies of b. Field problems are
// identical for every copy and are reported once.
func expandBlock(b Block, plan Plan, claimed map[string]bool) ([]string, []model.Diagnostic) {
	n := plan.Occurrences
	var diags []model.Diagnostic

	starts, d := occurrenceTimes(b, PropDTStart, plan)
	if d != nil {
		diags = append(diags, *d)
	}
	ends, d := occurrenceTimes(b, PropDTEnd, plan)
	if d != nil {
		diags = append(diags, *d)
	}

	uidPrefix := ""
	if n > 1 {
		if f, ok := GetField(b.Text, PropUID).Get(); ok {
			uid := strings.TrimSpace(f.Value)
			uidPrefix = uid
			if claimed[uid] {
				uidPrefix = fmt.Sprintf("%s-%d", uid, b.Index)
			}
			claimed[uid] = true
		} else {
			diags = append(diags, model.Diagnostic{Block: b.Index, Field: PropUID, Message: "missing UID; synthesized one per occurrence"})
		}
	}

	base := b.Text
	if plan.Weekly {
		if f, ok := GetField(base, PropRRule).Get(); ok {
			base = RemoveField(base, PropRRule)
			diags = append(diags, model.Diagnostic{Block: b.Index, Field: PropRRule, Message: describeRRule(f.Value)})
		}
	}

	copies := make([]string, n)
	for k := range copies {
		text := base
		if starts != nil {
			text = SetField(text, PropDTStart, FormatStamp(starts[k]))
		}
		if ends != nil {
			text = SetField(text, PropDTEnd, FormatStamp(ends[k]))
		}
		if n > 1 {
			if uidPrefix != "" {
				text = SetField(text, PropUID, fmt.Sprintf("%s-%d", uidPrefix, k))
			} else {
				uid := fmt.Sprintf("icsfix-%d-%d-%d@icsfix", b.Index, k, plan.GeneratedAt.UnixMilli())
				text = InsertBeforeEnd(text, PropUID+":"+uid)
			}
		}
		copies[k] = text
	}
	return copies, diags
}

// occurrenceTimes returns the shifted value of a time field for every
// occurrence, or nil when the field is missing or unparseable.
func occurrenceTimes(b Block, name string, plan Plan) ([]time.Time, *model.Diagnostic) {
	f, ok := GetField(b.Text, name).Get()
	if !ok {
		if name == PropDTStart {
			return nil, &model.Diagnostic{Block: b.Index, Field: name, Message: "missing"}
		}
		return nil, nil
	}
	t, ok := ParseStamp(f.Value).Get()
	if !ok {
		return nil, &model.Diagnostic{Block: b.Index, Field: name, Message: fmt.Sprintf("unparseable value %q left unchanged", f.Value)}
	}
	return weeklySeries(t.Add(plan.Offset), plan.Occurrences), nil
}

// weeklySeries lays out n weekly occurrences starting at first. Steps are
// calendar weeks on the floating clock, so long series never overflow a
// time.Duration.
func weeklySeries(first time.Time, n int) []time.Time {
	if n > 1 {
		r, err := rrule.NewRRule(rrule.ROption{
			Freq:    rrule.WEEKLY,
			Count:   n,
			Dtstart: first,
		})
		if err == nil {
			if all := r.All(); len(all) == n {
				return all
			}
		}
	}

	series := make([]time.Time, n)
	for k := range series {
		series[k] = first.AddDate(0, 0, 7*k)
	}
	return series
}

func describeRRule(value string) string {
	value = strings.TrimSpace(value)
	r, err := rrule.StrToRRule(value)
	if err != nil {
		return fmt.Sprintf("removed unparseable rule %q in favor of explicit weekly copies", value)
	}
	return fmt.Sprintf("removed %s rule in favor of explicit weekly copies", r.OrigOptions.Freq)
}
