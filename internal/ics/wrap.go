package ics

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	// ProductID is written into every produced calendar envelope.
	ProductID = "-//icsfix//ICS Repair Tool//EN"
	// PlaceholderSummary stands in for documents without any SUMMARY.
	PlaceholderSummary = "Untitled Event"

	maxSlugLen   = 50
	fallbackSlug = "event"
)

// Wrap encloses blocks in a single VCALENDAR envelope. Empty blocks are
// skipped; the document ends with CRLF.
func Wrap(blocks []string) string {
	lines := []string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:" + ProductID,
		"CALSCALE:GREGORIAN",
	}
	for _, b := range blocks {
		b = strings.Trim(b, CRLF)
		if b == "" {
			continue
		}
		lines = append(lines, b)
	}
	lines = append(lines, "END:VCALENDAR")
	return strings.Join(lines, CRLF) + CRLF
}

// Summarize returns the first non-empty SUMMARY across blocks, or
// PlaceholderSummary.
func Summarize(blocks []string) string {
	for _, b := range blocks {
		f, ok := GetField(b, PropSummary).Get()
		if !ok {
			continue
		}
		if v := strings.TrimSpace(f.Value); v != "" {
			return v
		}
	}
	return PlaceholderSummary
}

// DisplaySummary annotates summary with the occurrence count when the
// series was expanded.
func DisplaySummary(summary string, occurrences int) string {
	if occurrences > 1 {
		return fmt.Sprintf("%s (%d weekly occurrences)", summary, occurrences)
	}
	return summary
}

// Filename derives the download name from a summary, e.g.
// "Café Standup" -> "cafe_standup.ics", or "cafe_standup_weekly_3.ics" for an
// expanded series.
func Filename(summary string, occurrences int) string {
	name := Slugify(summary)
	if occurrences > 1 {
		name = fmt.Sprintf("%s_weekly_%d", name, occurrences)
	}
	return name + ".ics"
}

// foldMarks strips combining marks ("é" -> "e"). Chains carry state, so a
// new one is built per call.
func foldMarks() transform.Transformer {
	return transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
}

// Slugify keeps lowercase letters and digits, collapsing everything else to
// single underscores, and truncates to a bounded length.
func Slugify(s string) string {
	if folded, _, err := transform.String(foldMarks(), s); err == nil {
		s = folded
	}

	var b strings.Builder
	pendingSep := false
	n := 0
	for _, r := range strings.ToLower(s) {
		if n >= maxSlugLen {
			break
		}
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
				n++
				if n >= maxSlugLen {
					break
				}
			}
			pendingSep = false
			b.WriteRune(r)
			n++
			continue
		}
		pendingSep = true
	}

	slug := strings.Trim(b.String(), "_")
	if slug == "" {
		return fallbackSlug
	}
	return slug
}
