package ics

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/samber/mo"
)

// Week is the shift applied between two weekly occurrences.
const Week = 7 * 24 * time.Hour

// ParseStamp reads an ICS timestamp such as 20240101T090000, 20240101T090000Z,
// 2024-01-01T09:00:00 or 20240101 into a floating time carried in time.UTC;
// no timezone conversion is applied. A leading parameter list
// ("TZID=...:20240101T090000") is dropped first. None is returned when fewer
// than 8 date digits are present.
func ParseStamp(value string) mo.Option[time.Time] {
	value = cutParams(value)

	var b strings.Builder
	for _, r := range value {
		if (r >= '0' && r <= '9') || r == 'T' {
			b.WriteRune(r)
		}
	}
	clean := b.String()

	datePart, timePart, _ := strings.Cut(clean, "T")
	if len(datePart) < 8 {
		return mo.None[time.Time]()
	}

	year := atoi(datePart[0:4])
	month := atoi(datePart[4:6])
	day := atoi(datePart[6:8])
	hour := atoi(slice2(timePart, 0))
	minute := atoi(slice2(timePart, 2))
	second := atoi(slice2(timePart, 4))

	return mo.Some(time.Date(year, time.Month(month), day, hour, minute, second, 0, time.UTC))
}

// cutParams drops the text up to the first unquoted colon when that text is
// a parameter list or property name rather than part of the stamp itself.
func cutParams(value string) string {
	quoted := false
	for i, r := range value {
		switch {
		case r == '"':
			quoted = !quoted
		case r == ':' && !quoted:
			if isParamPrefix(value[:i]) {
				return value[i+1:]
			}
			return value
		}
	}
	return value
}

func isParamPrefix(s string) bool {
	return strings.ContainsAny(s, "=;") || strings.ContainsFunc(s, func(r rune) bool {
		return unicode.IsLetter(r) && r != 'T'
	})
}

// FormatStamp renders a floating DATE-TIME with seconds always zeroed.
func FormatStamp(t time.Time) string {
	return fmt.Sprintf("%04d%02d%02dT%02d%02d00", t.Year(), int(t.Month()), t.Day(), t.Hour(), t.Minute())
}

// EarliestStart returns the minimum parseable DTSTART across blocks.
func EarliestStart(blocks []Block) mo.Option[time.Time] {
	var (
		earliest time.Time
		found    bool
	)
	for _, b := range blocks {
		start, ok := blockStamp(b.Text, PropDTStart).Get()
		if !ok {
			continue
		}
		if !found || start.Before(earliest) {
			earliest = start
			found = true
		}
	}
	if !found {
		return mo.None[time.Time]()
	}
	return mo.Some(earliest)
}

// ComputeOffset returns target minus the earliest DTSTART, or zero when
// there is no target or no block has a parseable start.
func ComputeOffset(blocks []Block, target mo.Option[time.Time]) time.Duration {
	t, ok := target.Get()
	if !ok {
		return 0
	}
	earliest, ok := EarliestStart(blocks).Get()
	if !ok {
		return 0
	}
	return Floating(t).Sub(earliest)
}

// Floating copies the wall-clock fields of t into time.UTC.
func Floating(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}

func blockStamp(block, name string) mo.Option[time.Time] {
	f, ok := GetField(block, name).Get()
	if !ok {
		return mo.None[time.Time]()
	}
	return ParseStamp(f.Value)
}

// slice2 returns the two characters of s starting at i, or "" past the end.
func slice2(s string, i int) string {
	if i >= len(s) {
		return ""
	}
	if i+2 > len(s) {
		return s[i:]
	}
	return s[i : i+2]
}

func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
