package ics

import (
	"strings"

	"github.com/samber/mo"
)

// Common property names handled by the engine.
const (
	PropDTStart = "DTSTART"
	PropDTEnd   = "DTEND"
	PropUID     = "UID"
	PropRRule   = "RRULE"
	PropSummary = "SUMMARY"

	endEvent = "END:VEVENT"
)

// Field is a single property line of a block, split into its parts.
//
//	DTSTART;TZID=Europe/Paris:20240101T090000
//	Name    Params            Value
type Field struct {
	Name   string
	Params string
	Value  string
	Line   string
}

// propertyName returns the text before the first ';' or ':' of a line.
func propertyName(line string) string {
	if i := strings.IndexAny(line, ";:"); i >= 0 {
		return line[:i]
	}
	return line
}

func parseField(line string) (Field, bool) {
	colon := strings.IndexByte(line, ':')
	if colon < 0 {
		return Field{}, false
	}
	head := line[:colon]
	f := Field{Name: head, Value: line[colon+1:], Line: line}
	if semi := strings.IndexByte(head, ';'); semi >= 0 {
		f.Name = head[:semi]
		f.Params = head[semi+1:]
	}
	return f, true
}

func isProp(line, name string) bool {
	return strings.EqualFold(strings.TrimSpace(propertyName(line)), name)
}

// GetField returns the first line of block carrying property name. Names
// compare case-insensitively; DTSTART never matches DTSTAMP.
func GetField(block, name string) mo.Option[Field] {
	for _, line := range splitLines(block) {
		if !isProp(line, name) {
			continue
		}
		if f, ok := parseField(line); ok {
			return mo.Some(f)
		}
	}
	return mo.None[Field]()
}

// SetField replaces the whole first line carrying name with "NAME:value",
// dropping any parameters. Blocks without the field are returned unchanged.
func SetField(block, name, value string) string {
	lines := splitLines(block)
	for i, line := range lines {
		if isProp(line, name) {
			lines[i] = name + ":" + value
			return strings.Join(lines, CRLF)
		}
	}
	return block
}

// RemoveField drops every line carrying name.
func RemoveField(block, name string) string {
	lines := splitLines(block)
	kept := lines[:0:0]
	for _, line := range lines {
		if !isProp(line, name) {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, CRLF)
}

// InsertBeforeEnd inserts line right before the last END:VEVENT line, or
// appends it when the block has no end marker.
func InsertBeforeEnd(block, line string) string {
	lines := splitLines(block)
	for i := len(lines) - 1; i >= 0; i-- {
		if strings.EqualFold(strings.TrimSpace(lines[i]), endEvent) {
			out := make([]string, 0, len(lines)+1)
			out = append(out, lines[:i]...)
			out = append(out, line)
			out = append(out, lines[i:]...)
			return strings.Join(out, CRLF)
		}
	}
	if block == "" {
		return line
	}
	return strings.TrimRight(block, CRLF) + CRLF + line
}
