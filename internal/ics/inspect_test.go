package ics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInspect(t *testing.T) {
	doc := "BEGIN:VCALENDAR\nVERSION:2.0\nPRODID:-//t//t//EN\n" +
		"BEGIN:VEVENT\nUID:dup\nSUMMARY:One\nDTSTART:20240101T090000\nDTEND:20240101T100000\nRRULE:FREQ=WEEKLY\nEND:VEVENT\n" +
		"BEGIN:VEVENT\nUID:dup\nSUMMARY:Two\nDTSTART:20240102T090000\nEND:VEVENT\n" +
		"BEGIN:VEVENT\nSUMMARY:Three\nEND:VEVENT\n" +
		"END:VCALENDAR\n"

	rep, err := Inspect(doc)
	require.NoError(t, err)
	require.Len(t, rep.Events, 3)

	assert.Equal(t, "One", rep.Events[0].Summary)
	assert.Equal(t, time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC), rep.Events[0].Start)
	assert.Equal(t, time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC), rep.Events[0].End)
	assert.True(t, rep.Events[0].HasRule)
	assert.False(t, rep.Events[1].HasRule)
	assert.Equal(t, []string{"dup"}, rep.DuplicateUIDs)
	assert.Equal(t, 1, rep.MissingUIDs)
}

func TestInspectEmpty(t *testing.T) {
	_, err := Inspect("  ")
	assert.ErrorIs(t, err, ErrEmptyInput)
}
