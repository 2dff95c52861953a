package ics

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractBlocks(t *testing.T) {
	doc := Normalize(strings.Join([]string{
		"BEGIN:VCALENDAR",
		"BEGIN:VEVENT",
		"SUMMARY:First",
		"END:VEVENT",
		"X-NOISE:between",
		"BEGIN:VEVENT",
		"SUMMARY:Second",
		"END:VEVENT",
		"END:VCALENDAR",
	}, "\n"))

	blocks, diags := ExtractBlocks(doc)
	require.Len(t, blocks, 2)
	assert.Empty(t, diags)

	assert.Equal(t, 0, blocks[0].Index)
	assert.Equal(t, "BEGIN:VEVENT\r\nSUMMARY:First\r\nEND:VEVENT", blocks[0].Text)
	assert.Equal(t, 1, blocks[1].Index)
	assert.Contains(t, blocks[1].Text, "SUMMARY:Second")
	assert.False(t, blocks[1].Synthetic)
}

func TestExtractBlocksNonGreedy(t *testing.T) {
	doc := "BEGIN:VEVENT\r\nUID:a\r\nEND:VEVENT\r\nBEGIN:VEVENT\r\nUID:b\r\nEND:VEVENT"

	blocks, _ := ExtractBlocks(doc)
	require.Len(t, blocks, 2)
	assert.NotContains(t, blocks[0].Text, "UID:b")
}

func TestExtractBlocksFallback(t *testing.T) {
	t.Run("plain text", func(t *testing.T) {
		blocks, diags := ExtractBlocks("SUMMARY:Loose\r\nDTSTART:20240101T090000")
		require.Len(t, blocks, 1)
		assert.True(t, blocks[0].Synthetic)
		assert.Equal(t, "SUMMARY:Loose\r\nDTSTART:20240101T090000", blocks[0].Text)
		require.Len(t, diags, 1)
		assert.Equal(t, -1, diags[0].Block)
	})

	t.Run("envelope without events", func(t *testing.T) {
		doc := Normalize("BEGIN:VCALENDAR\nVERSION:2.0\nPRODID:-//x//y//EN\nSUMMARY:Loose\nEND:VCALENDAR\n")
		blocks, _ := ExtractBlocks(doc)
		require.Len(t, blocks, 1)
		assert.Equal(t, "SUMMARY:Loose", blocks[0].Text)
	})
}
