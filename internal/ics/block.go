package ics

import (
	"regexp"
	"strings"

	"icsfix/internal/model"
)

// Block is one VEVENT region of the source document. Identity is positional.
type Block struct {
	Index int
	Text  string
	// Synthetic is set when the document had no VEVENT and the whole text
	// was taken as a single block.
	Synthetic bool
}

// Non-greedy so repeated markers each yield their own block.
var eventBlockPattern = regexp.MustCompile(`(?s)BEGIN:VEVENT.*?END:VEVENT`)

// envelopeProps are calendar-level lines that must not survive inside a
// synthetic block, otherwise Wrap would produce a nested envelope.
var envelopeProps = map[string]bool{
	"BEGIN:VCALENDAR": true,
	"END:VCALENDAR":   true,
}

var envelopeNames = []string{"VERSION", "PRODID", "CALSCALE"}

// ExtractBlocks returns the VEVENT blocks of normalized text in document
// order. When none are found the whole text becomes one synthetic block, so
// malformed input still produces output.
func ExtractBlocks(normalized string) ([]Block, []model.Diagnostic) {
	matches := eventBlockPattern.FindAllString(normalized, -1)
	if len(matches) > 0 {
		blocks := make([]Block, 0, len(matches))
		for i, m := range matches {
			blocks = append(blocks, Block{Index: i, Text: m})
		}
		return blocks, nil
	}

	diag := model.Diagnostic{
		Block:   -1,
		Message: "no VEVENT block found; treating the whole document as one event",
	}
	return []Block{{Index: 0, Text: stripEnvelope(normalized), Synthetic: true}}, []model.Diagnostic{diag}
}

func stripEnvelope(text string) string {
	lines := splitLines(text)
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if envelopeProps[strings.ToUpper(trimmed)] {
			continue
		}
		if isEnvelopeProp(trimmed) {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Trim(strings.Join(kept, CRLF), CRLF)
}

func isEnvelopeProp(line string) bool {
	name := propertyName(line)
	for _, n := range envelopeNames {
		if strings.EqualFold(name, n) {
			return true
		}
	}
	return false
}
