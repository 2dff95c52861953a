package ics

import "strings"

// CRLF is the only line terminator produced by this package.
const CRLF = "\r\n"

var lineEndings = strings.NewReplacer("\r\n", "\n", "\r", "\n")

// Normalize rewrites every line terminator (CRLF, lone CR, lone LF) to CRLF.
// Normalizing already-normalized text returns it unchanged.
func Normalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ReplaceAll(lineEndings.Replace(s), "\n", CRLF)
}

// splitLines splits normalized text into lines without terminators.
func splitLines(s string) []string {
	return strings.Split(s, CRLF)
}
