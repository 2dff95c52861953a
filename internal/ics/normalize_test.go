package ics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "empty", in: "", want: ""},
		{name: "lf", in: "A\nB\n", want: "A\r\nB\r\n"},
		{name: "cr", in: "A\rB", want: "A\r\nB"},
		{name: "mixed", in: "A\r\nB\nC\rD", want: "A\r\nB\r\nC\r\nD"},
		{name: "blank lines", in: "A\n\nB", want: "A\r\n\r\nB"},
		{name: "already canonical", in: "A\r\nB\r\n", want: "A\r\nB\r\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"BEGIN:VEVENT\nSUMMARY:x\rEND:VEVENT",
		"\r\r\n\n",
		"no terminators",
	}
	for _, in := range inputs {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once))
	}
}
