package ics

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
	"github.com/samber/mo"
)

// ErrInvalidAnchor is returned when a start date can't be understood.
var ErrInvalidAnchor = errors.New("ics: invalid start date")

var anchorLayouts = []string{
	"2006-01-02T15:04",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

var naturalParser = func() *when.Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return w
}()

// ParseAnchor turns a caller supplied start date into a floating time.
// Besides the form-style "2006-01-02T15:04" it accepts a few close layouts
// and natural phrases such as "next monday 9am", resolved against now.
func ParseAnchor(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty", ErrInvalidAnchor)
	}
	for _, layout := range anchorLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}

	r, err := naturalParser.Parse(s, now)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w %q: %v", ErrInvalidAnchor, s, err)
	}
	if r == nil {
		return time.Time{}, fmt.Errorf("%w %q", ErrInvalidAnchor, s)
	}
	return Floating(r.Time), nil
}

// AnchorOption is ParseAnchor for optional inputs: blank means None.
func AnchorOption(s string, now time.Time) (mo.Option[time.Time], error) {
	if strings.TrimSpace(s) == "" {
		return mo.None[time.Time](), nil
	}
	t, err := ParseAnchor(s, now)
	if err != nil {
		return mo.None[time.Time](), err
	}
	return mo.Some(t), nil
}
