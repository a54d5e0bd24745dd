// Package render turns the documentation tree into markdown pages.
package render

import "fmt"

// OutputField selects how the syntax block of a member is presented.
type OutputField int

const (
	// Preformatted renders the syntax as a fenced code block.
	Preformatted OutputField = iota
	// Quoted renders the syntax as a block quote.
	Quoted
)

var outputFieldNames = [...]string{
	Preformatted: "preformatted",
	Quoted:       "quoted",
}

func (f OutputField) String() string {
	if f < 0 || int(f) >= len(outputFieldNames) {
		return fmt.Sprintf("OutputField(%d)", int(f))
	}
	return outputFieldNames[f]
}

// ParseOutputField parses "preformatted" or "quoted".
func ParseOutputField(s string) (OutputField, error) {
	for i, name := range outputFieldNames {
		if name == s {
			return OutputField(i), nil
		}
	}
	return 0, fmt.Errorf("unknown output field %q (want preformatted or quoted)", s)
}

func (f OutputField) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

func (f *OutputField) UnmarshalText(text []byte) error {
	v, err := ParseOutputField(string(text))
	if err != nil {
		return err
	}
	*f = v
	return nil
}

// Options configures rendering. The zero value renders preformatted syntax
// blocks, top-level member headings and docnet:// links.
type Options struct {
	Field OutputField
	// HeadingLevel is the level of a standalone member heading, clamped to
	// 1..6. Zero means 1.
	HeadingLevel int
	// PageExt, when set, points links to members of the assembly at the type
	// pages named by PageName instead of docnet:// URIs.
	PageExt string
}

func (o Options) level() int {
	switch {
	case o.HeadingLevel < 1:
		return 1
	case o.HeadingLevel > 6:
		return 6
	}
	return o.HeadingLevel
}
