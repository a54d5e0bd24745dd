package docid

import "fmt"

// Kind identifies what a doc-id names.
type Kind int

const (
	Error Kind = iota
	Type
	Method
	Constructor
	Field
	Property
	Event
	Namespace
)

var kindNames = [...]string{
	Error:       "error",
	Type:        "type",
	Method:      "method",
	Constructor: "constructor",
	Field:       "field",
	Property:    "property",
	Event:       "event",
	Namespace:   "namespace",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return kindNames[k]
}

// Prefix returns the single-letter doc-id prefix for the kind, or 0 for Error.
func (k Kind) Prefix() byte {
	switch k {
	case Type:
		return 'T'
	case Method, Constructor:
		return 'M'
	case Field:
		return 'F'
	case Property:
		return 'P'
	case Event:
		return 'E'
	case Namespace:
		return 'N'
	}
	return 0
}

// Callable reports whether doc-ids of this kind may carry a parameter list.
func (k Kind) Callable() bool {
	return k == Method || k == Constructor || k == Property
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// ParseKind maps a kind name (as produced by String) back to a Kind.
func ParseKind(s string) (Kind, error) {
	for i, name := range kindNames {
		if name == s {
			return Kind(i), nil
		}
	}
	return Error, fmt.Errorf("unknown member kind %q", s)
}

func kindForPrefix(c byte) (Kind, bool) {
	switch c {
	case 'T':
		return Type, true
	case 'M':
		return Method, true
	case 'F':
		return Field, true
	case 'P':
		return Property, true
	case 'E':
		return Event, true
	case 'N':
		return Namespace, true
	}
	return Error, false
}
