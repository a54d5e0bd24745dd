package resolve

import "fmt"

// Reason explains why a doc-id could not be matched. The zero value means
// the doc-id resolved.
type Reason int

const (
	Resolved Reason = iota
	NoCandidateType
	NoCandidateMember
	AmbiguousOverload
	ParameterCountMismatch
	MalformedDocID
)

var reasonNames = [...]string{
	Resolved:               "resolved",
	NoCandidateType:        "no_candidate_type",
	NoCandidateMember:      "no_candidate_member",
	AmbiguousOverload:      "ambiguous_overload",
	ParameterCountMismatch: "parameter_count_mismatch",
	MalformedDocID:         "malformed_doc_id",
}

func (r Reason) String() string {
	if r < 0 || int(r) >= len(reasonNames) {
		return fmt.Sprintf("reason(%d)", int(r))
	}
	return reasonNames[r]
}

func (r Reason) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *Reason) UnmarshalText(text []byte) error {
	for i, name := range reasonNames {
		if name == string(text) {
			*r = Reason(i)
			return nil
		}
	}
	return fmt.Errorf("unknown resolution reason %q", text)
}
