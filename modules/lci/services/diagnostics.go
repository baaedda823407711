package services

import "fmt"

type IssueKind string

const (
	IssueUnresolvedFlow     IssueKind = "unresolved_flow"
	IssueAmbiguousFlow      IssueKind = "ambiguous_flow"
	IssueInvariantViolation IssueKind = "invariant_violation"
)

// Issue is one entry of the batch diagnostics report. Resolution and build
// problems are collected across the whole run instead of failing row by row,
// so a single pass surfaces every unresolved or ambiguous flow; any issue
// means the run writes nothing.
type Issue struct {
	Kind       IssueKind `json:"kind"`
	Process    string    `json:"process"`
	Sheet      string    `json:"sheet,omitempty"`
	Row        int       `json:"row,omitempty"`
	Exchange   string    `json:"exchange,omitempty"`
	Context    string    `json:"context,omitempty"`
	Candidates int       `json:"candidates,omitempty"`
	Reason     string    `json:"reason"`
}

func (i Issue) String() string {
	loc := i.Sheet
	if i.Row > 0 {
		loc = fmt.Sprintf("%s:%d", i.Sheet, i.Row)
	}
	if i.Exchange != "" {
		return fmt.Sprintf("[%s] %s (%s) exchange %q: %s", i.Kind, i.Process, loc, i.Exchange, i.Reason)
	}
	return fmt.Sprintf("[%s] %s (%s): %s", i.Kind, i.Process, loc, i.Reason)
}
