package executor

import (
	"fmt"

	"github.com/caffeineduck/santabox/location"
)

// Kind selects the interpreter entry point for a request.
type Kind string

const (
	KindRun      Kind = "run"
	KindTest     Kind = "test"
	KindEvaluate Kind = "evaluate"
)

// Valid reports whether k names a known entry point.
func (k Kind) Valid() bool {
	switch k {
	case KindRun, KindTest, KindEvaluate:
		return true
	}
	return false
}

// Request is sent once into an execution context.
type Request struct {
	Kind   Kind   `json:"type"`
	Source string `json:"source"`
}

// Reply is the outcome of a Request: *RunReply, *TestReply or *ErrorReply.
type Reply interface {
	reply()
}

// RunReply carries the result of a run or evaluate request.
type RunReply struct {
	Result RunResult
}

// TestReply carries the ordered test cases of a test request.
type TestReply struct {
	Cases []*TestCase
}

// ErrorReply carries a script failure together with the source it refers to.
type ErrorReply struct {
	Source string
	Err    ExecutionError
}

func (*RunReply) reply()   {}
func (*TestReply) reply()  {}
func (*ErrorReply) reply() {}

// Part is one timed solution part.
type Part struct {
	Value    string `json:"value"`
	Duration int64  `json:"duration"` // milliseconds
}

// RunResult is either a bare script value or up to two solution parts.
type RunResult struct {
	Value    *string `json:"value,omitempty"`
	Duration int64   `json:"duration,omitempty"`
	PartOne  *Part   `json:"part_one,omitempty"`
	PartTwo  *Part   `json:"part_two,omitempty"`
}

// ScriptResult returns a RunResult holding a bare value.
func ScriptResult(value string, duration int64) RunResult {
	return RunResult{Value: &value, Duration: duration}
}

// TestCase holds the expectations checked by one test section. A nil
// *TestCase in a TestReply is a section without expectations.
type TestCase struct {
	PartOne *TestCaseResult `json:"part_one,omitempty"`
	PartTwo *TestCaseResult `json:"part_two,omitempty"`
}

// TestCaseResult is the comparison the interpreter made for one part.
type TestCaseResult struct {
	Actual   string `json:"actual"`
	Expected string `json:"expected"`
	Passed   bool   `json:"passed"`
}

// ExecutionError is a failure raised by the script.
type ExecutionError struct {
	Message  string          `json:"message"`
	Location location.Span   `json:"location"`
	Trace    []location.Span `json:"trace,omitempty"`
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("%s (at %d)", e.Message, e.Location.Start)
}
