package executor

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformedReply reports a reply frame that does not match the wire format.
var ErrMalformedReply = errors.New("malformed reply")

// wireReply is the JSON shape exchanged with the interpreter module:
//
//	{"type":"run","result":{...}}
//	{"type":"test","testCases":[...]}
//	{"type":"run","error":{"message":"...","location":{...},"trace":[...]}}
type wireReply struct {
	Type      Kind            `json:"type"`
	Result    *RunResult      `json:"result,omitempty"`
	TestCases []*TestCase     `json:"testCases,omitempty"`
	Error     *ExecutionError `json:"error,omitempty"`
}

// EncodeRequest returns the JSON line sent to the interpreter.
func EncodeRequest(req Request) ([]byte, error) {
	if !req.Kind.Valid() {
		return nil, fmt.Errorf("unknown request type %q", req.Kind)
	}
	data, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	return append(data, '\n'), nil
}

// EncodeReply returns the wire form of reply for a request of the given kind.
func EncodeReply(kind Kind, reply Reply) ([]byte, error) {
	w := wireReply{Type: kind}
	switch r := reply.(type) {
	case *RunReply:
		w.Result = &r.Result
	case *TestReply:
		w.TestCases = r.Cases
		if w.TestCases == nil {
			w.TestCases = []*TestCase{}
		}
	case *ErrorReply:
		w.Error = &r.Err
	default:
		return nil, fmt.Errorf("encode reply: unsupported type %T", reply)
	}
	return json.Marshal(w)
}

// DecodeReply parses a reply frame produced for req.
func DecodeReply(data []byte, req Request) (Reply, error) {
	var w wireReply
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedReply, err)
	}
	if w.Type != req.Kind {
		return nil, fmt.Errorf("%w: reply type %q for %q request", ErrMalformedReply, w.Type, req.Kind)
	}

	if w.Error != nil {
		return &ErrorReply{Source: req.Source, Err: *w.Error}, nil
	}

	switch w.Type {
	case KindRun, KindEvaluate:
		if w.Result == nil {
			return nil, fmt.Errorf("%w: missing result", ErrMalformedReply)
		}
		return &RunReply{Result: *w.Result}, nil
	case KindTest:
		return &TestReply{Cases: w.TestCases}, nil
	}
	return nil, fmt.Errorf("%w: unknown type %q", ErrMalformedReply, w.Type)
}
