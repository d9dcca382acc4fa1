package dispatcher

import (
	"fmt"

	"github.com/caffeineduck/santabox/executor"
)

// Outcome classifies a published result.
type Outcome int

const (
	Succeeded Outcome = iota
	// Failed means the script ran but at least one test expectation failed.
	Failed
	// Errored covers script errors and faults of the execution context.
	Errored
)

func (o Outcome) String() string {
	switch o {
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	case Errored:
		return "errored"
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}

func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// Result is the display text for one completed request.
type Result struct {
	Kind    executor.Kind `json:"kind"`
	Text    string        `json:"text"`
	Outcome Outcome       `json:"outcome"`
}

// StatusText is the transient status shown while a request of kind runs.
func StatusText(kind executor.Kind) string {
	switch kind {
	case executor.KindTest:
		return "Testing..."
	case executor.KindEvaluate:
		return "Evaluating..."
	default:
		return "Running..."
	}
}
