package hostfunc

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
)

// NewPuts returns the puts host function. Values are joined by single
// spaces and terminated by a newline. Output is best effort: a failing
// writer never fails the script.
func NewPuts(w io.Writer) Func {
	var mu sync.Mutex
	return func(ctx context.Context, args map[string]any) (any, error) {
		line := strings.Join(stringValues(args["values"]), " ") + "\n"

		mu.Lock()
		_, _ = io.WriteString(w, line)
		mu.Unlock()

		return nil, nil
	}
}

func stringValues(v any) []string {
	switch vs := v.(type) {
	case []string:
		return vs
	case []any:
		out := make([]string, 0, len(vs))
		for _, item := range vs {
			if s, ok := item.(string); ok {
				out = append(out, s)
			} else {
				out = append(out, fmt.Sprint(item))
			}
		}
		return out
	case string:
		return []string{vs}
	case nil:
		return nil
	default:
		return []string{fmt.Sprint(vs)}
	}
}
