//go:build wasip1

// Mock interpreter for testing executor logic without the real santa-lang
// module. Build with: GOOS=wasip1 GOARCH=wasm go build -o mock.wasm mock.go
//
// Sources are commands:
//
//	echo <text>    run result with value <text>
//	parts          run result with two parts
//	puts <text>    calls host puts
//	read <path>    calls host read and returns its data
//	stdout <text>  writes <text> to stdout
//	error          error reply located on the whole source
//	loop           never returns
//	exit           exits without a reply
//	crash          exits with status 3
//	set <k> <v>    (session) stores a binding
//	get <k>        (session) returns a binding
package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"
)

type request struct {
	Type   string `json:"type"`
	Source string `json:"source"`
}

type callResponse struct {
	Data  any    `json:"data"`
	Error string `json:"error"`
}

var (
	stdin    = bufio.NewScanner(os.Stdin)
	bindings = map[string]string{}
)

func main() {
	session := os.Getenv("SANTA_SESSION") == "1"
	if session {
		fmt.Fprint(os.Stderr, "\x00SANTA_READY\x00")
	}

	for stdin.Scan() {
		var req request
		if err := json.Unmarshal(stdin.Bytes(), &req); err != nil {
			continue
		}
		handle(req)
		if !session {
			return
		}
	}
}

func call(fn string, args map[string]any) callResponse {
	data, _ := json.Marshal(map[string]any{"fn": fn, "args": args})
	fmt.Fprintf(os.Stderr, "\x00SANTA:%s\x00", data)

	var resp callResponse
	if stdin.Scan() {
		json.Unmarshal(stdin.Bytes(), &resp)
	}
	return resp
}

func reply(v map[string]any) {
	data, _ := json.Marshal(v)
	fmt.Fprintf(os.Stderr, "\x00SANTA_REPLY:%s\x00", data)
}

func value(typ, v string) {
	reply(map[string]any{"type": typ, "result": map[string]any{"value": v, "duration": 1}})
}

func handle(req request) {
	cmd, arg, _ := strings.Cut(req.Source, " ")

	if req.Type == "test" {
		reply(map[string]any{"type": "test", "testCases": []any{
			map[string]any{"part_one": map[string]any{"actual": arg, "expected": arg, "passed": true}},
			nil,
		}})
		return
	}

	switch cmd {
	case "echo":
		value(req.Type, arg)
	case "parts":
		reply(map[string]any{"type": req.Type, "result": map[string]any{
			"duration": 3,
			"part_one": map[string]any{"value": "1", "duration": 1},
			"part_two": map[string]any{"value": "2", "duration": 2},
		}})
	case "puts":
		call("puts", map[string]any{"values": []any{arg}})
		value(req.Type, "nil")
	case "read":
		resp := call("read", map[string]any{"path": arg})
		if resp.Error != "" {
			reply(map[string]any{"type": req.Type, "error": map[string]any{
				"message":  resp.Error,
				"location": map[string]any{"start": 0, "end": utf8.RuneCountInString(req.Source)},
				"trace":    []any{},
			}})
			return
		}
		value(req.Type, fmt.Sprint(resp.Data))
	case "stdout":
		fmt.Print(arg)
		value(req.Type, "nil")
	case "error":
		reply(map[string]any{"type": req.Type, "error": map[string]any{
			"message":  "Unexpected error",
			"location": map[string]any{"start": 0, "end": utf8.RuneCountInString(req.Source)},
			"trace":    []any{map[string]any{"start": 0, "end": 5}},
		}})
	case "loop":
		for {
		}
	case "exit":
		os.Exit(0)
	case "crash":
		fmt.Fprint(os.Stderr, "boom")
		os.Exit(3)
	case "set":
		k, v, _ := strings.Cut(arg, " ")
		bindings[k] = v
		value(req.Type, v)
	case "get":
		value(req.Type, bindings[arg])
	default:
		value(req.Type, req.Source)
	}
}
