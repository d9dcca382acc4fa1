package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strings"
	"sync"

	"github.com/caffeineduck/santabox/hostfunc"
)

// Frames written by the interpreter on stderr. Host calls are answered with
// one JSON line on stdin.
//
//	\x00SANTA:{"fn":"read","args":{"path":"aoc://2022/1"}}\x00
//	\x00SANTA_REPLY:{"type":"run","result":{...}}\x00
//	\x00SANTA_READY\x00
const (
	protocolPrefix      = "\x00SANTA:"
	protocolReplyPrefix = "\x00SANTA_REPLY:"
	protocolSuffix      = "\x00"
	readySignal         = "\x00SANTA_READY\x00"
)

type messageType int

const (
	messageNone messageType = iota
	messageCall
	messageReply
	messageReady
)

type callRequest struct {
	Fn   string         `json:"fn"`
	Args map[string]any `json:"args"`
}

type callResponse struct {
	Data  any    `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
}

// findNextMessage returns the index and type of the earliest frame in content.
func findNextMessage(content string) (int, messageType) {
	idx, typ := -1, messageNone
	for _, m := range []struct {
		marker string
		typ    messageType
	}{
		{protocolPrefix, messageCall},
		{protocolReplyPrefix, messageReply},
		{readySignal, messageReady},
	} {
		if i := strings.Index(content, m.marker); i != -1 && (idx == -1 || i < idx) {
			idx, typ = i, m.typ
		}
	}
	return idx, typ
}

// extractMessage returns the payload of the frame at idx and what follows
// it. ok is false while the frame is still incomplete.
func extractMessage(content string, idx int, prefix string) (payload, remaining string, ok bool) {
	start := idx + len(prefix)
	if start > len(content) {
		return "", "", false
	}
	end := strings.Index(content[start:], protocolSuffix)
	if end == -1 {
		return "", "", false
	}
	return content[start : start+end], content[start+end+len(protocolSuffix):], true
}

// protocolHandler is the guest's stderr. It answers host calls, collects
// reply frames and keeps any other output for diagnostics.
type protocolHandler struct {
	ctx         context.Context
	registry    *hostfunc.Registry
	stdinWriter *io.PipeWriter

	buf        bytes.Buffer
	realStderr bytes.Buffer

	readyCh chan struct{}
	ready   bool
	replies chan []byte

	mu      sync.Mutex
	writeMu sync.Mutex
}

func newProtocolHandler(ctx context.Context, registry *hostfunc.Registry, stdinWriter *io.PipeWriter) *protocolHandler {
	if registry == nil {
		registry = hostfunc.NewRegistry()
	}
	return &protocolHandler{
		ctx:         ctx,
		registry:    registry,
		stdinWriter: stdinWriter,
		readyCh:     make(chan struct{}),
		replies:     make(chan []byte, 1),
	}
}

func (p *protocolHandler) Write(data []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.buf.Write(data)
	for p.processMessage() {
	}
	return len(data), nil
}

func (p *protocolHandler) processMessage() bool {
	content := p.buf.String()
	idx, msgType := findNextMessage(content)
	if msgType == messageNone {
		// Hold back a trailing NUL: it may start a frame split across writes.
		keep := 0
		if i := strings.LastIndexByte(content, 0); i != -1 {
			keep = len(content) - i
		}
		p.realStderr.WriteString(content[:len(content)-keep])
		p.buf.Reset()
		p.buf.WriteString(content[len(content)-keep:])
		return false
	}

	p.realStderr.WriteString(content[:idx])
	content = content[idx:]

	var prefix string
	switch msgType {
	case messageCall:
		prefix = protocolPrefix
	case messageReply:
		prefix = protocolReplyPrefix
	case messageReady:
		p.buf.Reset()
		p.buf.WriteString(content[len(readySignal):])
		if !p.ready {
			p.ready = true
			close(p.readyCh)
		}
		return true
	}

	payload, remaining, ok := extractMessage(content, 0, prefix)
	p.buf.Reset()
	if !ok {
		p.buf.WriteString(content)
		return false
	}
	p.buf.WriteString(remaining)

	if msgType == messageReply {
		p.deliver([]byte(payload))
	} else {
		p.handleCall(payload)
	}
	return true
}

func (p *protocolHandler) deliver(reply []byte) {
	select {
	case p.replies <- reply:
	default:
		// A reply is already waiting; later frames for the same request are
		// ignored.
	}
}

func (p *protocolHandler) handleCall(payload string) {
	var req callRequest
	if err := json.Unmarshal([]byte(payload), &req); err != nil {
		go p.respond(callResponse{Error: "invalid call format"})
		return
	}

	// Write() runs on the guest's thread, which is about to block reading
	// stdin for this response.
	go func() {
		p.respond(p.executeCall(req))
	}()
}

func (p *protocolHandler) executeCall(req callRequest) callResponse {
	fn, ok := p.registry.Get(req.Fn)
	if !ok {
		return callResponse{Error: "unknown function: " + req.Fn}
	}

	result, err := fn(p.ctx, req.Args)
	if err != nil {
		return callResponse{Error: err.Error()}
	}
	return callResponse{Data: result}
}

func (p *protocolHandler) respond(resp callResponse) {
	data, err := json.Marshal(resp)
	if err != nil {
		data = []byte(`{"error":"internal: failed to marshal response"}`)
	}
	p.send(append(data, '\n'))
}

// send writes one line to the guest's stdin.
func (p *protocolHandler) send(line []byte) error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	_, err := p.stdinWriter.Write(line)
	return err
}

func (p *protocolHandler) Ready() <-chan struct{} {
	return p.readyCh
}

func (p *protocolHandler) Replies() <-chan []byte {
	return p.replies
}

// Reset drops any stale reply and buffered stderr before a new request.
func (p *protocolHandler) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()

	select {
	case <-p.replies:
	default:
	}
	p.realStderr.Reset()
}

func (p *protocolHandler) Stderr() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.realStderr.String()
}
