// Package dispatcher connects a front end to an interpreter running in its
// own execution context.
//
// A Dispatcher allows at most one request in flight. Dispatch never blocks:
// the request is handed to the execution context goroutine and the reply
// comes back through a delivery goroutine, which formats it and publishes
// the text to a Sink. Close terminates the execution context; a reply that
// arrives afterwards is dropped.
package dispatcher

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/caffeineduck/santabox/diagnostic"
	"github.com/caffeineduck/santabox/executor"
	"github.com/caffeineduck/santabox/hostfunc"
)

// State is the dispatcher lifecycle state.
type State int

const (
	Idle State = iota
	Pending
	Terminated
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Pending:
		return "pending"
	case Terminated:
		return "terminated"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Sink receives everything a Dispatcher shows to the user. Calls are made
// with the dispatcher lock held and must not call back into the Dispatcher.
type Sink interface {
	// Status shows a transient message while a request is pending.
	Status(text string)
	// Publish shows the formatted outcome of a request.
	Publish(Result)
}

type delivery struct {
	req   executor.Request
	reply executor.Reply
	err   error
}

type Dispatcher struct {
	interp    executor.Interpreter
	host      *hostfunc.Registry
	sink      Sink
	formatter *diagnostic.Formatter
	logger    *slog.Logger

	ctx      context.Context
	cancel   context.CancelFunc
	requests chan executor.Request
	replies  chan delivery
	wg       sync.WaitGroup

	mu    sync.Mutex
	state State
}

type Option func(*Dispatcher)

// WithLogger sets the logger for internal faults. The default discards.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithFormatter replaces the default plain "editor" formatter.
func WithFormatter(f *diagnostic.Formatter) Option {
	return func(d *Dispatcher) {
		if f != nil {
			d.formatter = f
		}
	}
}

// New starts the execution context and delivery goroutines. interp is owned
// by the Dispatcher from now on; host serves the script's host calls.
func New(interp executor.Interpreter, host *hostfunc.Registry, sink Sink, opts ...Option) *Dispatcher {
	ctx, cancel := context.WithCancel(context.Background())
	d := &Dispatcher{
		interp:    interp,
		host:      host,
		sink:      sink,
		formatter: diagnostic.New(diagnostic.DefaultName, diagnostic.PlainTheme()),
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		ctx:       ctx,
		cancel:    cancel,
		requests:  make(chan executor.Request, 1),
		replies:   make(chan delivery, 1),
	}
	for _, opt := range opts {
		opt(d)
	}

	d.wg.Add(2)
	go d.execute()
	go d.deliver()
	return d
}

// Dispatch sends a request unless one is already pending or the Dispatcher
// is closed. It reports whether the request was sent.
func (d *Dispatcher) Dispatch(kind executor.Kind, source string) bool {
	if !kind.Valid() {
		d.logger.Error("dispatch rejected", "kind", kind, "error", "unknown request type")
		return false
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.state != Idle {
		return false
	}
	d.state = Pending
	d.sink.Status(StatusText(kind))
	// Buffered and drained before the state can return to Idle.
	d.requests <- executor.Request{Kind: kind, Source: source}
	return true
}

func (d *Dispatcher) Run(source string) bool {
	return d.Dispatch(executor.KindRun, source)
}

func (d *Dispatcher) Test(source string) bool {
	return d.Dispatch(executor.KindTest, source)
}

func (d *Dispatcher) Evaluate(source string) bool {
	return d.Dispatch(executor.KindEvaluate, source)
}

func (d *Dispatcher) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Close terminates the execution context and waits for both goroutines.
// It is safe to call more than once.
func (d *Dispatcher) Close() error {
	d.mu.Lock()
	if d.state == Terminated {
		d.mu.Unlock()
		return nil
	}
	d.state = Terminated
	d.mu.Unlock()

	d.cancel()
	d.wg.Wait()
	return nil
}

// execute is the execution context: it owns the interpreter.
func (d *Dispatcher) execute() {
	defer d.wg.Done()
	for {
		select {
		case <-d.ctx.Done():
			return
		case req := <-d.requests:
			reply, err := d.interp.Execute(d.ctx, req, d.host)
			select {
			case d.replies <- delivery{req: req, reply: reply, err: err}:
			case <-d.ctx.Done():
				return
			}
		}
	}
}

// deliver is the message callback for replies.
func (d *Dispatcher) deliver() {
	defer d.wg.Done()
	for {
		select {
		case <-d.ctx.Done():
			return
		case del := <-d.replies:
			result := d.render(del)

			d.mu.Lock()
			if d.state == Pending {
				d.state = Idle
				d.sink.Publish(result)
			}
			d.mu.Unlock()
		}
	}
}

func (d *Dispatcher) render(del delivery) Result {
	if del.err != nil {
		return d.fault(del.req, "execution failed", del.err)
	}

	result := Result{Kind: del.req.Kind}
	switch r := del.reply.(type) {
	case *executor.RunReply:
		result.Text = d.formatter.FormatRunResult(r.Result)
		result.Outcome = Succeeded
	case *executor.TestReply:
		result.Text = d.formatter.FormatTestResult(r.Cases)
		result.Outcome = Succeeded
		if !diagnostic.Passed(r.Cases) {
			result.Outcome = Failed
		}
	case *executor.ErrorReply:
		text, err := d.formatter.FormatError(r.Source, r.Err)
		if err != nil {
			return d.fault(del.req, "format script error", err)
		}
		result.Text = text
		result.Outcome = Errored
	default:
		return d.fault(del.req, "unexpected reply", fmt.Errorf("reply type %T", del.reply))
	}
	return result
}

func (d *Dispatcher) fault(req executor.Request, msg string, err error) Result {
	d.logger.Error(msg, "kind", req.Kind, "error", err)
	return Result{
		Kind:    req.Kind,
		Text:    "Internal error: " + err.Error(),
		Outcome: Errored,
	}
}
