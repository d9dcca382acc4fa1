// Package executor runs santa-lang interpreter requests inside isolated
// WebAssembly modules.
//
// # Overview
//
// The executor manages WASM module compilation, caching, and execution.
// Every [Request] runs in a fresh module instance unless a [Session] is
// used, in which case bindings persist between evaluations.
//
// # Basic Usage
//
//	exec, err := executor.New()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer exec.Close()
//
//	host := hostfunc.NewBridge(os.Stdout, reader)
//	reply, err := exec.Execute(ctx, lang, executor.Request{
//	    Kind:   executor.KindRun,
//	    Source: `1 + 2`,
//	}, host)
//
// A Go error from Execute means the execution context itself failed
// (timeout, crash, no reply). Script failures arrive as [*ErrorReply].
//
// # Wire protocol
//
// The request is the first JSON line on the module's stdin. The module talks
// back on stderr with NUL-delimited frames: host calls (answered with one
// JSON line on stdin) and a single reply frame. [EncodeReply] and
// [DecodeReply] define the reply JSON.
//
// # Sessions
//
// Sessions keep one module alive for the REPL:
//
//	session, err := exec.NewSession(lang, host)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer session.Close()
//
//	session.Evaluate(ctx, `let x = 42`)
//	session.Evaluate(ctx, `x + 1`)  // 43
package executor
