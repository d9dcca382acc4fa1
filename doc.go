// Package santabox runs santa-lang solutions inside a WebAssembly sandbox.
//
// # Overview
//
// The santa-lang interpreter is a WASI module. Each run or test request gets
// a fresh module instance; the script talks to the host only through two
// host functions: puts, which prints, and read, which fetches puzzle inputs
// (aoc://YEAR/DAY), http(s) URLs and, when mounted, local files.
//
// # Basic Usage
//
//	lang, _ := santa.Load("santa-lang.wasm")
//	exec, _ := executor.New(executor.WithPrecompile(lang))
//	defer exec.Close()
//
//	reader, _ := hostfunc.NewReader(hostfunc.ReaderConfig{})
//	host := hostfunc.NewBridge(os.Stdout, reader)
//
//	reply, err := exec.Execute(ctx, lang,
//	    executor.Request{Kind: executor.KindRun, Source: source}, host)
//
// # Editors
//
// A [dispatcher.Dispatcher] keeps one request in flight per editor, runs it
// off the caller's goroutine and publishes the formatted outcome:
//
//	d := dispatcher.New(exec.Bind(lang), host, sink)
//	defer d.Close()
//	d.Run(source)
//
// See the [executor], [hostfunc], [dispatcher], [diagnostic] and [location]
// packages for detailed API documentation.
package santabox
