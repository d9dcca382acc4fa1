package executor

import (
	"context"
	"io"
	"testing"

	"github.com/caffeineduck/santabox/hostfunc"
)

// Run with: go test -bench=. -benchtime=3x ./executor/

func BenchmarkColdStart(b *testing.B) {
	lang := newMockLanguage(b)
	req := Request{Kind: KindRun, Source: "echo 1"}

	for i := 0; i < b.N; i++ {
		exec, _ := New()
		exec.Execute(context.Background(), lang, req, nil)
		exec.Close()
	}
}

func BenchmarkWarmStart(b *testing.B) {
	lang := newMockLanguage(b)
	exec := newTestExecutor(b, WithPrecompile(lang))
	req := Request{Kind: KindRun, Source: "echo 1"}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		exec.Execute(context.Background(), lang, req, nil)
	}
}

func BenchmarkWarmStart_HostFunction(b *testing.B) {
	lang := newMockLanguage(b)
	exec := newTestExecutor(b, WithPrecompile(lang))
	host := hostfunc.NewBridge(io.Discard, nil)
	req := Request{Kind: KindRun, Source: "puts 1"}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		exec.Execute(context.Background(), lang, req, host)
	}
}

func BenchmarkSessionEvaluate(b *testing.B) {
	lang := newMockLanguage(b)
	exec := newTestExecutor(b, WithPrecompile(lang))
	session, err := exec.NewSession(lang, nil)
	if err != nil {
		b.Fatalf("NewSession: %v", err)
	}
	defer session.Close()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		session.Evaluate(context.Background(), "echo 1")
	}
}

func BenchmarkDiskCacheColdStart(b *testing.B) {
	lang := newMockLanguage(b)
	dir := b.TempDir()
	req := Request{Kind: KindRun, Source: "echo 1"}

	// Populate the cache once.
	warm, _ := New(WithDiskCache(dir))
	warm.Execute(context.Background(), lang, req, nil)
	warm.Close()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		exec, _ := New(WithDiskCache(dir))
		exec.Execute(context.Background(), lang, req, nil)
		exec.Close()
	}
}
