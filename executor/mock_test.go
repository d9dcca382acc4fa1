package executor

import (
	"os"
	"path/filepath"
	"testing"
)

// mockLanguage implements Language for testing executor logic without the
// real interpreter. See testdata/mock.go for the commands it understands.
type mockLanguage struct {
	module []byte
}

func (m *mockLanguage) Name() string {
	return "mock"
}

func (m *mockLanguage) Module() []byte {
	return m.module
}

func (m *mockLanguage) Args() []string {
	return []string{"mock"}
}

// newMockLanguage loads testdata/mock.wasm, skipping the test when it has
// not been built.
func newMockLanguage(t testing.TB) *mockLanguage {
	t.Helper()
	module, err := os.ReadFile(filepath.Join("testdata", "mock.wasm"))
	if err != nil {
		t.Skip("testdata/mock.wasm not built (GOOS=wasip1 GOARCH=wasm go build -o testdata/mock.wasm testdata/mock.go)")
	}
	return &mockLanguage{module: module}
}

func newTestExecutor(t testing.TB, opts ...ExecutorOption) *Executor {
	t.Helper()
	exec, err := New(opts...)
	if err != nil {
		t.Fatalf("failed to create executor: %v", err)
	}
	t.Cleanup(func() { exec.Close() })
	return exec
}
