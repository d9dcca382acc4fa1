// Command download fetches the santa-lang WASI interpreter.
//
//	go run ./internal/tools/download <url> santa-lang.wasm
package main

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/caffeineduck/santabox/hostfunc"
	"github.com/caffeineduck/santabox/language/santa"
)

const maxModuleSize = 64 << 20

func main() {
	if len(os.Args) != 3 {
		fmt.Fprintln(os.Stderr, "usage: download <url> <output>")
		os.Exit(1)
	}

	rawURL, output := os.Args[1], os.Args[2]

	if _, err := os.Stat(output); err == nil {
		return
	}

	if err := download(context.Background(), rawURL, output); err != nil {
		fmt.Fprintf(os.Stderr, "download failed: %v\n", err)
		os.Exit(1)
	}
}

func download(ctx context.Context, rawURL, output string) error {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return fmt.Errorf("invalid url %q", rawURL)
	}

	client := hostfunc.NewHTTP(hostfunc.HTTPConfig{
		AllowedHosts:   []string{u.Hostname()},
		MaxBodySize:    maxModuleSize,
		RequestTimeout: 5 * time.Minute,
	})

	body, err := client.Get(ctx, rawURL)
	if err != nil {
		return err
	}

	// Refuse to write anything the executor could not load.
	if _, err := santa.New([]byte(body)); err != nil {
		return fmt.Errorf("%s: %w", rawURL, err)
	}

	return os.WriteFile(output, []byte(body), 0o644)
}
