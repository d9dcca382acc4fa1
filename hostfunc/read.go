package hostfunc

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"unicode"
)

const (
	// ShorthandScheme marks puzzle input locators such as aoc://2022/5.
	ShorthandScheme = "aoc"

	DefaultInputBaseURL = "https://raw.githubusercontent.com/eddmann/advent-of-code/master"
)

var ErrMalformedLocator = errors.New("malformed locator")

// Target is a resolved read path.
type Target struct {
	URL  string // set for http(s) targets
	Path string // set for local files
	File string // cache file name for shorthand inputs
}

func (t Target) key() string {
	if t.URL != "" {
		return t.URL
	}
	return "file:" + t.Path
}

// ResolveLocator rewrites a shorthand locator (aoc://YEAR/DAY or
// aoc:///YEAR/DAY) into its canonical input URL under baseURL.
func ResolveLocator(locator, baseURL string) (string, string, error) {
	u, err := url.Parse(locator)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrMalformedLocator, err)
	}
	if u.Scheme != ShorthandScheme {
		return "", "", fmt.Errorf("%w: scheme %q", ErrMalformedLocator, u.Scheme)
	}

	year, day := u.Host, strings.Trim(u.Path, "/")
	if year == "" {
		parts := strings.Split(day, "/")
		if len(parts) != 2 {
			return "", "", fmt.Errorf("%w: %s", ErrMalformedLocator, locator)
		}
		year, day = parts[0], parts[1]
	}

	y, err := strconv.Atoi(year)
	if err != nil || y <= 0 {
		return "", "", fmt.Errorf("%w: year %q", ErrMalformedLocator, year)
	}
	d, err := strconv.Atoi(day)
	if err != nil || d <= 0 {
		return "", "", fmt.Errorf("%w: day %q", ErrMalformedLocator, day)
	}

	file := fmt.Sprintf("aoc%d_day%02d.input", y, d)
	return fmt.Sprintf("%s/%d/santa-lang/%s", strings.TrimSuffix(baseURL, "/"), y, file), file, nil
}

// ReaderConfig configures a Reader.
type ReaderConfig struct {
	BaseURL      string
	HTTP         HTTPConfig
	Mounts       []Mount
	FSOptions    []FSOption
	CacheEntries int
	CacheDir     string
}

// Reader implements the read host function: shorthand locators, http(s)
// URLs and, when mounts are configured, local files.
type Reader struct {
	baseURL string
	http    *HTTP
	fs      *FS
	cache   *ResourceCache
}

func NewReader(cfg ReaderConfig) (*Reader, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultInputBaseURL
	}

	base, err := url.Parse(cfg.BaseURL)
	if err != nil || base.Hostname() == "" {
		return nil, fmt.Errorf("invalid input base url %q", cfg.BaseURL)
	}
	if len(cfg.HTTP.AllowedHosts) == 0 {
		cfg.HTTP.AllowedHosts = []string{base.Hostname()}
	}

	cache, err := NewResourceCache(cfg.CacheEntries, cfg.CacheDir)
	if err != nil {
		return nil, err
	}

	return &Reader{
		baseURL: cfg.BaseURL,
		http:    NewHTTP(cfg.HTTP),
		fs:      NewFS(cfg.Mounts, cfg.FSOptions...),
		cache:   cache,
	}, nil
}

// Resolve maps a script path onto what Read would fetch.
func (r *Reader) Resolve(p string) (Target, error) {
	u, err := url.Parse(p)
	if err != nil || u.Scheme == "" {
		return Target{Path: p}, nil
	}

	switch u.Scheme {
	case ShorthandScheme:
		canonical, file, err := ResolveLocator(p, r.baseURL)
		if err != nil {
			return Target{}, err
		}
		return Target{URL: canonical, File: file}, nil
	case "http", "https":
		return Target{URL: p}, nil
	}
	return Target{}, fmt.Errorf("unsupported scheme %q in %s", u.Scheme, p)
}

// Read fetches p synchronously and returns its content without trailing
// whitespace.
func (r *Reader) Read(ctx context.Context, p string) (string, error) {
	target, err := r.Resolve(p)
	if err != nil {
		return "", err
	}

	if content, ok := r.cache.Get(target.key(), target.File); ok {
		return content, nil
	}

	var content string
	if target.URL != "" {
		content, err = r.http.Get(ctx, target.URL)
	} else {
		if !r.fs.Enabled() {
			return "", fmt.Errorf("failed to read file: %s", p)
		}
		content, err = r.fs.ReadFile(target.Path)
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", p, err)
	}

	content = strings.TrimRightFunc(content, unicode.IsSpace)
	// A failed disk write still leaves the in-memory entry usable.
	_ = r.cache.Put(target.key(), target.File, content)
	return content, nil
}

// Func adapts Read to the host function calling convention.
func (r *Reader) Func() Func {
	return func(ctx context.Context, args map[string]any) (any, error) {
		p, ok := args["path"].(string)
		if !ok || p == "" {
			return nil, errors.New("path required")
		}
		return r.Read(ctx, p)
	}
}
