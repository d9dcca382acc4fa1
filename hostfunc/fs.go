package hostfunc

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
)

const (
	DefaultMaxFileSize   = 8 << 20
	DefaultMaxPathLength = 4096
)

// Mount exposes a host directory to scripts under a virtual path. Mounts
// are read-only.
type Mount struct {
	VirtualPath string // Path as seen by scripts (e.g., "/" or "/inputs")
	HostPath    string // Actual path on host filesystem
}

// FS resolves script paths against mounts and reads files from them.
type FS struct {
	mounts        []Mount
	maxFileSize   int64
	maxPathLength int
}

// FSOption configures an FS.
type FSOption func(*FS)

// WithMaxFileSize limits how many bytes ReadFile returns.
func WithMaxFileSize(size int64) FSOption {
	return func(f *FS) {
		f.maxFileSize = size
	}
}

// WithMaxPathLength rejects longer paths before resolving them.
func WithMaxPathLength(length int) FSOption {
	return func(f *FS) {
		f.maxPathLength = length
	}
}

// NewFS creates a filesystem reader with the given mount points.
func NewFS(mounts []Mount, opts ...FSOption) *FS {
	f := &FS{
		maxFileSize:   DefaultMaxFileSize,
		maxPathLength: DefaultMaxPathLength,
	}
	for _, opt := range opts {
		opt(f)
	}

	for _, m := range mounts {
		vp := "/" + strings.Trim(m.VirtualPath, "/")
		hp, err := filepath.Abs(m.HostPath)
		if err != nil {
			continue
		}
		f.mounts = append(f.mounts, Mount{VirtualPath: vp, HostPath: hp})
	}
	return f
}

// Enabled reports whether any mount is configured.
func (f *FS) Enabled() bool {
	return len(f.mounts) > 0
}

// resolve maps a script path to a host path. Relative paths are taken
// from the root of the virtual tree.
func (f *FS) resolve(p string) (string, error) {
	if len(p) > f.maxPathLength {
		return "", errors.New("path exceeds max length")
	}

	vp := path.Clean("/" + strings.TrimPrefix(p, "/"))

	for _, m := range f.mounts {
		var rel string
		switch {
		case m.VirtualPath == "/":
			rel = vp
		case vp == m.VirtualPath:
			rel = "/"
		case strings.HasPrefix(vp, m.VirtualPath+"/"):
			rel = strings.TrimPrefix(vp, m.VirtualPath)
		default:
			continue
		}

		hostPath := filepath.Join(m.HostPath, filepath.FromSlash(rel))
		if hostPath != m.HostPath && !strings.HasPrefix(hostPath, m.HostPath+string(filepath.Separator)) {
			return "", errors.New("permission denied: path escape attempt")
		}
		return hostPath, nil
	}

	return "", errors.New("permission denied: path not in any mount")
}

// ReadFile returns the contents of the file at the script path p.
func (f *FS) ReadFile(p string) (string, error) {
	hostPath, err := f.resolve(p)
	if err != nil {
		return "", err
	}

	file, err := os.Open(hostPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("file not found: %s", p)
		}
		return "", fmt.Errorf("read error: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, f.maxFileSize+1))
	if err != nil {
		return "", fmt.Errorf("read error: %w", err)
	}
	if int64(len(data)) > f.maxFileSize {
		return "", fmt.Errorf("file too large: %s", p)
	}
	return string(data), nil
}
