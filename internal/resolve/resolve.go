// Package resolve maps module requests to files the way Node does: relative and
// absolute paths with extension and index probing, and bare names through
// node_modules directories. Paths are slash-separated and absolute; the file system is
// injected so tests can resolve against in-memory projects.
package resolve

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
)

// ErrModuleNotFound is returned when no file matches a request.
var ErrModuleNotFound = errors.New("module not found")

// DefaultExtensions are probed, in order, after the request as written.
var DefaultExtensions = []string{".js", ".jsx", ".ts", ".tsx", ".mjs", ".cjs", ".json"}

type cacheKey struct {
	request string
	dir     string
}

// Resolver resolves module requests against a file system rooted at "/". It is safe
// for concurrent use; successful resolutions are cached, failures are not.
type Resolver struct {
	fsys       fs.FS
	extensions []string

	mu    sync.RWMutex
	cache map[cacheKey]string
}

// New returns a Resolver over fsys, whose root stands for "/".
func New(fsys fs.FS) *Resolver {
	return &Resolver{
		fsys:       fsys,
		extensions: DefaultExtensions,
		cache:      map[cacheKey]string{},
	}
}

// NewOS returns a Resolver over the host file system.
func NewOS() *Resolver {
	return New(os.DirFS("/"))
}

// Abs converts a host path to the resolver's absolute slash form.
func Abs(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", err
	}
	return path.Clean("/" + strings.TrimPrefix(filepath.ToSlash(abs), "/")), nil
}

// ReadFile reads an absolute path.
func (r *Resolver) ReadFile(name string) ([]byte, error) {
	return fs.ReadFile(r.fsys, fsName(name))
}

// Stat describes an absolute path.
func (r *Resolver) Stat(name string) (fs.FileInfo, error) {
	return fs.Stat(r.fsys, fsName(name))
}

// ReadDir lists an absolute directory.
func (r *Resolver) ReadDir(name string) ([]fs.DirEntry, error) {
	return fs.ReadDir(r.fsys, fsName(name))
}

// Resolve returns the absolute path of the file request names when required from a
// module in dir.
func (r *Resolver) Resolve(request, dir string) (string, error) {
	key := cacheKey{request: request, dir: dir}
	r.mu.RLock()
	found, ok := r.cache[key]
	r.mu.RUnlock()
	if ok {
		return found, nil
	}

	found, err := r.resolve(request, dir)
	if err != nil {
		return "", fmt.Errorf("cannot find module '%s' from '%s': %w", request, dir, err)
	}

	r.mu.Lock()
	r.cache[key] = found
	r.mu.Unlock()
	return found, nil
}

func (r *Resolver) resolve(request, dir string) (string, error) {
	if request == "" {
		return "", ErrModuleNotFound
	}
	if isPathRequest(request) {
		target := request
		if !path.IsAbs(target) {
			target = path.Join(dir, request)
		}
		if p, ok := r.loadAsFile(target); ok {
			return p, nil
		}
		if p, ok := r.loadAsDirectory(target); ok {
			return p, nil
		}
		return "", ErrModuleNotFound
	}

	for d := path.Clean(dir); ; d = path.Dir(d) {
		if path.Base(d) != "node_modules" {
			target := path.Join(d, "node_modules", request)
			if p, ok := r.loadAsFile(target); ok {
				return p, nil
			}
			if p, ok := r.loadAsDirectory(target); ok {
				return p, nil
			}
		}
		if d == "/" {
			break
		}
	}
	return "", ErrModuleNotFound
}

func isPathRequest(request string) bool {
	return request == "." || request == ".." ||
		strings.HasPrefix(request, "./") ||
		strings.HasPrefix(request, "../") ||
		strings.HasPrefix(request, "/")
}

func (r *Resolver) isFile(name string) bool {
	info, err := r.Stat(name)
	return err == nil && !info.IsDir()
}

func (r *Resolver) loadAsFile(target string) (string, bool) {
	if r.isFile(target) {
		return target, true
	}
	for _, ext := range r.extensions {
		if r.isFile(target + ext) {
			return target + ext, true
		}
	}
	return "", false
}

type packageJSON struct {
	Main string `json:"main"`
}

func (r *Resolver) loadAsDirectory(target string) (string, bool) {
	if data, err := r.ReadFile(path.Join(target, "package.json")); err == nil {
		var pkg packageJSON
		if json.Unmarshal(data, &pkg) == nil && pkg.Main != "" {
			main := path.Join(target, pkg.Main)
			if p, ok := r.loadAsFile(main); ok {
				return p, true
			}
			if p, ok := r.loadIndex(main); ok {
				return p, true
			}
		}
	}
	return r.loadIndex(target)
}

func (r *Resolver) loadIndex(dir string) (string, bool) {
	for _, ext := range r.extensions {
		p := path.Join(dir, "index"+ext)
		if r.isFile(p) {
			return p, true
		}
	}
	return "", false
}

// fsName converts an absolute slash path to an fs.FS name.
func fsName(name string) string {
	name = strings.TrimPrefix(path.Clean("/"+name), "/")
	if name == "" {
		return "."
	}
	return name
}
