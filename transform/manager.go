package transform

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	godiffpatch "github.com/sourcegraph/go-diff-patch"
	"golang.org/x/sync/errgroup"

	"github.com/jscodegen/go-codegen/internal/config"
	"github.com/jscodegen/go-codegen/internal/resolve"
)

// Manager transforms the files of an application and writes out the changes.
type Manager struct {
	dispatcher  *Dispatcher
	config      config.Config
	userAppPath string // path to the user's application as provided by the user
	diffFile    string

	mu      sync.Mutex
	outputs []Output
}

// NewManager returns a Manager for the file or directory userAppPath.
func NewManager(d *Dispatcher, cfg config.Config, userAppPath, diffFile string) *Manager {
	return &Manager{
		dispatcher:  d,
		config:      cfg,
		userAppPath: userAppPath,
		diffFile:    diffFile,
	}
}

// LoadFiles returns the absolute paths of the files to transform, sorted. A file path
// is returned as is; directories are walked, skipping excluded entries and files whose
// extension is not configured.
func (m *Manager) LoadFiles() ([]string, error) {
	root, err := filepath.Abs(m.userAppPath)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{root}, nil
	}

	var files []string
	err = filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		if m.config.Excluded(rel) {
			if entry.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if entry.Type().IsRegular() && m.config.Included(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", root, err)
	}
	slices.Sort(files)
	return files, nil
}

// TransformAll transforms files with up to the configured number of files in flight.
// A failing file does not stop the others; all failures are returned joined, in file
// order, and only the files that transformed completely are kept as outputs.
func (m *Manager) TransformAll(ctx context.Context, files []string) error {
	errs := make([]error, len(files))
	outputs := make([]Output, len(files))

	g := new(errgroup.Group)
	g.SetLimit(max(1, m.config.Jobs))
	for i, file := range files {
		g.Go(func() error {
			outputs[i], errs[i] = m.transformFile(ctx, file)
			return nil
		})
	}
	_ = g.Wait()

	m.mu.Lock()
	defer m.mu.Unlock()
	for i, out := range outputs {
		if errs[i] == nil {
			m.outputs = append(m.outputs, out)
		}
	}
	return errors.Join(errs...)
}

// transformFile transforms the host file path file. Sites resolve modules from its
// slash form, the output keeps the host path.
func (m *Manager) transformFile(ctx context.Context, file string) (Output, error) {
	source, err := os.ReadFile(file)
	if err != nil {
		return Output{}, err
	}
	name, err := resolve.Abs(file)
	if err != nil {
		return Output{}, err
	}
	out, err := m.dispatcher.TransformFile(ctx, name, source)
	if err != nil {
		return Output{}, err
	}
	out.File = file
	return out, nil
}

// Outputs returns the files transformed so far.
func (m *Manager) Outputs() []Output {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.outputs)
}

// CreateDiffFile truncates the diff file.
func (m *Manager) CreateDiffFile() error {
	f, err := os.Create(m.diffFile)
	if err != nil {
		return err
	}
	return f.Close()
}

// WriteDiff appends a patch for every changed file to the diff file.
func (m *Manager) WriteDiff() error {
	root, err := m.appRoot()
	if err != nil {
		return err
	}

	f, err := os.OpenFile(m.diffFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	for _, out := range m.Outputs() {
		if !out.Changed() {
			continue
		}
		// what this file will be named in the diff file
		diffFileName, err := filepath.Rel(root, out.File)
		if err != nil {
			return err
		}
		patch := godiffpatch.GeneratePatch(filepath.ToSlash(diffFileName), string(out.Original), string(out.Code))
		if _, err := f.WriteString(patch); err != nil {
			return err
		}
	}
	log.Printf("changes written to %s", m.diffFile)
	return nil
}

// WriteFiles rewrites every changed file in place, keeping its permissions.
func (m *Manager) WriteFiles() error {
	var written []string
	for _, out := range m.Outputs() {
		if !out.Changed() {
			continue
		}
		info, err := os.Stat(out.File)
		if err != nil {
			return err
		}
		if err := os.WriteFile(out.File, out.Code, info.Mode().Perm()); err != nil {
			return err
		}
		written = append(written, out.File)
	}
	if len(written) > 0 {
		log.Printf("changes written to %s", strings.Join(written, ", "))
	}
	return nil
}

// appRoot is the directory diff names are relative to.
func (m *Manager) appRoot() (string, error) {
	root, err := filepath.Abs(m.userAppPath)
	if err != nil {
		return "", err
	}
	if info, err := os.Stat(root); err == nil && !info.IsDir() {
		root = filepath.Dir(root)
	}
	return root, nil
}
