// Package local serves a repository checkout from disk.
package local

import (
	"bufio"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/matzehuels/refbump/pkg/errors"
	"github.com/matzehuels/refbump/pkg/update"
)

// skipDirs are never descended into. Build output and tool state hold no
// manifests worth rewriting.
var skipDirs = map[string]bool{
	".git":         true,
	".vs":          true,
	"bin":          true,
	"obj":          true,
	"node_modules": true,
}

// Repo is a checkout rooted at a directory. Paths it accepts and returns are
// slash separated and relative to that directory.
type Repo struct {
	root string
}

// New returns a Repo rooted at dir.
func New(dir string) (*Repo, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", dir, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "open repository %s", dir)
	}
	if !info.IsDir() {
		return nil, errors.New(errors.ErrCodeInvalidPath, "%s is not a directory", dir)
	}
	return &Repo{root: abs}, nil
}

// Root returns the absolute checkout directory.
func (r *Repo) Root() string { return r.root }

// ListFilePaths walks the checkout and returns every regular file.
func (r *Repo) ListFilePaths(ctx context.Context) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(r.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			if p != r.root && skipDirs[strings.ToLower(d.Name())] {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(r.root, p)
		if err != nil {
			return err
		}
		paths = append(paths, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", r.root, err)
	}
	return paths, nil
}

// ReadFileRaw returns the file content byte for byte.
func (r *Repo) ReadFileRaw(_ context.Context, p string) (string, error) {
	full, err := r.resolve(p)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(full)
	if err != nil {
		if os.IsNotExist(err) {
			return "", errors.Wrap(errors.ErrCodeFileNotFound, err, "%s not found", p)
		}
		return "", fmt.Errorf("read %s: %w", p, err)
	}
	return string(data), nil
}

// ReadFileLines returns the lines of a file without line endings.
func (r *Repo) ReadFileLines(_ context.Context, p string) ([]string, error) {
	full, err := r.resolve(p)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(full)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "%s not found", p)
		}
		return nil, fmt.Errorf("open %s: %w", p, err)
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for sc.Scan() {
		lines = append(lines, strings.TrimSuffix(sc.Text(), "\r"))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", p, err)
	}
	return lines, nil
}

// WriteFiles writes each change in place, keeping the file mode. Each file
// is replaced atomically.
func (r *Repo) WriteFiles(changes []update.FileChange) error {
	for _, ch := range changes {
		full, err := r.resolve(ch.Path)
		if err != nil {
			return err
		}
		mode := fs.FileMode(0o644)
		if info, err := os.Stat(full); err == nil {
			mode = info.Mode().Perm()
		}

		tmp, err := os.CreateTemp(filepath.Dir(full), ".refbump-*")
		if err != nil {
			return fmt.Errorf("write %s: %w", ch.Path, err)
		}
		_, werr := tmp.WriteString(ch.Content)
		cerr := tmp.Close()
		if werr == nil {
			werr = cerr
		}
		if werr == nil {
			werr = os.Chmod(tmp.Name(), mode)
		}
		if werr == nil {
			werr = os.Rename(tmp.Name(), full)
		}
		if werr != nil {
			os.Remove(tmp.Name())
			return fmt.Errorf("write %s: %w", ch.Path, werr)
		}
	}
	return nil
}

func (r *Repo) resolve(p string) (string, error) {
	p = strings.TrimPrefix(filepath.ToSlash(p), "/")
	if err := errors.ValidatePath(p); err != nil {
		return "", err
	}
	return filepath.Join(r.root, filepath.FromSlash(p)), nil
}

var _ update.Repository = (*Repo)(nil)
