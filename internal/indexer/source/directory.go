package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/Adithya-Monish-Kumar-K/moogle-search/internal/indexer/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/moogle-search/pkg/errors"
)

// Directory reads one document per file matching Pattern in Dir. Files are
// read concurrently on a bounded pool but returned in name order.
type Directory struct {
	dir     string
	pattern string
	workers int
	logger  *slog.Logger
}

func NewDirectory(dir, pattern string, workers int) *Directory {
	if pattern == "" {
		pattern = "*.txt"
	}
	if workers <= 0 {
		workers = 1
	}
	return &Directory{
		dir:     dir,
		pattern: pattern,
		workers: workers,
		logger:  slog.Default().With("component", "directory-source", "dir", dir),
	}
}

func (d *Directory) names() ([]string, error) {
	paths, err := filepath.Glob(filepath.Join(d.dir, d.pattern))
	if err != nil {
		return nil, apperrors.Corpusf("listing %s: %v", d.dir, err)
	}
	names := make([]string, 0, len(paths))
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, apperrors.Corpusf("stat %s: %v", p, err)
		}
		if info.Mode().IsRegular() {
			names = append(names, filepath.Base(p))
		}
	}
	sort.Strings(names)
	return names, nil
}

// List reads every matching file. Any unreadable file fails the whole call
// with ErrCorpus.
func (d *Directory) List(ctx context.Context) ([]index.RawDocument, error) {
	names, err := d.names()
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, apperrors.Corpusf("no documents matching %s in %s", d.pattern, d.dir)
	}

	pool, err := ants.NewPool(d.workers)
	if err != nil {
		return nil, fmt.Errorf("creating reader pool: %w", err)
	}
	defer pool.Release()

	docs := make([]index.RawDocument, len(names))
	errs := make([]error, len(names))
	var wg sync.WaitGroup
	for i, name := range names {
		wg.Add(1)
		if err := pool.Submit(func() {
			defer wg.Done()
			if ctx.Err() != nil {
				errs[i] = ctx.Err()
				return
			}
			text, err := d.Read(ctx, name)
			errs[i] = err
			docs[i] = index.RawDocument{Name: name, Text: text}
		}); err != nil {
			wg.Done()
			errs[i] = fmt.Errorf("submitting read of %s: %w", name, err)
		}
	}
	wg.Wait()

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	d.logger.Debug("documents read", "count", len(docs), "workers", d.workers)
	return docs, nil
}

// Read returns the text of one file in the directory.
func (d *Directory) Read(ctx context.Context, name string) (string, error) {
	if name != filepath.Base(name) {
		return "", apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest, "invalid document name %q", name)
	}
	data, err := os.ReadFile(filepath.Join(d.dir, name))
	if errors.Is(err, os.ErrNotExist) {
		return "", apperrors.Newf(apperrors.ErrDocumentNotFound, http.StatusNotFound, "document %s not found", name)
	}
	if err != nil {
		return "", apperrors.Corpusf("reading %s: %v", name, err)
	}
	return string(data), nil
}
