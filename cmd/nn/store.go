package main

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/viant/nearest/engine"
	"github.com/viant/nearest/errs"
	"github.com/viant/nearest/index"
	"github.com/viant/nearest/index/bruteforce"
	"github.com/viant/nearest/internal/config"
	"github.com/viant/nearest/persist"
	"github.com/viant/nearest/vector"
)

// location names one stored index: a backend kind, where it lives and, for
// sqlite and badger, the index name inside the store.
type location struct {
	Backend string
	Index   string
	Name    string
}

func (a *app) location() location {
	return location{Backend: a.cfg.Backend, Index: a.cfg.Index, Name: a.cfg.Name}
}

func (l location) String() string {
	if l.Backend == config.BackendFile {
		return l.Index
	}
	return l.Backend + ":" + l.Index + "#" + l.Name
}

// open returns a backend for l and a function releasing whatever it holds.
func (a *app) open(ctx context.Context, l location) (persist.Backend, func(), error) {
	switch l.Backend {
	case config.BackendFile:
		f := persist.NewFile(l.Index)
		f.Logger = a.logger
		return f, func() {}, nil
	case config.BackendSQLite:
		db, err := engine.Open(l.Index)
		if err != nil {
			return nil, nil, errs.Wrap(err, errs.CodePersistReadFailure, "opening sqlite "+l.Index, errs.FieldPath(l.Index))
		}
		s, err := persist.NewSQLite(ctx, db, l.Name)
		if err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		s.Logger = a.logger
		return s, func() { _ = db.Close() }, nil
	case config.BackendBadger:
		db, err := persist.OpenBadger(l.Index, false, a.logger)
		if err != nil {
			return nil, nil, err
		}
		b, err := persist.NewBadger(db, l.Name)
		if err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		b.Logger = a.logger
		return b, func() { _ = db.Close() }, nil
	}
	return nil, nil, errs.New(errs.CodeConfigInvalid, "unknown backend "+l.Backend, errs.Field("backend", l.Backend))
}

// load restores the configured index. When it does not exist yet and
// create is set, an empty index bound to the configured metric is returned.
func (a *app) load(ctx context.Context, b persist.Backend, create bool) (*bruteforce.Index, error) {
	idx, err := persist.LoadIndex(ctx, b, bruteforce.WithLogger(a.logger))
	if err == nil {
		return idx, nil
	}
	if create && errs.IsNotFound(err) {
		return bruteforce.New(a.cfg.Metric, bruteforce.WithLogger(a.logger))
	}
	return nil, err
}

// nearest runs the query inside the database for sqlite and against the
// loaded index otherwise.
func (a *app) nearest(ctx context.Context, b persist.Backend, query vector.Vector) ([]index.Match, error) {
	if s, ok := b.(*persist.SQLite); ok {
		return s.Nearest(ctx, query, a.cfg.K)
	}
	idx, err := a.load(ctx, b, false)
	if err != nil {
		return nil, err
	}
	return idx.QueryMatches(query, a.cfg.K)
}

// parseVector reads components from args. Each argument may hold several
// values separated by commas or spaces; an optional surrounding [] is
// ignored.
func parseVector(args []string) (vector.Vector, error) {
	var vec vector.Vector
	for _, arg := range args {
		arg = strings.Trim(strings.TrimSpace(arg), "[]")
		for _, field := range strings.FieldsFunc(arg, func(r rune) bool { return r == ',' || r == ' ' || r == '\t' }) {
			f, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, errs.Wrap(err, errs.CodeConfigInvalid, "invalid vector component "+strconv.Quote(field))
			}
			vec = append(vec, f)
		}
	}
	if len(vec) == 0 {
		return nil, errs.New(errs.CodeEmptyVector, "vector has no components")
	}
	return vec, nil
}

// diskSize reports the bytes used by a file or, for directories, every file
// below it.
func diskSize(path string) (uint64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	if !info.IsDir() {
		return uint64(info.Size()), nil
	}
	var total uint64
	err = filepath.WalkDir(path, func(_ string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		fi, err := d.Info()
		if err != nil {
			return err
		}
		total += uint64(fi.Size())
		return nil
	})
	return total, err
}
