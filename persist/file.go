package persist

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/viant/nearest/errs"
	"github.com/viant/nearest/vector"
)

// File is a Backend that keeps one snapshot per file.
type File struct {
	Path   string
	Codec  Codec
	Logger zerolog.Logger
}

// NewFile returns a File backend for path with the codec implied by its
// extension.
func NewFile(path string) *File {
	return &File{Path: path, Codec: CodecFor(path), Logger: zerolog.Nop()}
}

// Save encodes snap and writes it to a temporary sibling file that is then
// renamed over Path.
func (f *File) Save(_ context.Context, snap *vector.Snapshot) error {
	data, err := f.Codec.Marshal(snap)
	if err != nil {
		return errs.With(err, errs.FieldPath(f.Path))
	}
	tmp, err := os.CreateTemp(filepath.Dir(f.Path), "."+filepath.Base(f.Path)+".*")
	if err != nil {
		return errs.Wrap(err, errs.CodePersistWriteFailure, "persist: creating "+f.Path, errs.FieldPath(f.Path))
	}
	defer os.Remove(tmp.Name())
	if _, err = tmp.Write(data); err == nil {
		err = tmp.Close()
	} else {
		_ = tmp.Close()
	}
	if err == nil {
		err = os.Rename(tmp.Name(), f.Path)
	}
	if err != nil {
		return errs.Wrap(err, errs.CodePersistWriteFailure, "persist: writing "+f.Path, errs.FieldPath(f.Path))
	}
	f.Logger.Info().Str("path", f.Path).Str("format", f.Codec.Name()).Int("count", len(snap.Vectors)).Msg("index saved")
	return nil
}

// Load reads and decodes Path.
func (f *File) Load(_ context.Context) (*vector.Snapshot, error) {
	data, err := os.ReadFile(f.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, errs.Wrap(err, errs.CodePersistNotFound, "persist: no index at "+f.Path, errs.FieldPath(f.Path))
	}
	if err != nil {
		return nil, errs.Wrap(err, errs.CodePersistReadFailure, "persist: reading "+f.Path, errs.FieldPath(f.Path))
	}
	snap, err := f.Codec.Unmarshal(data)
	if err != nil {
		return nil, errs.With(err, errs.FieldPath(f.Path))
	}
	if err := validate(snap, f.Path); err != nil {
		return nil, err
	}
	f.Logger.Info().Str("path", f.Path).Str("format", f.Codec.Name()).Int("count", len(snap.Vectors)).Msg("index loaded")
	return snap, nil
}
