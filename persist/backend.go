package persist

import (
	"context"

	"github.com/viant/nearest/errs"
	"github.com/viant/nearest/index/bruteforce"
	"github.com/viant/nearest/vector"
)

// Backend persists index snapshots.
type Backend interface {
	// Save replaces whatever the backend holds with snap.
	Save(ctx context.Context, snap *vector.Snapshot) error

	// Load returns the stored snapshot. A backend that holds nothing returns
	// an error with code errs.CodePersistNotFound.
	Load(ctx context.Context) (*vector.Snapshot, error)
}

// SaveIndex writes a snapshot of idx to b.
func SaveIndex(ctx context.Context, b Backend, idx *bruteforce.Index) error {
	return b.Save(ctx, idx.Snapshot())
}

// LoadIndex restores an index from b.
func LoadIndex(ctx context.Context, b Backend, opts ...bruteforce.Option) (*bruteforce.Index, error) {
	snap, err := b.Load(ctx)
	if err != nil {
		return nil, err
	}
	return bruteforce.FromSnapshot(snap, opts...)
}

// Save writes idx to path, choosing the encoding from the file extension.
func Save(path string, idx *bruteforce.Index) error {
	return SaveIndex(context.Background(), NewFile(path), idx)
}

// Load reads an index previously written by Save.
func Load(path string, opts ...bruteforce.Option) (*bruteforce.Index, error) {
	return LoadIndex(context.Background(), NewFile(path), opts...)
}

// validate checks the structure every decoded snapshot must have.
func validate(snap *vector.Snapshot, source string) error {
	if _, err := vector.ParseMetric(snap.MetricName); err != nil {
		return errs.With(err, errs.FieldPath(source))
	}
	if snap.Vectors == nil {
		return errs.New(errs.CodePersistInvalidData, "persist: snapshot without vectors in "+source, errs.FieldPath(source))
	}
	for id, vec := range snap.Vectors {
		if len(vec) == 0 {
			return errs.New(errs.CodePersistInvalidData, "persist: empty vector for id "+id+" in "+source,
				errs.FieldPath(source), errs.FieldID(id))
		}
	}
	return nil
}
