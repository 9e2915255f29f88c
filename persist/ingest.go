package persist

import (
	"fmt"
	"os"
	"strconv"

	"github.com/tidwall/gjson"
	"github.com/viant/nearest/errs"
	"github.com/viant/nearest/index/bruteforce"
	"github.com/viant/nearest/vector"
)

// Ingest parses a JSON object of the form {"id": [1.0, 2.0, ...], ...}.
// Anything else (a non-object root, a non-array value, an empty array or a
// non-numeric element) is a format error. Repeated keys keep the last value.
func Ingest(data []byte) (map[string]vector.Vector, error) {
	if !gjson.ValidBytes(data) {
		return nil, errs.New(errs.CodePersistInvalidData, "persist: ingest input is not valid JSON")
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return nil, errs.New(errs.CodePersistInvalidData, "persist: ingest input must be a JSON object")
	}
	out := make(map[string]vector.Vector)
	var err error
	root.ForEach(func(key, value gjson.Result) bool {
		var vec vector.Vector
		if vec, err = ingestVector(key.String(), value); err != nil {
			return false
		}
		out[key.String()] = vec
		return true
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func ingestVector(id string, value gjson.Result) (vector.Vector, error) {
	if !value.IsArray() {
		return nil, errs.New(errs.CodePersistInvalidData, "persist: value for "+id+" is not an array", errs.FieldID(id))
	}
	elems := value.Array()
	if len(elems) == 0 {
		return nil, errs.New(errs.CodePersistInvalidData, "persist: empty vector for "+id, errs.FieldID(id))
	}
	vec := make(vector.Vector, len(elems))
	for i, el := range elems {
		if el.Type != gjson.Number {
			return nil, errs.New(errs.CodePersistInvalidData,
				fmt.Sprintf("persist: element %d of %s is not a number: %s", i, id, el.Raw), errs.FieldID(id))
		}
		f, err := strconv.ParseFloat(el.Raw, 64)
		if err != nil {
			return nil, errs.Wrap(err, errs.CodePersistInvalidData,
				fmt.Sprintf("persist: element %d of %s", i, id), errs.FieldID(id))
		}
		vec[i] = f
	}
	return vec, nil
}

// IngestFile reads and parses a JSON vector dump.
func IngestFile(path string) (map[string]vector.Vector, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Wrap(err, errs.CodePersistReadFailure, "persist: reading "+path, errs.FieldPath(path))
	}
	vectors, err := Ingest(data)
	if err != nil {
		return nil, errs.With(err, errs.FieldPath(path))
	}
	return vectors, nil
}

// FromJSON builds an index bound to metricName from a JSON vector dump. The
// metric is checked before the file is read.
func FromJSON(metricName, path string, opts ...bruteforce.Option) (*bruteforce.Index, error) {
	idx, err := bruteforce.New(metricName, opts...)
	if err != nil {
		return nil, err
	}
	vectors, err := IngestFile(path)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(vectors))
	vecs := make([]vector.Vector, 0, len(vectors))
	for id, vec := range vectors {
		ids = append(ids, id)
		vecs = append(vecs, vec)
	}
	if err := idx.BatchInsert(ids, vecs); err != nil {
		return nil, err
	}
	return idx, nil
}
