package persist

import (
	"encoding/json"
	"path/filepath"
	"strings"

	"github.com/viant/nearest/errs"
	"github.com/viant/nearest/vector"
	"github.com/vmihailenco/msgpack/v5"
)

// Codec converts snapshots to and from bytes.
type Codec interface {
	Name() string
	Marshal(snap *vector.Snapshot) ([]byte, error)
	Unmarshal(data []byte) (*vector.Snapshot, error)
}

var (
	// JSON encodes {"metric_name": ..., "vectors": {id: [...]}}. Floats are
	// written in shortest round-trip form; NaN and infinities are rejected.
	JSON Codec = jsonCodec{}

	// Msgpack encodes the same record in MessagePack, keeping every float64
	// bit pattern including NaN and infinities.
	Msgpack Codec = msgpackCodec{}
)

// CodecFor picks a codec from a file name: .msgpack, .mpk and .nnb select
// Msgpack, anything else JSON.
func CodecFor(path string) Codec {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".msgpack", ".mpk", ".nnb":
		return Msgpack
	}
	return JSON
}

// CodecByName resolves "json" or "msgpack".
func CodecByName(name string) (Codec, error) {
	switch name {
	case "json":
		return JSON, nil
	case "msgpack":
		return Msgpack, nil
	}
	return nil, errs.New(errs.CodeConfigInvalid, "persist: unknown format "+name, errs.Field("format", name))
}

type jsonCodec struct{}

type jsonRecord struct {
	MetricName *string                  `json:"metric_name"`
	Vectors    map[string]vector.Vector `json:"vectors"`
}

func (jsonCodec) Name() string { return "json" }

func (jsonCodec) Marshal(snap *vector.Snapshot) ([]byte, error) {
	data, err := json.Marshal(snap)
	if err != nil {
		return nil, errs.Wrap(err, errs.CodePersistWriteFailure, "persist: encoding json snapshot")
	}
	return data, nil
}

func (jsonCodec) Unmarshal(data []byte) (*vector.Snapshot, error) {
	var rec jsonRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, errs.Wrap(err, errs.CodePersistInvalidData, "persist: decoding json snapshot")
	}
	if rec.MetricName == nil {
		return nil, errs.New(errs.CodePersistInvalidData, "persist: json snapshot without metric_name")
	}
	return &vector.Snapshot{MetricName: *rec.MetricName, Vectors: rec.Vectors}, nil
}

type msgpackCodec struct{}

func (msgpackCodec) Name() string { return "msgpack" }

func (msgpackCodec) Marshal(snap *vector.Snapshot) ([]byte, error) {
	data, err := msgpack.Marshal(snap)
	if err != nil {
		return nil, errs.Wrap(err, errs.CodePersistWriteFailure, "persist: encoding msgpack snapshot")
	}
	return data, nil
}

func (msgpackCodec) Unmarshal(data []byte) (*vector.Snapshot, error) {
	var snap vector.Snapshot
	if err := msgpack.Unmarshal(data, &snap); err != nil {
		return nil, errs.Wrap(err, errs.CodePersistInvalidData, "persist: decoding msgpack snapshot")
	}
	return &snap, nil
}
