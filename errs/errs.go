// Package errs defines the coded errors returned by this module. Every error
// carries a dotted area.operation.reason code plus structured fields so
// callers can tell configuration defects, precondition violations and I/O
// failures apart without matching on messages.
package errs

import (
	"fmt"
	"strings"

	"github.com/samber/oops"
)

// Code is the machine-readable identifier for an error.
type Code string

const (
	CodeMetricUnknown Code = "metric.select.unknown"
	CodeConfigInvalid Code = "config.validate.invalid_value"

	CodeDimensionMismatch Code = "vector.distance.dimension_mismatch"
	CodeEmptyVector       Code = "index.insert.empty_vector"
	CodeBatchMismatch     Code = "index.insert.batch_mismatch"
	CodeInvalidK          Code = "index.query.invalid_k"

	CodePersistReadFailure  Code = "persist.read.failure"
	CodePersistWriteFailure Code = "persist.write.failure"
	CodePersistInvalidData  Code = "persist.decode.invalid_format"
	CodePersistNotFound     Code = "persist.load.not_found"
)

// Attr is a structured key/value attached to an error.
type Attr struct {
	Key   string
	Value any
}

// Field creates a structured error field.
func Field(key string, value any) Attr {
	return Attr{Key: key, Value: value}
}

func FieldMetric(name string) Attr { return Field("metric", name) }

func FieldPath(path string) Attr { return Field("path", path) }

func FieldID(id string) Attr { return Field("id", id) }

func New(code Code, msg string, fields ...Attr) error {
	return oops.Code(code).With(flatten(fields)...).New(msg)
}

func Wrap(err error, code Code, msg string, fields ...Attr) error {
	if err == nil {
		return nil
	}
	return oops.Code(code).With(flatten(fields)...).Wrapf(err, "%s", msg)
}

// With attaches fields to err keeping its code.
func With(err error, fields ...Attr) error {
	if err == nil {
		return nil
	}
	return oops.Code(CodeOf(err)).With(flatten(fields)...).Wrap(err)
}

func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}
	switch code := oopsErr.Code().(type) {
	case Code:
		return code
	case string:
		return Code(code)
	default:
		return Code(fmt.Sprintf("%v", code))
	}
}

func FieldsOf(err error) map[string]any {
	if err == nil {
		return nil
	}
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return nil
	}
	return oopsErr.Context()
}

func HasCode(err error, code Code) bool {
	return err != nil && CodeOf(err) == code
}

// IsConfiguration reports an unknown metric name or an invalid setting.
func IsConfiguration(err error) bool {
	code := CodeOf(err)
	return code == CodeMetricUnknown || area(code) == "config"
}

// IsPrecondition reports a caller or data-integrity defect: mismatched
// vector lengths, empty vectors, malformed arguments.
func IsPrecondition(err error) bool {
	switch CodeOf(err) {
	case CodeDimensionMismatch, CodeEmptyVector, CodeBatchMismatch, CodeInvalidK:
		return true
	}
	return false
}

// IsIO reports unreadable, unwritable or malformed persisted data.
func IsIO(err error) bool {
	return area(CodeOf(err)) == "persist"
}

func IsNotFound(err error) bool {
	return strings.HasSuffix(string(CodeOf(err)), ".not_found")
}

func flatten(fields []Attr) []any {
	pairs := make([]any, 0, len(fields)*2)
	for _, field := range fields {
		if field.Key == "" {
			continue
		}
		pairs = append(pairs, field.Key, field.Value)
	}
	return pairs
}

func area(code Code) string {
	raw := string(code)
	if idx := strings.Index(raw, "."); idx > 0 {
		return raw[:idx]
	}
	return raw
}
