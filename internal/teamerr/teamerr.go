// Package teamerr defines Teamarr's error taxonomy: a small set of typed
// categories that every outbound call and pipeline stage classifies its
// failures into, so the orchestrator can decide whether to abort a run,
// skip a record, or retry.
package teamerr

import (
	"errors"
	"fmt"
	"sort"
)

// Kind categorizes a failure for propagation-policy purposes.
type Kind string

const (
	KindAuth            Kind = "auth"
	KindNetwork         Kind = "network"
	KindValidation      Kind = "validation"
	KindUpstreamState   Kind = "upstream_state"
	KindNotFound        Kind = "not_found"
	KindCacheContention Kind = "cache_contention"
	KindFatalConfig     Kind = "fatal_config"
)

// Error is a categorized, wrapped error. Most construction goes through the
// Kind-specific constructors below rather than building one directly.
type Error struct {
	Kind    Kind
	Message string
	Fields  map[string][]string // parsed validation field errors, if any
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is reports whether err is a *Error of the given kind.
func Is(err error, kind Kind) bool {
	var te *Error
	if errors.As(err, &te) {
		return te.Kind == kind
	}
	return false
}

func newErr(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

func Auth(cause error, format string, args ...any) *Error {
	return newErr(KindAuth, cause, format, args...)
}

func Network(cause error, format string, args ...any) *Error {
	return newErr(KindNetwork, cause, format, args...)
}

// Validation builds a validation error from a parsed {field: [messages]}
// shape, flattening it into a single human-readable message as well.
func Validation(fields map[string][]string) *Error {
	msg := flattenFields(fields)
	return &Error{Kind: KindValidation, Message: msg, Fields: fields}
}

func UpstreamState(cause error, format string, args ...any) *Error {
	return newErr(KindUpstreamState, cause, format, args...)
}

func NotFound(format string, args ...any) *Error {
	return newErr(KindNotFound, nil, format, args...)
}

func CacheContention(cause error, format string, args ...any) *Error {
	return newErr(KindCacheContention, cause, format, args...)
}

func FatalConfig(format string, args ...any) *Error {
	return newErr(KindFatalConfig, nil, format, args...)
}

// flattenFields turns {"username": ["required"], "password": ["too short"]}
// into "username: required; password: too short".
func flattenFields(fields map[string][]string) string {
	if len(fields) == 0 {
		return "validation error"
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := ""
	for i, k := range keys {
		if i > 0 {
			out += "; "
		}
		out += k + ": "
		for j, m := range fields[k] {
			if j > 0 {
				out += ", "
			}
			out += m
		}
	}
	return out
}
