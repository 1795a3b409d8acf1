package errors

import (
	stdErrors "errors"
	"fmt"
	"sort"
	"strings"
)

type Code string

const (
	CodeValidation    Code = "VALIDATION_ERROR"
	CodeUnauthorized  Code = "UNAUTHORIZED"
	CodeNotFound      Code = "NOT_FOUND"
	CodeConflict      Code = "CONFLICT"
	CodeStateConflict Code = "STATE_CONFLICT"
	CodeStockExceeded Code = "STOCK_EXCEEDED"
	CodeInternal      Code = "INTERNAL_ERROR"
	CodeDependency    Code = "DEPENDENCY_ERROR"
)

// Metadata describes how callers should react to a code.
// Resync means local state must be refreshed from the live subscription
// before the caller tries again.
type Metadata struct {
	Retryable      bool
	Resync         bool
	PublicMessage  string
	DetailsAllowed bool
}

var metadataByCode = map[Code]Metadata{
	CodeValidation: {
		PublicMessage:  "validation failed",
		DetailsAllowed: true,
	},
	CodeUnauthorized: {
		PublicMessage: "authentication required",
	},
	CodeNotFound: {
		Resync:        true,
		PublicMessage: "resource not found",
	},
	CodeConflict: {
		PublicMessage: "conflict detected",
	},
	CodeStateConflict: {
		Resync:         true,
		PublicMessage:  "state transition disallowed",
		DetailsAllowed: true,
	},
	CodeStockExceeded: {
		PublicMessage:  "not enough stock",
		DetailsAllowed: true,
	},
	CodeInternal: {
		Retryable:     true,
		PublicMessage: "internal error",
	},
	CodeDependency: {
		Retryable:      true,
		Resync:         true,
		PublicMessage:  "remote store unavailable",
		DetailsAllowed: true,
	},
}

func MetadataFor(code Code) Metadata {
	if meta, ok := metadataByCode[code]; ok {
		return meta
	}
	return metadataByCode[CodeInternal]
}

type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

func Wrap(code Code, err error, message string) *Error {
	if err == nil {
		return New(code, message)
	}
	return &Error{code: code, message: message, cause: err}
}

// FieldErrors maps a field name to a short human readable violation.
type FieldErrors map[string]string

// Fields returns the sorted field names.
func (f FieldErrors) Fields() []string {
	out := make([]string, 0, len(f))
	for k := range f {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Validation builds a VALIDATION_ERROR naming every offending field.
func Validation(fields FieldErrors) *Error {
	names := fields.Fields()
	msg := "validation failed"
	if len(names) > 0 {
		msg = fmt.Sprintf("invalid fields: %s", strings.Join(names, ", "))
	}
	return New(CodeValidation, msg).WithDetails(fields)
}

// StockExceeded reports that only limit units can be purchased.
func StockExceeded(limit int) *Error {
	return New(CodeStockExceeded, fmt.Sprintf("only %d in stock", limit)).WithDetails(map[string]any{
		"limit": limit,
	})
}

// StockLimit extracts the limit carried by a STOCK_EXCEEDED error.
func StockLimit(err error) (int, bool) {
	typed := As(err)
	if typed == nil || typed.Code() != CodeStockExceeded {
		return 0, false
	}
	details, ok := typed.Details().(map[string]any)
	if !ok {
		return 0, false
	}
	limit, ok := details["limit"].(int)
	return limit, ok
}

// FieldsOf returns the field errors attached to a VALIDATION_ERROR.
func FieldsOf(err error) FieldErrors {
	typed := As(err)
	if typed == nil || typed.Code() != CodeValidation {
		return nil
	}
	fields, _ := typed.Details().(FieldErrors)
	return fields
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

func (e *Error) WithDetails(details any) *Error {
	if e == nil {
		return nil
	}
	e.details = details
	return e
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.code, e.message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

func As(err error) *Error {
	if err == nil {
		return nil
	}
	var typed *Error
	if stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

// CodeOf returns the code for err, defaulting to INTERNAL_ERROR for untyped errors.
func CodeOf(err error) Code {
	if typed := As(err); typed != nil {
		return typed.Code()
	}
	return CodeInternal
}

// NeedsResync reports whether local state must be refreshed before retrying.
func NeedsResync(err error) bool {
	if err == nil {
		return false
	}
	return MetadataFor(CodeOf(err)).Resync
}
