package analysis

import (
	"errors"
	"fmt"
)

// Kind classifies an error into a stable, machine readable category.
type Kind string

const (
	KindValidation Kind = "validation"
	KindNotFound   Kind = "not_found"
	KindForbidden  Kind = "forbidden"
	KindConflict   Kind = "conflict"
	KindUpstream   Kind = "upstream"
	KindInternal   Kind = "internal"
)

// Stable error codes returned to clients.
const (
	CodeInvalidType            = "invalid_type"
	CodeMissingPropertyAddress = "missing_property_address"
	CodeInvalidInput           = "invalid_input"
	CodeTypeImmutable          = "type_immutable"
	CodeVersionIndexOutOfRange = "version_index_out_of_range"
	CodeRestoreNotAllowed      = "restore_not_allowed"
	CodeAIInsightNotAllowed    = "ai_insight_not_allowed"
	CodeExportNotAllowed       = "export_not_allowed"
	CodeBulkLimitExceeded      = "bulk_limit_exceeded"
	CodeCompareLimitExceeded   = "compare_limit_exceeded"
	CodeNoAnalyses             = "no_analyses"
	CodeUnsupportedFormat      = "unsupported_format"
	CodeDigestNotAllowed       = "digest_not_allowed"
	CodeShareNotAllowed        = "share_not_allowed"
	CodeAnalysisNotFound       = "analysis_not_found"
	CodeShareNotFound          = "share_not_found"
	CodeStoreFailure           = "store_failure"
	CodeAIFailure              = "ai_failure"
	CodeAIQuotaExceeded        = "ai_quota_exceeded"
	CodeArtifactUploadFailed   = "artifact_upload_failed"
)

// Error carries a Kind, a stable Code and a human message. Err is the cause, if any.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on Kind and Code so callers can compare against a template error.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Kind == t.Kind && (t.Code == "" || e.Code == t.Code)
}

func newError(kind Kind, code, msg string, cause error) *Error {
	return &Error{Kind: kind, Code: code, Message: msg, Err: cause}
}

func Validation(code, msg string) *Error { return newError(KindValidation, code, msg, nil) }

func NotFound(code, msg string) *Error { return newError(KindNotFound, code, msg, nil) }

func Forbidden(code, msg string) *Error { return newError(KindForbidden, code, msg, nil) }

func Conflict(code, msg string) *Error { return newError(KindConflict, code, msg, nil) }

// Upstream wraps a failing collaborator (store, AI, object storage).
func Upstream(code, msg string, cause error) *Error {
	return newError(KindUpstream, code, msg, cause)
}

// Templates for errors.Is checks.
var (
	ErrValidation = &Error{Kind: KindValidation}
	ErrNotFound   = &Error{Kind: KindNotFound}
	ErrForbidden  = &Error{Kind: KindForbidden}
	ErrConflict   = &Error{Kind: KindConflict}
	ErrUpstream   = &Error{Kind: KindUpstream}
)

// KindOf returns the Kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// CodeOf returns the Code of the first *Error in err's chain, or "".
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
