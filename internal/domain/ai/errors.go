package ai

import "errors"

// ErrQuotaExceeded indicates the AI provider returned a quota/limit error (HTTP 429 or similar).
var ErrQuotaExceeded = errors.New("ai quota exceeded")

// ErrEmptyResponse is returned when the provider answers without usable content.
var ErrEmptyResponse = errors.New("ai returned empty response")
