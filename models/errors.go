package models

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"strings"
)

// Error codes used by the fetch layer and in API responses.
const (
	ErrCodeInvalidURL   = "INVALID_URL"
	ErrCodeConnection   = "CONNECTION_ERROR"
	ErrCodeTimeout      = "TIMEOUT"
	ErrCodeHTTP         = "HTTP_ERROR"
	ErrCodeRenderLaunch = "RENDER_LAUNCH_FAILED"
	ErrCodeNavigation   = "NAVIGATION_FAILED"

	// API-only codes.
	ErrCodeInvalidInput = "INVALID_INPUT"
	ErrCodeInternal     = "INTERNAL_ERROR"
)

// ErrorDetail is the structured error in API responses.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// FetchError is returned when a page could not be obtained at all.
// It implements the error interface and supports error wrapping via Unwrap.
type FetchError struct {
	Code       string
	Message    string
	StatusCode int   // upstream status, HTTP_ERROR only
	Err        error // wrapped original error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// NewFetchError creates a new FetchError.
func NewFetchError(code, message string, err error) *FetchError {
	return &FetchError{Code: code, Message: message, Err: err}
}

// ToDetail converts an internal error to an API-facing ErrorDetail.
func (e *FetchError) ToDetail() *ErrorDetail {
	return &ErrorDetail{Code: e.Code, Message: e.Message}
}

// IsCode reports whether err is a FetchError carrying code.
func IsCode(err error, code string) bool {
	var fe *FetchError
	return errors.As(err, &fe) && fe.Code == code
}

// codeRank orders error codes from least to most specific. When both the
// static fetch and the renderer fail, the caller keeps the higher ranked one.
var codeRank = map[string]int{
	ErrCodeRenderLaunch: 1,
	ErrCodeNavigation:   2,
	ErrCodeConnection:   3,
	ErrCodeTimeout:      4,
	ErrCodeHTTP:         5,
	ErrCodeInvalidURL:   6,
}

// MoreSpecific returns whichever of a and b carries the more specific code.
// A nil or non-FetchError argument loses to a FetchError.
func MoreSpecific(a, b error) error {
	var fa, fb *FetchError
	okA := errors.As(a, &fa)
	okB := errors.As(b, &fb)
	switch {
	case !okA && !okB:
		if a != nil {
			return a
		}
		return b
	case !okA:
		return b
	case !okB:
		return a
	}
	if codeRank[fb.Code] > codeRank[fa.Code] {
		return b
	}
	return a
}

// Classify wraps a raw transport error into a FetchError. Errors that are
// already FetchErrors are returned unchanged.
func Classify(err error, msg string) *FetchError {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return NewFetchError(ErrCodeTimeout, msg+": deadline exceeded", err)
	case errors.Is(err, context.Canceled):
		return NewFetchError(ErrCodeTimeout, msg+": request canceled", err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return NewFetchError(ErrCodeTimeout, msg+": network timeout", err)
	}

	var (
		dnsErr  *net.DNSError
		opErr   *net.OpError
		certErr *tls.CertificateVerificationError
	)
	if errors.As(err, &dnsErr) || errors.As(err, &opErr) || errors.As(err, &certErr) {
		return NewFetchError(ErrCodeConnection, msg+": connection failed", err)
	}

	// utls and some proxies surface plain strings.
	lower := strings.ToLower(err.Error())
	for _, s := range []string{"connection refused", "no such host", "connection reset", "eof", "tls", "handshake"} {
		if strings.Contains(lower, s) {
			return NewFetchError(ErrCodeConnection, msg+": connection failed", err)
		}
	}

	return NewFetchError(ErrCodeConnection, msg, err)
}
