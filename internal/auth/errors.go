package auth

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies an auth failure.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindMissingHeaders
	KindProviderRejected
	KindProviderUnavailable
	KindTenantNotFound
	KindStoreFailure
	KindCounterStoreUnavailable
	KindInvalidSecret
	KindNotAuthenticated
)

var kindNames = map[Kind]string{
	KindUnknown:                 "unknown",
	KindMissingHeaders:          "missing_headers",
	KindProviderRejected:        "provider_rejected",
	KindProviderUnavailable:     "provider_unavailable",
	KindTenantNotFound:          "tenant_not_found",
	KindStoreFailure:            "store_failure",
	KindCounterStoreUnavailable: "counter_store_unavailable",
	KindInvalidSecret:           "invalid_secret",
	KindNotAuthenticated:        "not_authenticated",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return kindNames[KindUnknown]
}

// Error is a tagged auth failure. TenantID and UserID are optional context
// for logs; they are never shown to clients.
type Error struct {
	Kind     Kind
	TenantID uint64
	UserID   string
	Err      error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("auth: ")
	b.WriteString(e.Kind.String())
	if e.TenantID != 0 {
		fmt.Fprintf(&b, " tenant=%d", e.TenantID)
	}
	if e.UserID != "" {
		fmt.Fprintf(&b, " user=%s", e.UserID)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so errors.Is(err, ErrStoreFailure)
// holds regardless of the attached context.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrMissingHeaders          = &Error{Kind: KindMissingHeaders}
	ErrProviderRejected        = &Error{Kind: KindProviderRejected}
	ErrProviderUnavailable     = &Error{Kind: KindProviderUnavailable}
	ErrTenantNotFound          = &Error{Kind: KindTenantNotFound}
	ErrStoreFailure            = &Error{Kind: KindStoreFailure}
	ErrCounterStoreUnavailable = &Error{Kind: KindCounterStoreUnavailable}
	ErrInvalidSecret           = &Error{Kind: KindInvalidSecret}
	ErrNotAuthenticated        = &Error{Kind: KindNotAuthenticated}
)

// KindOf extracts the kind of an auth error, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func newError(kind Kind, tenantID uint64, userID string, cause error) *Error {
	return &Error{Kind: kind, TenantID: tenantID, UserID: userID, Err: cause}
}
