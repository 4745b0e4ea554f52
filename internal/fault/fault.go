// Copyright 2026 The AuthGrid Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package fault defines the closed error taxonomy shared by every service.
// Components classify failures here; only the transport boundary maps kinds
// to protocol status codes.
package fault

import (
	"errors"
	"fmt"
)

// Kind classifies a failure. The set is closed: every operation that can
// fail returns exactly one of these kinds.
type Kind int

const (
	// KindInternal covers store failures and anything not otherwise
	// classified. Its message is never surfaced verbatim to callers.
	KindInternal Kind = iota

	// KindUnauthorized means the credential is missing, invalid, or expired.
	KindUnauthorized

	// KindForbidden means the credential is valid but lacks the required
	// role, permission, or ownership.
	KindForbidden

	// KindNotFound means a referenced identity, role, permission, or edge
	// does not exist.
	KindNotFound

	// KindConflict means a uniqueness violation or duplicate edge creation.
	KindConflict

	// KindBadRequest means malformed input: pattern mismatch, empty
	// required batch, policy violation.
	KindBadRequest
)

// String returns the stable name of the kind.
func (k Kind) String() string {
	switch k {
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindBadRequest:
		return "bad_request"
	default:
		return "internal"
	}
}

// Error is a classified failure with a human-readable message and an
// optional wrapped cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports kind equality so sentinel-style comparisons work through
// errors.Is.
func (e *Error) Is(target error) bool {
	var fe *Error
	if errors.As(target, &fe) {
		return fe.Kind == e.Kind
	}
	return false
}

// New creates a classified error.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf creates a classified error with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap classifies an underlying error. A nil err yields nil.
func Wrap(err error, kind Kind, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Message: message, Err: err}
}

// Unauthorized builds a KindUnauthorized error.
func Unauthorized(message string) *Error { return New(KindUnauthorized, message) }

// Forbidden builds a KindForbidden error.
func Forbidden(message string) *Error { return New(KindForbidden, message) }

// NotFound builds a KindNotFound error.
func NotFound(message string) *Error { return New(KindNotFound, message) }

// Conflict builds a KindConflict error.
func Conflict(message string) *Error { return New(KindConflict, message) }

// BadRequest builds a KindBadRequest error.
func BadRequest(message string) *Error { return New(KindBadRequest, message) }

// Internal wraps an infrastructure failure. The wrapped detail stays out of
// the public message.
func Internal(err error, message string) *Error {
	return &Error{Kind: KindInternal, Message: message, Err: err}
}

// KindOf extracts the kind from err. Unclassified errors are KindInternal.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// MessageOf returns the public message for err. Internal failures collapse
// to a generic message so store detail never leaks to callers.
func MessageOf(err error) string {
	var fe *Error
	if errors.As(err, &fe) {
		if fe.Kind == KindInternal {
			return "internal server error"
		}
		return fe.Message
	}
	return "internal server error"
}
