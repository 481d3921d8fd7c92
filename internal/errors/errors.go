package errors

import (
	"errors"
	"fmt"
	"net/http"

	pkgerrors "github.com/pkg/errors"
)

// Code is the stable machine readable identifier sent to callers in the "error" field.
type Code string

// Request errors (400)
const (
	CodeInvalidScope             Code = "invalid_scope"
	CodeInvalidRedirectURI       Code = "invalid_redirect_uri"
	CodeInvalidResponseType      Code = "invalid_response_type"
	CodeInvalidCodeChallenge     Code = "invalid_code_challenge_method"
	CodeInvalidAuthorizationCode Code = "invalid_authorization_code"
	CodeInvalidCode              Code = "invalid_code"
	CodePayloadMalformed         Code = "code_payload_malformed"
	CodeUnsupportedGrantType     Code = "unsupported_grant_type"
	CodeMissingRefreshToken      Code = "missing_refresh_token"
	CodeUnverifiedEmail          Code = "unverified_email"
	CodeSuspendedUser            Code = "suspended_user"
	CodeInvalidRequest           Code = "invalid_request"
)

// Authentication errors (401)
const (
	CodeInvalidCredentials           Code = "invalid_credentials"
	CodeInvalidClient                Code = "invalid_client"
	CodeInvalidRefreshToken          Code = "invalid_refresh_token"
	CodeInvalidRefreshTokenForClient Code = "invalid_refresh_token_for_client"
	CodeRefreshTokenExpired          Code = "refresh_token_expired"
	CodeUnauthorizedAction           Code = "unauthorized_action"
)

// Token signature errors (401)
const (
	CodeTokenSignatureInvalid Code = "token_signature_invalid"
	CodeTokenExpired          Code = "token_expired"
	CodeTokenMalformed        Code = "token_malformed"
	CodeJWKMalformed          Code = "jwk_malformed"
	CodeAlgorithmNotAllowed   Code = "alg_not_allowed"
	CodeInvalidAudience       Code = "invalid_audience"
	CodeInvalidIssuer         Code = "invalid_issuer"
)

// Not found errors (404)
const (
	CodeInvalidUser    Code = "invalid_user"
	CodeInvalidSession Code = "invalid_session"
)

// Internal errors (500)
const (
	CodeFailedQuery             Code = "failed_query"
	CodeRedisSetFailed          Code = "redis_set_failed"
	CodeRedisGetFailed          Code = "redis_get_failed"
	CodeKeyCreationFailed       Code = "key_creation_failed"
	CodeEncryptionFailed        Code = "encryption_failed"
	CodeDecryptionFailed        Code = "decryption_failed"
	CodeKeyPairGenerationFailed Code = "key_pair_generation_failed"
	CodeJSONParseError          Code = "json_parse_error"
	CodeCacheFailed             Code = "cache_failed"
	CodeInvalidKey              Code = "invalid_key"
	CodeInternal                Code = "internal_error"
)

// Sentinels returned by repositories. Services translate them into coded errors.
var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
)

// Error is the single error type crossing service boundaries.
// Err keeps the cause, with a stack, for diagnostics outside production.
type Error struct {
	Code    Code
	Message string
	Status  int
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an error with an explicit HTTP status.
func New(code Code, status int, message string) *Error {
	return &Error{Code: code, Message: message, Status: status}
}

// Wrap attaches a cause to a new coded error. The cause is given a stack trace if it has none.
func Wrap(err error, code Code, status int, message string) *Error {
	if err != nil {
		var st interface{ StackTrace() pkgerrors.StackTrace }
		if !errors.As(err, &st) {
			err = pkgerrors.WithStack(err)
		}
	}
	return &Error{Code: code, Message: message, Status: status, Err: err}
}

func BadRequest(code Code, message string) *Error {
	return New(code, http.StatusBadRequest, message)
}

func Unauthorized(code Code, message string) *Error {
	return New(code, http.StatusUnauthorized, message)
}

func NotFound(code Code, message string) *Error {
	return New(code, http.StatusNotFound, message)
}

// Internal wraps a lower level failure as a 500.
func Internal(err error, code Code, message string) *Error {
	return Wrap(err, code, http.StatusInternalServerError, message)
}

// From returns err as a coded error. Errors that are not already coded become internal_error.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Internal(err, CodeInternal, "internal server error")
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
