package core

import (
	"errors"
	"fmt"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	SignOnErrorFailedSignIn       = "SIGNON_FAILED_SIGN_IN"
	SignOnErrorNoStoredCredential = "SIGNON_NO_STORED_CREDENTIAL"
	SignOnErrorUndefinedUser      = "SIGNON_UNDEFINED_USER"
	SignOnErrorPermissionDenied   = "SIGNON_PERMISSION_DENIED"
	SignOnErrorInvalidUserData    = "SIGNON_INVALID_USER_DATA"
	SignOnErrorUnexpected         = "SIGNON_UNEXPECTED"
)

// Numeric codes carried by the domain errors. These are stable across
// releases; hosts switch on them.
const (
	CodeFailedSignIn       = 400
	CodeNoStoredCredential = 401
	CodeUndefinedUser      = 401
	CodeInvalidUserData    = 422
	CodeUnexpected         = 500
	CodePermissionDenied   = 501
)

// ProviderCodeNoStoredCredential is the normalized provider code meaning "no
// credential is stored for silent sign-in" (the OIDC login_required code).
// Provider clients map their SDK-native equivalents onto it.
const ProviderCodeNoStoredCredential = "login_required"

// ProviderError carries a provider-specific failure code alongside the human
// description, so the taxonomy can match on Code without parsing messages.
type ProviderError struct {
	Code        string
	Description string
}

func (e *ProviderError) Error() string {
	if e == nil {
		return "provider error"
	}
	code := strings.TrimSpace(e.Code)
	description := strings.TrimSpace(e.Description)
	switch {
	case code == "" && description == "":
		return "provider error"
	case code == "":
		return description
	case description == "":
		return code
	}
	return code + ": " + description
}

// FailedSignIn wraps a raw provider failure as the generic sign-in domain
// error.
func FailedSignIn(cause error) *goerrors.Error {
	if cause == nil {
		return newSignOnError("sign-in failed", goerrors.CategoryAuth, CodeFailedSignIn, SignOnErrorFailedSignIn)
	}
	return goerrors.Wrap(cause, goerrors.CategoryAuth, cause.Error()).
		WithTextCode(SignOnErrorFailedSignIn).
		WithCode(CodeFailedSignIn)
}

// NoStoredCredential reports that silent sign-in found nothing to restore.
// The human message keeps the numeric code prefix hosts historically parse.
func NoStoredCredential(description string) *goerrors.Error {
	description = strings.TrimSpace(description)
	if description == "" {
		description = "no stored credential"
	}
	return newSignOnError(
		fmt.Sprintf("%d: %s", CodeNoStoredCredential, description),
		goerrors.CategoryAuth,
		CodeNoStoredCredential,
		SignOnErrorNoStoredCredential,
	)
}

// UndefinedUser reports a provider response that carried neither a user nor
// an error.
func UndefinedUser() *goerrors.Error {
	return newSignOnError(
		"provider completed sign-in without a user",
		goerrors.CategoryAuth,
		CodeUndefinedUser,
		SignOnErrorUndefinedUser,
	)
}

// PermissionDenied reports a user whose granted scopes satisfy none of the
// required ones.
func PermissionDenied(required []string) *goerrors.Error {
	message := "granted scopes do not satisfy the required scopes"
	if scopes := normalizeScopes(required); len(scopes) > 0 {
		message = fmt.Sprintf("granted scopes do not satisfy the required scopes: %s", strings.Join(scopes, " "))
	}
	return newSignOnError(message, goerrors.CategoryAuthz, CodePermissionDenied, SignOnErrorPermissionDenied)
}

// InvalidUserData reports a provider user that could not be projected into a
// Session.
func InvalidUserData(cause error) *goerrors.Error {
	if cause == nil {
		return newSignOnError("provider user data is invalid", goerrors.CategoryValidation, CodeInvalidUserData, SignOnErrorInvalidUserData)
	}
	return goerrors.Wrap(cause, goerrors.CategoryValidation, "provider user data is invalid").
		WithTextCode(SignOnErrorInvalidUserData).
		WithCode(CodeInvalidUserData)
}

// Unexpected covers failures outside the closed taxonomy, including provider
// contract violations.
func Unexpected(message string) *goerrors.Error {
	message = strings.TrimSpace(message)
	if message == "" {
		message = "An unexpected error occurred"
	}
	return newSignOnError(message, goerrors.CategoryInternal, CodeUnexpected, SignOnErrorUnexpected)
}

// MapProviderFailure converts a raw provider failure into its domain error.
// The provider "no stored credential" code re-maps to NoStoredCredential;
// everything else becomes FailedSignIn wrapping the cause.
func MapProviderFailure(err error) *goerrors.Error {
	if err == nil {
		return nil
	}
	var providerErr *ProviderError
	if errors.As(err, &providerErr) && providerErr != nil {
		if strings.EqualFold(strings.TrimSpace(providerErr.Code), ProviderCodeNoStoredCredential) {
			return NoStoredCredential(providerErr.Description)
		}
	}
	return FailedSignIn(err)
}

func signonErrorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ensureSignOnErrorEnvelope(richErr)
	}

	var providerErr *ProviderError
	if errors.As(err, &providerErr) {
		return MapProviderFailure(err)
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "not registered"):
		return ensureSignOnErrorEnvelope(
			goerrors.New(err.Error(), goerrors.CategoryNotFound).
				WithTextCode(SignOnErrorUnexpected),
		)
	case strings.Contains(msg, "pending auth"):
		return ensureSignOnErrorEnvelope(
			goerrors.New(err.Error(), goerrors.CategoryAuth).
				WithTextCode(SignOnErrorFailedSignIn),
		)
	case strings.Contains(msg, "required"), strings.Contains(msg, "invalid"), strings.Contains(msg, "mismatch"):
		return ensureSignOnErrorEnvelope(
			goerrors.New(err.Error(), goerrors.CategoryBadInput).
				WithTextCode(SignOnErrorInvalidUserData),
		)
	}

	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	return ensureSignOnErrorEnvelope(mapped)
}

func newSignOnError(message string, category goerrors.Category, code int, textCode string) *goerrors.Error {
	return goerrors.New(message, category).
		WithTextCode(textCode).
		WithCode(code)
}

func ensureSignOnErrorEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if err.Code == 0 {
		err.Code = signonCodeForCategory(err.Category)
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = defaultSignOnTextCode(err.Category)
	}
	if err.Category == goerrors.CategoryInternal && strings.TrimSpace(err.Message) == "" {
		err.Message = "An unexpected error occurred"
	}
	return err
}

func defaultSignOnTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return SignOnErrorInvalidUserData
	case goerrors.CategoryAuth:
		return SignOnErrorFailedSignIn
	case goerrors.CategoryAuthz:
		return SignOnErrorPermissionDenied
	default:
		return SignOnErrorUnexpected
	}
}

func signonCodeForCategory(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput:
		return CodeFailedSignIn
	case goerrors.CategoryValidation:
		return CodeInvalidUserData
	case goerrors.CategoryAuth:
		return CodeNoStoredCredential
	case goerrors.CategoryAuthz:
		return CodePermissionDenied
	case goerrors.CategoryNotFound:
		return 404
	default:
		return CodeUnexpected
	}
}
