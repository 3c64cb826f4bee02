package domain

import (
	"fmt"

	"github.com/pkg/errors"
)

type Kind string

const (
	KindNotFound       Kind = "NOT_FOUND"
	KindInvalidInput   Kind = "INVALID_INPUT"
	KindRenderFailure  Kind = "RENDER_FAILURE"
	KindStorageFailure Kind = "STORAGE_FAILURE"
	KindTimeout        Kind = "TIMEOUT"
	KindInternal       Kind = "INTERNAL"
)

// AppError carries a user-facing message, the error kind used for HTTP
// mapping and the low-level cause kept for diagnostics.
type AppError struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
	Cause   error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Cause }

func New(kind Kind, message string) error {
	return &AppError{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, cause error) error {
	return &AppError{Kind: kind, Message: message, Cause: cause}
}

func NotFound(msg string) error     { return New(KindNotFound, msg) }
func InvalidInput(msg string) error { return New(KindInvalidInput, msg) }

func RenderFailure(msg string, cause error) error  { return Wrap(KindRenderFailure, msg, cause) }
func StorageFailure(msg string, cause error) error { return Wrap(KindStorageFailure, msg, cause) }
func Timeout(msg string, cause error) error        { return Wrap(KindTimeout, msg, cause) }

var (
	ErrApplicantNotFound   = NotFound("Usuario no encontrado.")
	ErrCertificateNotFound = NotFound("Certificado no encontrado.")
	ErrCodeRequired        = InvalidInput("Código de certificado requerido.")
	ErrInvalidPayload      = InvalidInput("Datos del QR no válidos.")
)

// KindOf returns the kind of the first AppError in the chain, KindInternal
// when there is none.
func KindOf(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// MessageOf returns the user-facing message of err.
func MessageOf(err error, fallback string) string {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	return fallback
}
