package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Stable machine-readable error codes returned to clients.
const (
	CodeValidation       = "VALIDATION_ERROR"
	CodeSlotUnavailable  = "HORARIO_INDISPONIVEL"
	CodeEmailExists      = "EMAIL_EXISTE"
	CodeConflict         = "CONFLICT"
	CodeNotFound         = "NOT_FOUND"
	CodeUnauthorized     = "UNAUTHORIZED"
	CodeForbidden        = "FORBIDDEN"
	CodeRateLimit        = "RATE_LIMIT"
	CodeMethodNotAllowed = "METHOD_NOT_ALLOWED"
	CodeInternal         = "INTERNAL"

	CodeDoctorNotFound = "MEDICO_NOT_FOUND"
	CodeInvalidSlot    = "HORARIO_INVALIDO"
	CodeInvalidID      = "ID_INVALIDO"

	CodeInvalidCredentials = "CREDENCIAIS_INVALIDAS"
	CodeAccountInactive    = "CONTA_INATIVA"
	CodeEmailNotVerified   = "EMAIL_NAO_VERIFICADO"
	CodeSessionInvalid     = "SESSAO_INVALIDA"
	CodeTokenExpired       = "TOKEN_EXPIRADO"
	CodeTokenNotFound      = "TOKEN_NAO_ENCONTRADO"
	CodeCancelDeadline     = "PRAZO_CANCELAMENTO"
	CodeRescheduleDate     = "DATA_INVALIDA"
	CodeWrongPassword      = "SENHA_INCORRETA"
)

// FieldError describes a single failing field in a submission.
type FieldError struct {
	Campo string `json:"campo"`
	Msg   string `json:"msg"`
}

// AppError is the error type crossing the service/transport boundary.
// Status drives the HTTP response; Code is the stable contract with
// clients and never changes for a given failure mode.
type AppError struct {
	Status  int          `json:"-"`
	Code    string       `json:"code"`
	Message string       `json:"message"`
	Fields  []FieldError `json:"-"`
	Err     error        `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// As unwraps err into an *AppError if possible.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

func Validation(fields []FieldError) *AppError {
	return &AppError{
		Status:  http.StatusUnprocessableEntity,
		Code:    CodeValidation,
		Message: "Dados inválidos.",
		Fields:  fields,
	}
}

// Unprocessable covers single-rule business failures (deadline, weak
// password) that carry their own code instead of per-field detail.
func Unprocessable(code, message string) *AppError {
	return &AppError{Status: http.StatusUnprocessableEntity, Code: code, Message: message}
}

func Conflict(code, message string) *AppError {
	return &AppError{Status: http.StatusConflict, Code: code, Message: message}
}

func SlotUnavailable() *AppError {
	return Conflict(CodeSlotUnavailable, "Horário indisponível. Escolha outro.")
}

func NotFound(message string) *AppError {
	return &AppError{Status: http.StatusNotFound, Code: CodeNotFound, Message: message}
}

func NotFoundCode(code, message string) *AppError {
	return &AppError{Status: http.StatusNotFound, Code: code, Message: message}
}

func Unauthorized(code, message string) *AppError {
	return &AppError{Status: http.StatusUnauthorized, Code: code, Message: message}
}

func Forbidden(code, message string) *AppError {
	return &AppError{Status: http.StatusForbidden, Code: code, Message: message}
}

func BadRequest(code, message string) *AppError {
	return &AppError{Status: http.StatusBadRequest, Code: code, Message: message}
}

func RateLimited(retryAfterMinutes int) *AppError {
	return &AppError{
		Status:  http.StatusTooManyRequests,
		Code:    CodeRateLimit,
		Message: fmt.Sprintf("Muitas tentativas. Aguarde %d minuto(s) e tente novamente.", retryAfterMinutes),
	}
}

func MethodNotAllowed() *AppError {
	return &AppError{
		Status:  http.StatusMethodNotAllowed,
		Code:    CodeMethodNotAllowed,
		Message: "Método não permitido.",
	}
}

// Internal wraps an unexpected failure. The wrapped error is logged
// server-side; the client only ever sees the generic message.
func Internal(err error) *AppError {
	return &AppError{
		Status:  http.StatusInternalServerError,
		Code:    CodeInternal,
		Message: "Erro interno do servidor.",
		Err:     err,
	}
}
