package httputil

import (
	stderrors "errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"github.com/anestconsulta/booking-api/pkg/errors"
)

// ErrorBody is the envelope carried by every error response.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse is the wire shape for failures: a stable code, a human
// message and, for validation failures, the per-field breakdown.
type ErrorResponse struct {
	OK     bool                `json:"ok"`
	Error  ErrorBody           `json:"error"`
	Campos []errors.FieldError `json:"campos,omitempty"`
}

// RespondWithError maps an error onto the client contract. Anything
// that is not an *AppError is treated as an unexpected internal failure:
// logged with its cause, reported with the generic message only.
func RespondWithError(c *gin.Context, err error) {
	appErr, ok := errors.As(err)
	if !ok {
		appErr = errors.Internal(err)
	}

	if appErr.Status >= http.StatusInternalServerError {
		log.Error().
			Err(appErr.Err).
			Str("path", c.Request.URL.Path).
			Str("method", c.Request.Method).
			Str("client_ip", c.ClientIP()).
			Msg("request failed")
	}

	c.AbortWithStatusJSON(appErr.Status, ErrorResponse{
		OK:     false,
		Error:  ErrorBody{Code: appErr.Code, Message: appErr.Message},
		Campos: appErr.Fields,
	})
}

// BindingError maps a gin binding failure onto the error contract.
// Validator failures surface as the per-field validation envelope;
// anything else is malformed JSON.
func BindingError(err error) *errors.AppError {
	var verrs validator.ValidationErrors
	if !stderrors.As(err, &verrs) {
		return errors.BadRequest("INVALID_JSON", "Corpo da requisição inválido.")
	}
	fields := make([]errors.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, errors.FieldError{
			Campo: strings.ToLower(fe.Field()),
			Msg:   bindingMessage(fe.Tag()),
		})
	}
	return errors.Validation(fields)
}

func bindingMessage(tag string) string {
	if tag == "horario" {
		return "Horário inválido."
	}
	return "Campo inválido."
}

// RespondWithSuccess sends data with ok=true at the given status.
func RespondWithSuccess(c *gin.Context, status int, data gin.H) {
	body := gin.H{"ok": true}
	for k, v := range data {
		body[k] = v
	}
	c.JSON(status, body)
}
