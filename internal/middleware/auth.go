package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/anestconsulta/booking-api/internal/model"
	"github.com/anestconsulta/booking-api/internal/service/account"
	"github.com/anestconsulta/booking-api/pkg/auth"
	"github.com/anestconsulta/booking-api/pkg/errors"
	"github.com/anestconsulta/booking-api/pkg/httputil"
)

const (
	contextPatient      = "patient"
	contextSessionToken = "session_token"
	contextStaff        = "staff"
)

// PatientAuth resolves the bearer session token to an active patient
// and stores it on the context.
func PatientAuth(accounts *account.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		patient, err := accounts.Authenticate(c.Request.Context(), token)
		if err != nil {
			httputil.RespondWithError(c, err)
			return
		}

		c.Set(contextPatient, patient)
		c.Set(contextSessionToken, token)
		c.Next()
	}
}

// StaffAuth validates the dashboard JWT and stores its claims on the
// context.
func StaffAuth(jwtSvc auth.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			httputil.RespondWithError(c, errors.Unauthorized("NAO_AUTENTICADO", "Token de acesso necessário."))
			return
		}

		claims, err := jwtSvc.ValidateToken(token)
		if err != nil {
			httputil.RespondWithError(c, errors.Unauthorized(errors.CodeSessionInvalid, "Sessão expirada. Faça login novamente."))
			return
		}

		c.Set(contextStaff, claims)
		c.Next()
	}
}

// PatientFrom returns the authenticated patient set by PatientAuth.
func PatientFrom(c *gin.Context) *model.Patient {
	return c.MustGet(contextPatient).(*model.Patient)
}

// SessionTokenFrom returns the bearer token set by PatientAuth.
func SessionTokenFrom(c *gin.Context) string {
	return c.GetString(contextSessionToken)
}

// StaffFrom returns the JWT claims set by StaffAuth.
func StaffFrom(c *gin.Context) *auth.StaffClaims {
	return c.MustGet(contextStaff).(*auth.StaffClaims)
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if len(header) > 7 && strings.EqualFold(header[:7], "Bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}
