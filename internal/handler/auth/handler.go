package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/anestconsulta/booking-api/internal/model"
	"github.com/anestconsulta/booking-api/internal/service/account"
	"github.com/anestconsulta/booking-api/pkg/errors"
	"github.com/anestconsulta/booking-api/pkg/httputil"
)

// request is the single auth envelope: action selects the operation,
// the remaining fields feed whichever action runs.
type request struct {
	Action string `json:"action"`
	Nome   string `json:"nome"`
	Email  string `json:"email"`
	Senha  string `json:"senha"`
	Token  string `json:"token"`
}

type Handler struct {
	service *account.Service
}

func NewHandler(service *account.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/auth", h.Dispatch)
}

// Dispatch routes on the action, taken from the query string or the
// body (query wins).
func (h *Handler) Dispatch(c *gin.Context) {
	var req request
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, errors.BadRequest("INVALID_JSON", "Corpo da requisição inválido."))
		return
	}
	action := c.Query("action")
	if action == "" {
		action = req.Action
	}

	switch action {
	case "registro":
		h.register(c, &req)
	case "login":
		h.login(c, &req)
	case "logout":
		h.logout(c, &req)
	case "verificar_email":
		h.verifyEmail(c, &req)
	case "reset_solicitar":
		h.requestReset(c, &req)
	case "reset_confirmar":
		h.confirmReset(c, &req)
	default:
		httputil.RespondWithError(c, errors.BadRequest("ACAO_INVALIDA", "Ação inválida."))
	}
}

func (h *Handler) register(c *gin.Context, req *request) {
	patient, err := h.service.Register(c.Request.Context(), &model.RegisterRequest{
		Nome:  req.Nome,
		Email: req.Email,
		Senha: req.Senha,
	})
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusCreated, gin.H{
		"id":      patient.ID,
		"message": "Cadastro realizado! Verifique seu e-mail para ativar a conta.",
	})
}

func (h *Handler) login(c *gin.Context, req *request) {
	session, patient, err := h.service.Login(c.Request.Context(), &model.LoginRequest{
		Email: req.Email,
		Senha: req.Senha,
	}, c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, gin.H{
		"token":     session.Token,
		"expira_em": session.ExpiresAt,
		"paciente": gin.H{
			"id":             patient.ID,
			"nome":           patient.Name,
			"email":          patient.Email,
			"avatar_inicial": patient.AvatarInitial,
			"telefone":       patient.Phone,
		},
		"message": "Login realizado com sucesso!",
	})
}

func (h *Handler) logout(c *gin.Context, req *request) {
	token := req.Token
	if token == "" {
		token = BearerToken(c)
	}
	if err := h.service.Logout(c.Request.Context(), token); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, gin.H{"message": "Logout realizado."})
}

func (h *Handler) verifyEmail(c *gin.Context, req *request) {
	if err := h.service.VerifyEmail(c.Request.Context(), req.Token); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, gin.H{
		"message": "E-mail verificado com sucesso! Você já pode fazer login.",
	})
}

func (h *Handler) requestReset(c *gin.Context, req *request) {
	if err := h.service.RequestPasswordReset(c.Request.Context(), req.Email); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, gin.H{
		"message": "Se este e-mail estiver cadastrado, você receberá as instruções.",
	})
}

func (h *Handler) confirmReset(c *gin.Context, req *request) {
	err := h.service.ConfirmPasswordReset(c.Request.Context(), &model.ResetConfirmRequest{
		Token: req.Token,
		Senha: req.Senha,
	})
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, gin.H{
		"message": "Senha alterada com sucesso! Faça login.",
	})
}

// BearerToken extracts the credential from the Authorization header.
func BearerToken(c *gin.Context) string {
	auth := c.GetHeader("Authorization")
	if len(auth) > 7 && strings.EqualFold(auth[:7], "Bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}
