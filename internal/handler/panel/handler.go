package panel

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/anestconsulta/booking-api/internal/middleware"
	"github.com/anestconsulta/booking-api/internal/model"
	"github.com/anestconsulta/booking-api/internal/service/account"
	"github.com/anestconsulta/booking-api/internal/service/booking"
	"github.com/anestconsulta/booking-api/pkg/errors"
	"github.com/anestconsulta/booking-api/pkg/httputil"
)

// actionRequest is the shared body for panel POST actions.
type actionRequest struct {
	Action  string `json:"action"`
	ID      int64  `json:"id"`
	Data    string `json:"data"`
	Horario string `json:"horario" binding:"omitempty,horario"`

	Nome           string `json:"nome"`
	Telefone       string `json:"telefone"`
	DataNascimento string `json:"data_nascimento"`
	PlanoSaude     string `json:"plano_saude"`
	SenhaAtual     string `json:"senha_atual"`
	NovaSenha      string `json:"nova_senha"`
}

type Handler struct {
	bookings *booking.Service
	accounts *account.Service
}

func NewHandler(bookings *booking.Service, accounts *account.Service) *Handler {
	return &Handler{bookings: bookings, accounts: accounts}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/agendamentos", h.List)
	r.GET("/agendamentos/:id", h.Detail)
	r.POST("/agendamentos", h.AppointmentAction)
	r.GET("/perfil", h.Profile)
	r.POST("/perfil", h.ProfileAction)
}

// List returns the patient's appointments, optionally filtered by
// status (?status=, "todos" by default).
func (h *Handler) List(c *gin.Context) {
	patient := middleware.PatientFrom(c)
	status := c.DefaultQuery("status", "todos")

	appts, err := h.bookings.PanelList(c.Request.Context(), patient.Email, status)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, gin.H{
		"agendamentos": appts,
		"total":        len(appts),
	})
}

func (h *Handler) Detail(c *gin.Context) {
	patient := middleware.PatientFrom(c)
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		httputil.RespondWithError(c, errors.BadRequest(errors.CodeInvalidID, "ID do agendamento obrigatório."))
		return
	}

	appt, err := h.bookings.PanelDetail(c.Request.Context(), id, patient.Email)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, gin.H{"agendamento": appt})
}

// AppointmentAction handles cancel and reschedule, selected by the
// action in the query string or the body.
func (h *Handler) AppointmentAction(c *gin.Context) {
	patient := middleware.PatientFrom(c)

	var req actionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, httputil.BindingError(err))
		return
	}
	action := c.Query("action")
	if action == "" {
		action = req.Action
	}

	switch action {
	case "cancelar":
		if err := h.bookings.PatientCancel(c.Request.Context(), req.ID, patient.Email); err != nil {
			httputil.RespondWithError(c, err)
			return
		}
		httputil.RespondWithSuccess(c, http.StatusOK, gin.H{
			"message": "Agendamento cancelado com sucesso.",
			"id":      req.ID,
		})
	case "remarcar":
		err := h.bookings.PatientReschedule(c.Request.Context(), &model.RescheduleRequest{
			ID:      req.ID,
			Data:    req.Data,
			Horario: req.Horario,
		}, patient.Email)
		if err != nil {
			httputil.RespondWithError(c, err)
			return
		}
		httputil.RespondWithSuccess(c, http.StatusOK, gin.H{
			"message": "Consulta remarcada com sucesso!",
			"id":      req.ID,
		})
	default:
		httputil.RespondWithError(c, errors.BadRequest("ACAO_INVALIDA", "Ação inválida."))
	}
}

// Profile returns the account with its per-status appointment stats.
func (h *Handler) Profile(c *gin.Context) {
	patient := middleware.PatientFrom(c)

	p, stats, err := h.accounts.Profile(c.Request.Context(), patient.ID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, gin.H{
		"paciente":     p,
		"estatisticas": stats,
	})
}

// ProfileAction updates the profile, or changes the password when
// action=senha.
func (h *Handler) ProfileAction(c *gin.Context) {
	patient := middleware.PatientFrom(c)

	var req actionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, httputil.BindingError(err))
		return
	}

	if c.Query("action") == "senha" || req.Action == "senha" {
		err := h.accounts.ChangePassword(c.Request.Context(), patient.ID, middleware.SessionTokenFrom(c), &model.ChangePasswordRequest{
			SenhaAtual: req.SenhaAtual,
			NovaSenha:  req.NovaSenha,
		})
		if err != nil {
			httputil.RespondWithError(c, err)
			return
		}
		httputil.RespondWithSuccess(c, http.StatusOK, gin.H{"message": "Senha alterada com sucesso!"})
		return
	}

	err := h.accounts.UpdateProfile(c.Request.Context(), patient.ID, &model.UpdateProfileRequest{
		Nome:           req.Nome,
		Telefone:       req.Telefone,
		DataNascimento: req.DataNascimento,
		PlanoSaude:     req.PlanoSaude,
	})
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, gin.H{"message": "Perfil atualizado com sucesso!"})
}
