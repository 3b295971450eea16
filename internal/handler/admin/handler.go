package admin

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/anestconsulta/booking-api/internal/model"
	"github.com/anestconsulta/booking-api/internal/service/admin"
	"github.com/anestconsulta/booking-api/pkg/errors"
	"github.com/anestconsulta/booking-api/pkg/httputil"
)

type Handler struct {
	service *admin.Service
}

func NewHandler(service *admin.Service) *Handler {
	return &Handler{service: service}
}

// RegisterLogin mounts the unauthenticated login endpoint.
func (h *Handler) RegisterLogin(r *gin.RouterGroup) {
	r.POST("/login", h.Login)
}

// RegisterRoutes mounts the JWT-protected dashboard endpoints.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/agendamentos", h.List)
	r.PATCH("/agendamentos/:id/status", h.UpdateStatus)
	r.GET("/stats", h.Stats)
}

func (h *Handler) Login(c *gin.Context) {
	var req model.StaffLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, errors.BadRequest("INVALID_JSON", "Corpo da requisição inválido."))
		return
	}

	token, staff, err := h.service.Login(c.Request.Context(), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, gin.H{
		"token": token,
		"admin": gin.H{
			"id":    staff.ID,
			"nome":  staff.Name,
			"email": staff.Email,
		},
	})
}

func (h *Handler) List(c *gin.Context) {
	var filter model.AppointmentFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		httputil.RespondWithError(c, errors.BadRequest("INVALID_QUERY", "Parâmetros inválidos."))
		return
	}

	result, err := h.service.List(c.Request.Context(), &filter)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, gin.H{
		"agendamentos": result.Appointments,
		"total":        result.Total,
		"pagina":       result.Page,
		"paginas":      result.Pages,
	})
}

func (h *Handler) UpdateStatus(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		httputil.RespondWithError(c, errors.BadRequest(errors.CodeInvalidID, "ID do agendamento obrigatório."))
		return
	}

	var req model.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, errors.BadRequest("INVALID_JSON", "Corpo da requisição inválido."))
		return
	}

	if err := h.service.UpdateStatus(c.Request.Context(), id, req.Status); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, gin.H{
		"message": "Status atualizado.",
		"id":      id,
		"status":  req.Status,
	})
}

func (h *Handler) Stats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, gin.H{"estatisticas": stats})
}
