package booking

import (
	"math/rand"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/anestconsulta/booking-api/internal/model"
	"github.com/anestconsulta/booking-api/internal/service/booking"
	"github.com/anestconsulta/booking-api/internal/service/doctor"
	"github.com/anestconsulta/booking-api/internal/service/notification"
	"github.com/anestconsulta/booking-api/pkg/errors"
	"github.com/anestconsulta/booking-api/pkg/httputil"
)

type Handler struct {
	service *booking.Service
	doctors *doctor.Service
}

func NewHandler(service *booking.Service, doctors *doctor.Service) *Handler {
	return &Handler{service: service, doctors: doctors}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/agendamentos", h.Create)
	r.GET("/medicos", h.ListDoctors)
}

// Create books an appointment from a public submission. Filled
// honeypot fields get a fabricated success with a random id so bots
// never learn they were detected; nothing is stored or counted.
func (h *Handler) Create(c *gin.Context) {
	var req model.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, errors.BadRequest("INVALID_JSON", "Corpo da requisição inválido."))
		return
	}

	if req.IsHoneypot() {
		httputil.RespondWithSuccess(c, http.StatusCreated, gin.H{
			"id":      int64(1000 + rand.Intn(9000)),
			"message": "Agendamento recebido!",
		})
		return
	}

	appt, err := h.service.Create(c.Request.Context(), &req, c.ClientIP())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusCreated, gin.H{
		"id":            appt.ID,
		"message":       "Agendamento realizado com sucesso! Verifique seu e-mail.",
		"email_enviado": appt.EmailStatus == model.EmailStatusSent,
		"medico":        appt.DoctorName,
		"data":          notification.FormatLongDate(appt.ConsultationDate),
		"horario":       appt.Slot,
		"tipo":          appt.Kind,
		"token":         appt.Token,
	})
}

// ListDoctors returns the active roster for the booking form.
func (h *Handler) ListDoctors(c *gin.Context) {
	doctors, err := h.doctors.ListActive(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, gin.H{"medicos": doctors})
}
