package panel

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anestconsulta/booking-api/internal/model"
	"github.com/anestconsulta/booking-api/internal/validate"
)

// newActionRouter mounts the panel routes behind a stub session that
// injects an authenticated patient the way PatientAuth does.
func newActionRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		validate.RegisterBindingValidators(v)
	}

	engine := gin.New()
	group := engine.Group("/api/v1/painel")
	group.Use(func(c *gin.Context) {
		c.Set("patient", &model.Patient{ID: 1, Name: "Maria Souza", Email: "maria@example.com", Active: true})
		c.Set("session_token", "sessao-teste")
		c.Next()
	})
	NewHandler(nil, nil).RegisterRoutes(group)
	return engine
}

func postJSON(t *testing.T, engine *gin.Engine, path string, body map[string]interface{}) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestAppointmentActionRejectsBadSlotAtBind(t *testing.T) {
	engine := newActionRouter()

	w := postJSON(t, engine, "/api/v1/painel/agendamentos", map[string]interface{}{
		"action":  "remarcar",
		"id":      1,
		"data":    "2026-03-02",
		"horario": "12:30",
	})

	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var resp struct {
		OK    bool `json:"ok"`
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
		Campos []struct {
			Campo string `json:"campo"`
			Msg   string `json:"msg"`
		} `json:"campos"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.OK)
	assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
	require.Len(t, resp.Campos, 1)
	assert.Equal(t, "horario", resp.Campos[0].Campo)
	assert.Equal(t, "Horário inválido.", resp.Campos[0].Msg)
}

func TestAppointmentActionUnknownAction(t *testing.T) {
	engine := newActionRouter()

	w := postJSON(t, engine, "/api/v1/painel/agendamentos", map[string]interface{}{
		"action": "arquivar",
		"id":     1,
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
