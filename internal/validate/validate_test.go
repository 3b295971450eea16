package validate

import (
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anestconsulta/booking-api/internal/model"
)

func TestSanitize(t *testing.T) {
	assert.Equal(t, "João Silva", Sanitize("  João Silva  "))
	assert.Equal(t, "alert(1)", Sanitize("<script>alert(1)</script>"))
	assert.Equal(t, "texto", Sanitize("<b>texto</b>"))
}

func TestDigits(t *testing.T) {
	assert.Equal(t, "11987654321", Digits("(11) 98765-4321"))
	assert.Equal(t, "52998224725", Digits("529.982.247-25"))
}

func TestValidCPF(t *testing.T) {
	assert.True(t, ValidCPF("52998224725"))
	assert.True(t, ValidCPF("11144477735"))

	assert.False(t, ValidCPF("11111111111"), "repeated digits must be rejected")
	assert.False(t, ValidCPF("00000000000"))
	assert.False(t, ValidCPF("52998224724"), "wrong check digit")
	assert.False(t, ValidCPF("5299822472"), "too short")
	assert.False(t, ValidCPF("529982247250"), "too long")
	assert.False(t, ValidCPF("5299822472a"))
}

func TestValidSlot(t *testing.T) {
	for _, s := range []string{"08:00", "09:00", "10:00", "11:00", "14:00", "15:00", "16:00"} {
		assert.True(t, ValidSlot(s), s)
	}
	assert.False(t, ValidSlot("12:00"), "lunch break is not bookable")
	assert.False(t, ValidSlot("17:00"))
	assert.False(t, ValidSlot("8:00"))
	assert.False(t, ValidSlot(""))
}

func TestRegisterBindingValidators(t *testing.T) {
	v := validator.New()
	RegisterBindingValidators(v)

	assert.NoError(t, v.Var("09:00", "horario"))
	assert.Error(t, v.Var("12:30", "horario"))
	assert.Error(t, v.Var("8:00", "horario"))
}

func TestValidPassword(t *testing.T) {
	assert.True(t, ValidPassword("Senha123"))
	assert.False(t, ValidPassword("senha123"), "needs an uppercase letter")
	assert.False(t, ValidPassword("SENHAFORTE"), "needs a digit")
	assert.False(t, ValidPassword("Ab1"), "too short")
}

func TestBusinessDay(t *testing.T) {
	loc := time.UTC
	assert.True(t, BusinessDay(time.Date(2026, 3, 2, 0, 0, 0, 0, loc)), "monday")
	assert.True(t, BusinessDay(time.Date(2026, 3, 6, 0, 0, 0, 0, loc)), "friday")
	assert.False(t, BusinessDay(time.Date(2026, 3, 7, 0, 0, 0, 0, loc)), "saturday")
	assert.False(t, BusinessDay(time.Date(2026, 3, 8, 0, 0, 0, 0, loc)), "sunday")
}

func validBookingRequest() *model.CreateBookingRequest {
	return &model.CreateBookingRequest{
		Nome:       "Maria Souza",
		Email:      "maria@example.com",
		Telefone:   "(11) 98765-4321",
		CPF:        "529.982.247-25",
		Nascimento: "1990-05-20",
		Plano:      "Unimed",
		MedicoID:   1,
		Tipo:       "presencial",
		Data:       "2026-03-02",
		Horario:    "09:00",
		Cirurgia:   "Colecistectomia",
	}
}

func TestBooking(t *testing.T) {
	loc := time.UTC
	now := time.Date(2026, 2, 20, 10, 0, 0, 0, loc)

	t.Run("valid submission", func(t *testing.T) {
		data, fields := Booking(validBookingRequest(), now, loc)
		require.Empty(t, fields)
		assert.Equal(t, "Maria Souza", data.Name)
		assert.Equal(t, "maria@example.com", data.Email)
		assert.Equal(t, "11987654321", data.Phone)
		assert.Equal(t, "52998224725", data.CPF)
		assert.Equal(t, model.ConsultationInPerson, data.Kind)
		assert.Equal(t, "09:00", data.Slot)
	})

	t.Run("email is lowercased", func(t *testing.T) {
		req := validBookingRequest()
		req.Email = "Maria@Example.COM"
		data, fields := Booking(req, now, loc)
		require.Empty(t, fields)
		assert.Equal(t, "maria@example.com", data.Email)
	})

	t.Run("weekend date rejected", func(t *testing.T) {
		req := validBookingRequest()
		req.Data = "2026-03-07"
		_, fields := Booking(req, now, loc)
		require.Len(t, fields, 1)
		assert.Equal(t, "data", fields[0].Campo)
	})

	t.Run("past date rejected", func(t *testing.T) {
		req := validBookingRequest()
		req.Data = "2026-02-19"
		_, fields := Booking(req, now, loc)
		require.NotEmpty(t, fields)
		assert.Equal(t, "data", fields[0].Campo)
	})

	t.Run("every failing field is reported", func(t *testing.T) {
		req := validBookingRequest()
		req.Nome = "Jo"
		req.Email = "invalido"
		req.CPF = "111.111.111-11"
		req.Horario = "12:00"
		_, fields := Booking(req, now, loc)
		campos := make([]string, 0, len(fields))
		for _, f := range fields {
			campos = append(campos, f.Campo)
		}
		assert.ElementsMatch(t, []string{"nome", "email", "cpf", "horario"}, campos)
	})

	t.Run("invalid kind rejected", func(t *testing.T) {
		req := validBookingRequest()
		req.Tipo = "domiciliar"
		_, fields := Booking(req, now, loc)
		require.Len(t, fields, 1)
		assert.Equal(t, "tipo", fields[0].Campo)
	})

	t.Run("short procedure rejected", func(t *testing.T) {
		req := validBookingRequest()
		req.Cirurgia = "ab"
		_, fields := Booking(req, now, loc)
		require.Len(t, fields, 1)
		assert.Equal(t, "cirurgia", fields[0].Campo)
	})
}

func TestRegistration(t *testing.T) {
	name, email, fields := Registration(&model.RegisterRequest{
		Nome:  "  Ana Lima  ",
		Email: "Ana@Example.com",
		Senha: "Senha123",
	})
	require.Empty(t, fields)
	assert.Equal(t, "Ana Lima", name)
	assert.Equal(t, "ana@example.com", email)

	_, _, fields = Registration(&model.RegisterRequest{
		Nome:  "A",
		Email: "nope",
		Senha: "fraca",
	})
	assert.Len(t, fields, 3)

	_, _, fields = Registration(&model.RegisterRequest{
		Nome:  "Ana Lima",
		Email: "ana@example.com",
		Senha: "somenteminusculas1",
	})
	require.Len(t, fields, 1)
	assert.Equal(t, "senha", fields[0].Campo)
}

func TestProfile(t *testing.T) {
	loc := time.UTC

	name, phone, birth, plan, fields := Profile(&model.UpdateProfileRequest{
		Nome:           "Ana Lima",
		Telefone:       "(21) 3456-7890",
		DataNascimento: "1985-12-01",
		PlanoSaude:     "Bradesco Saúde",
	}, loc)
	require.Empty(t, fields)
	assert.Equal(t, "Ana Lima", name)
	assert.Equal(t, "2134567890", phone)
	require.NotNil(t, birth)
	assert.Equal(t, 1985, birth.Year())
	assert.Equal(t, "Bradesco Saúde", plan)

	_, _, birth, _, fields = Profile(&model.UpdateProfileRequest{
		Nome: "Ana Lima",
	}, loc)
	require.Empty(t, fields)
	assert.Nil(t, birth, "empty birth date clears the field")

	_, _, _, _, fields = Profile(&model.UpdateProfileRequest{
		Nome:           "Ana Lima",
		DataNascimento: "01/12/1985",
	}, loc)
	require.Len(t, fields, 1)
	assert.Equal(t, "data_nascimento", fields[0].Campo)
}
