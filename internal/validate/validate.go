package validate

import (
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/anestconsulta/booking-api/internal/model"
	"github.com/anestconsulta/booking-api/pkg/errors"
)

const DateLayout = "2006-01-02"

// Slots is the fixed set of bookable times.
var Slots = []string{"08:00", "09:00", "10:00", "11:00", "14:00", "15:00", "16:00"}

var (
	tagRe      = regexp.MustCompile(`<[^>]*>`)
	nonDigitRe = regexp.MustCompile(`\D`)
	emailRe    = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	upperRe    = regexp.MustCompile(`[A-Z]`)
	digitRe    = regexp.MustCompile(`[0-9]`)
)

// Sanitize trims whitespace and strips markup tags from user input.
func Sanitize(s string) string {
	return strings.TrimSpace(tagRe.ReplaceAllString(s, ""))
}

// Digits strips everything but decimal digits.
func Digits(s string) string {
	return nonDigitRe.ReplaceAllString(s, "")
}

func ValidEmail(email string) bool {
	return emailRe.MatchString(email)
}

// ValidCPF checks the 11-digit check-digit scheme: all-repeated
// sequences are rejected outright, then both verification digits are
// recomputed via the weighted sum over increasing prefixes.
func ValidCPF(cpf string) bool {
	if len(cpf) != 11 {
		return false
	}
	repeated := true
	for i := 1; i < 11; i++ {
		if cpf[i] != cpf[0] {
			repeated = false
			break
		}
	}
	if repeated {
		return false
	}

	for t := 9; t < 11; t++ {
		sum := 0
		for i := 0; i < t; i++ {
			d := int(cpf[i] - '0')
			if d < 0 || d > 9 {
				return false
			}
			sum += d * (t + 1 - i)
		}
		check := ((sum * 10) % 11) % 10
		if int(cpf[t]-'0') != check {
			return false
		}
	}
	return true
}

func ValidSlot(slot string) bool {
	for _, s := range Slots {
		if s == slot {
			return true
		}
	}
	return false
}

func ValidKind(kind string) bool {
	return kind == string(model.ConsultationOnline) || kind == string(model.ConsultationInPerson)
}

// ValidPassword enforces the registration/reset policy: at least 8
// characters with an uppercase letter and a digit.
func ValidPassword(password string) bool {
	return len(password) >= 8 && upperRe.MatchString(password) && digitRe.MatchString(password)
}

// ParseDate parses a calendar date in the service timezone.
func ParseDate(s string, loc *time.Location) (time.Time, bool) {
	t, err := time.ParseInLocation(DateLayout, s, loc)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// BusinessDay reports whether t falls on Monday through Friday.
func BusinessDay(t time.Time) bool {
	wd := t.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

// Today truncates now to midnight in its location.
func Today(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, now.Location())
}

// BookingData is a booking submission after sanitization and parsing.
type BookingData struct {
	Name             string
	Email            string
	Phone            string
	CPF              string
	BirthDate        time.Time
	HealthPlan       string
	DoctorID         int64
	Kind             model.ConsultationKind
	ConsultationDate time.Time
	Slot             string
	Procedure        string
	Notes            string
}

// Booking validates and normalizes a public booking submission. All
// rules are evaluated; the submission is rejected with one structured
// error per failing field.
func Booking(req *model.CreateBookingRequest, now time.Time, loc *time.Location) (*BookingData, []errors.FieldError) {
	var fields []errors.FieldError
	fail := func(campo, msg string) {
		fields = append(fields, errors.FieldError{Campo: campo, Msg: msg})
	}

	data := &BookingData{
		Name:       Sanitize(req.Nome),
		Email:      Sanitize(strings.ToLower(req.Email)),
		Phone:      Digits(req.Telefone),
		CPF:        Digits(req.CPF),
		HealthPlan: Sanitize(req.Plano),
		DoctorID:   req.MedicoID,
		Kind:       model.ConsultationKind(Sanitize(req.Tipo)),
		Slot:       Sanitize(req.Horario),
		Procedure:  Sanitize(req.Cirurgia),
		Notes:      Sanitize(req.Observacoes),
	}

	if len(data.Name) < 3 {
		fail("nome", "Nome deve ter ao menos 3 caracteres.")
	}
	if !ValidEmail(data.Email) {
		fail("email", "E-mail inválido.")
	}
	if len(data.Phone) < 10 || len(data.Phone) > 11 {
		fail("telefone", "Telefone inválido.")
	}
	if !ValidCPF(data.CPF) {
		fail("cpf", "CPF inválido.")
	}

	birth, ok := ParseDate(Sanitize(req.Nascimento), loc)
	if !ok {
		fail("nascimento", "Data de nascimento inválida.")
	}
	data.BirthDate = birth

	if data.DoctorID <= 0 {
		fail("medico_id", "Selecione um médico.")
	}
	if !ValidKind(string(data.Kind)) {
		fail("tipo", "Tipo de consulta inválido.")
	}

	consult, ok := ParseDate(Sanitize(req.Data), loc)
	if !ok {
		fail("data", "Data da consulta inválida.")
	} else {
		if consult.Before(Today(now.In(loc))) {
			fail("data", "Data da consulta não pode ser no passado.")
		}
		if !BusinessDay(consult) {
			fail("data", "Agendamentos apenas em dias úteis (seg–sex).")
		}
	}
	data.ConsultationDate = consult

	if !ValidSlot(data.Slot) {
		fail("horario", "Horário inválido.")
	}
	if len(data.Procedure) < 3 {
		fail("cirurgia", "Informe o procedimento cirúrgico.")
	}

	if fields != nil {
		return nil, fields
	}
	return data, nil
}

// Registration validates a new account submission.
func Registration(req *model.RegisterRequest) (name, email string, fields []errors.FieldError) {
	fail := func(campo, msg string) {
		fields = append(fields, errors.FieldError{Campo: campo, Msg: msg})
	}

	name = Sanitize(req.Nome)
	email = strings.ToLower(strings.TrimSpace(req.Email))

	if len(name) < 2 {
		fail("nome", "Nome muito curto.")
	}
	if !ValidEmail(email) {
		fail("email", "E-mail inválido.")
	}
	if len(req.Senha) < 8 {
		fail("senha", "Senha deve ter ao menos 8 caracteres.")
	} else if !ValidPassword(req.Senha) {
		fail("senha", "Senha deve conter letra maiúscula e número.")
	}
	return name, email, fields
}

// Profile validates a profile update. Phone, birth date and health
// plan are optional; empty values clear the field.
func Profile(req *model.UpdateProfileRequest, loc *time.Location) (name, phone string, birth *time.Time, plan string, fields []errors.FieldError) {
	fail := func(campo, msg string) {
		fields = append(fields, errors.FieldError{Campo: campo, Msg: msg})
	}

	name = Sanitize(req.Nome)
	phone = Digits(req.Telefone)
	plan = Sanitize(req.PlanoSaude)

	if len(name) < 2 {
		fail("nome", "Nome muito curto.")
	}
	if phone != "" && (len(phone) < 10 || len(phone) > 11) {
		fail("telefone", "Telefone inválido.")
	}
	if s := strings.TrimSpace(req.DataNascimento); s != "" {
		d, ok := ParseDate(s, loc)
		if !ok {
			fail("data_nascimento", "Data de nascimento inválida.")
		} else {
			birth = &d
		}
	}
	return name, phone, birth, plan, fields
}

// RegisterBindingValidators installs the slot format on gin's binding
// engine so request bodies tagged `binding:"horario"` reject malformed
// slots at bind time.
func RegisterBindingValidators(v *validator.Validate) {
	v.RegisterValidation("horario", func(fl validator.FieldLevel) bool {
		return ValidSlot(fl.Field().String())
	})
}
