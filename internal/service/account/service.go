package account

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/anestconsulta/booking-api/internal/model"
	"github.com/anestconsulta/booking-api/internal/repository"
	"github.com/anestconsulta/booking-api/internal/service/notification"
	"github.com/anestconsulta/booking-api/internal/validate"
	"github.com/anestconsulta/booking-api/pkg/errors"
	"github.com/anestconsulta/booking-api/pkg/security"
)

// ResetTokenTTL bounds how long a password recovery link stays valid.
const ResetTokenTTL = time.Hour

// BcryptCost is the work factor for every patient password hash.
const BcryptCost = 12

// Service manages patient accounts and their panel sessions. Session
// tokens are opaque 64-hex strings; authentication resolves them
// against the database, never against process state.
type Service struct {
	patients repository.PatientRepository
	sessions repository.SessionRepository
	appts    repository.AppointmentRepository
	hasher   security.PasswordHasher
	notifier *notification.Service
	loc      *time.Location
	logger   zerolog.Logger
}

func NewService(patients repository.PatientRepository, sessions repository.SessionRepository, appts repository.AppointmentRepository, hasher security.PasswordHasher, notifier *notification.Service, loc *time.Location, logger zerolog.Logger) *Service {
	return &Service{
		patients: patients,
		sessions: sessions,
		appts:    appts,
		hasher:   hasher,
		notifier: notifier,
		loc:      loc,
		logger:   logger,
	}
}

// AvatarInitials derives the avatar label from the first letters of
// the first two name parts, or the first letter doubled for single
// names.
func AvatarInitials(name string) string {
	parts := strings.Fields(name)
	if len(parts) == 0 {
		return ""
	}
	first := []rune(parts[0])
	second := first
	if len(parts) > 1 {
		second = []rune(parts[1])
	}
	return strings.ToUpper(string(first[0]) + string(second[0]))
}

// Register creates an unverified account and sends the activation
// email. There is no auto-login: the patient must verify first.
func (s *Service) Register(ctx context.Context, req *model.RegisterRequest) (*model.Patient, error) {
	name, email, fieldErrs := validate.Registration(req)
	if fieldErrs != nil {
		return nil, errors.Validation(fieldErrs)
	}

	hash, err := s.hasher.Hash(req.Senha)
	if err != nil {
		return nil, errors.Internal(err)
	}
	verifyToken, err := security.NewToken()
	if err != nil {
		return nil, errors.Internal(err)
	}

	patient := &model.Patient{
		Name:          name,
		Email:         email,
		PasswordHash:  hash,
		AvatarInitial: AvatarInitials(name),
		VerifyToken:   &verifyToken,
		EmailVerified: false,
		Active:        true,
	}
	if err := s.patients.Create(ctx, patient); err != nil {
		if stderrors.Is(err, repository.ErrDuplicate) {
			return nil, errors.Conflict(errors.CodeEmailExists, "E-mail já cadastrado.")
		}
		return nil, errors.Internal(err)
	}

	if err := s.notifier.SendVerification(ctx, patient, verifyToken); err != nil {
		s.logger.Warn().Err(err).Int64("patient_id", patient.ID).Msg("verification email failed")
	}
	return patient, nil
}

// Login validates credentials and opens a 7-day session. The failure
// order is fixed: unknown email and wrong password share one code so
// the response does not reveal which was wrong.
func (s *Service) Login(ctx context.Context, req *model.LoginRequest, ip, userAgent string) (*model.Session, *model.Patient, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Senha == "" {
		return nil, nil, errors.BadRequest("CAMPOS_OBRIGATORIOS", "E-mail e senha obrigatórios.")
	}

	patient, err := s.patients.GetByEmail(ctx, email)
	if err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return nil, nil, errors.Unauthorized(errors.CodeInvalidCredentials, "E-mail ou senha incorretos.")
		}
		return nil, nil, errors.Internal(err)
	}
	if err := s.hasher.Compare(patient.PasswordHash, req.Senha); err != nil {
		return nil, nil, errors.Unauthorized(errors.CodeInvalidCredentials, "E-mail ou senha incorretos.")
	}
	if !patient.Active {
		return nil, nil, errors.Forbidden(errors.CodeAccountInactive, "Conta desativada. Entre em contato.")
	}
	if !patient.EmailVerified {
		return nil, nil, errors.Forbidden(errors.CodeEmailNotVerified,
			"Verifique seu e-mail antes de entrar. Verifique sua caixa de entrada.")
	}

	token, err := security.NewToken()
	if err != nil {
		return nil, nil, errors.Internal(err)
	}
	session := &model.Session{
		Token:     token,
		PatientID: patient.ID,
		IP:        ip,
		UserAgent: truncate(userAgent, 255),
		ExpiresAt: time.Now().In(s.loc).Add(model.SessionTTL),
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, nil, errors.Internal(err)
	}

	if err := s.patients.UpdateLastAccess(ctx, patient.ID); err != nil {
		s.logger.Warn().Err(err).Int64("patient_id", patient.ID).Msg("failed to update last access")
	}
	return session, patient, nil
}

// Logout discards the session. Unknown tokens succeed; logout is
// idempotent.
func (s *Service) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.sessions.Delete(ctx, token); err != nil {
		return errors.Internal(err)
	}
	return nil
}

// Authenticate resolves a bearer token to its active patient.
func (s *Service) Authenticate(ctx context.Context, token string) (*model.Patient, error) {
	if token == "" {
		return nil, errors.Unauthorized("NAO_AUTENTICADO", "Token de sessão necessário.")
	}
	_, patient, err := s.sessions.GetWithPatient(ctx, token)
	if err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return nil, errors.Unauthorized(errors.CodeSessionInvalid, "Sessão expirada. Faça login novamente.")
		}
		return nil, errors.Internal(err)
	}
	return patient, nil
}

// VerifyEmail consumes a single-use activation token.
func (s *Service) VerifyEmail(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return errors.BadRequest("TOKEN_INVALIDO", "Token inválido.")
	}
	patient, err := s.patients.GetByVerifyToken(ctx, token)
	if err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return errors.NotFoundCode(errors.CodeTokenNotFound, "Token inválido ou já utilizado.")
		}
		return errors.Internal(err)
	}
	if err := s.patients.MarkVerified(ctx, patient.ID); err != nil {
		return errors.Internal(err)
	}
	return nil
}

// RequestPasswordReset issues a one-hour recovery token. The response
// is identical whether or not the email is registered.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if !validate.ValidEmail(email) {
		return errors.BadRequest("EMAIL_INVALIDO", "E-mail inválido.")
	}

	patient, err := s.patients.GetByEmail(ctx, email)
	if err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return errors.Internal(err)
	}
	if !patient.Active {
		return nil
	}

	token, err := security.NewToken()
	if err != nil {
		return errors.Internal(err)
	}
	expires := time.Now().In(s.loc).Add(ResetTokenTTL)
	if err := s.patients.SetResetToken(ctx, patient.ID, token, expires); err != nil {
		return errors.Internal(err)
	}

	if err := s.notifier.SendPasswordReset(ctx, patient, token); err != nil {
		s.logger.Warn().Err(err).Int64("patient_id", patient.ID).Msg("reset email failed")
	}
	return nil
}

// ConfirmPasswordReset sets a new password from an unexpired token,
// clears the token and invalidates every session of the account.
func (s *Service) ConfirmPasswordReset(ctx context.Context, req *model.ResetConfirmRequest) error {
	token := strings.TrimSpace(req.Token)
	if token == "" {
		return errors.BadRequest("TOKEN_INVALIDO", "Token inválido.")
	}
	if len(req.Senha) < 8 {
		return errors.Unprocessable("SENHA_FRACA", "Senha deve ter ao menos 8 caracteres.")
	}
	if !validate.ValidPassword(req.Senha) {
		return errors.Unprocessable("SENHA_FRACA", "Senha deve conter letra maiúscula e número.")
	}

	patient, err := s.patients.GetByResetToken(ctx, token)
	if err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return errors.BadRequest(errors.CodeTokenExpired, "Token inválido ou expirado.")
		}
		return errors.Internal(err)
	}
	if !patient.Active || patient.ResetExpires == nil || !patient.ResetExpires.After(time.Now()) {
		return errors.BadRequest(errors.CodeTokenExpired, "Token inválido ou expirado.")
	}

	hash, err := s.hasher.Hash(req.Senha)
	if err != nil {
		return errors.Internal(err)
	}
	if err := s.patients.UpdatePassword(ctx, patient.ID, hash); err != nil {
		return errors.Internal(err)
	}
	if err := s.sessions.DeleteAllForPatient(ctx, patient.ID); err != nil {
		return errors.Internal(err)
	}
	return nil
}

// ChangePassword rotates the password of a logged-in patient and
// drops every other session.
func (s *Service) ChangePassword(ctx context.Context, patientID int64, sessionToken string, req *model.ChangePasswordRequest) error {
	if req.SenhaAtual == "" || req.NovaSenha == "" {
		return errors.BadRequest("CAMPOS_OBRIGATORIOS", "Senha atual e nova senha obrigatórias.")
	}
	if len(req.NovaSenha) < 8 {
		return errors.Unprocessable("SENHA_FRACA", "Nova senha deve ter ao menos 8 caracteres.")
	}

	patient, err := s.patients.GetByID(ctx, patientID)
	if err != nil {
		return errors.Internal(err)
	}
	if err := s.hasher.Compare(patient.PasswordHash, req.SenhaAtual); err != nil {
		return errors.Unauthorized(errors.CodeWrongPassword, "Senha atual incorreta.")
	}

	hash, err := s.hasher.Hash(req.NovaSenha)
	if err != nil {
		return errors.Internal(err)
	}
	if err := s.patients.UpdatePassword(ctx, patientID, hash); err != nil {
		return errors.Internal(err)
	}
	if err := s.sessions.DeleteOthers(ctx, patientID, sessionToken); err != nil {
		return errors.Internal(err)
	}
	return nil
}

// Profile returns the account plus its per-status appointment stats.
func (s *Service) Profile(ctx context.Context, patientID int64) (*model.Patient, *model.AppointmentStats, error) {
	patient, err := s.patients.GetByID(ctx, patientID)
	if err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return nil, nil, errors.NotFound("Conta não encontrada.")
		}
		return nil, nil, errors.Internal(err)
	}
	stats, err := s.appts.StatsByEmail(ctx, patient.Email)
	if err != nil {
		return nil, nil, errors.Internal(err)
	}
	return patient, stats, nil
}

// UpdateProfile applies the editable fields and recomputes the avatar
// initials.
func (s *Service) UpdateProfile(ctx context.Context, patientID int64, req *model.UpdateProfileRequest) error {
	name, phone, birth, plan, fieldErrs := validate.Profile(req, s.loc)
	if fieldErrs != nil {
		return errors.Validation(fieldErrs)
	}

	err := s.patients.UpdateProfile(ctx, patientID, name, optional(phone), birth, optional(plan), AvatarInitials(name))
	if err != nil {
		return errors.Internal(err)
	}
	return nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
