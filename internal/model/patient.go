package model

import "time"

// Patient is a self-service account holder. Deactivation is a soft
// flag; rows are never deleted.
type Patient struct {
	ID            int64      `db:"id" json:"id"`
	Name          string     `db:"name" json:"nome"`
	Email         string     `db:"email" json:"email"`
	PasswordHash  string     `db:"password_hash" json:"-"`
	AvatarInitial string     `db:"avatar_initial" json:"avatar_inicial"`
	VerifyToken   *string    `db:"verify_token" json:"-"`
	EmailVerified bool       `db:"email_verified" json:"email_verificado"`
	ResetToken    *string    `db:"reset_token" json:"-"`
	ResetExpires  *time.Time `db:"reset_expires_at" json:"-"`
	Phone         *string    `db:"phone" json:"telefone,omitempty"`
	CPF           *string    `db:"cpf" json:"cpf,omitempty"`
	BirthDate     *time.Time `db:"birth_date" json:"data_nascimento,omitempty"`
	HealthPlan    *string    `db:"health_plan" json:"plano_saude,omitempty"`
	Active        bool       `db:"active" json:"-"`
	LastAccessAt  *time.Time `db:"last_access_at" json:"ultimo_acesso,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"-"`
}

type RegisterRequest struct {
	Nome  string `json:"nome"`
	Email string `json:"email"`
	Senha string `json:"senha"`
}

type LoginRequest struct {
	Email string `json:"email"`
	Senha string `json:"senha"`
}

type ResetRequest struct {
	Email string `json:"email"`
}

type ResetConfirmRequest struct {
	Token string `json:"token"`
	Senha string `json:"senha"`
}

type VerifyEmailRequest struct {
	Token string `json:"token"`
}

type UpdateProfileRequest struct {
	Nome           string `json:"nome"`
	Telefone       string `json:"telefone"`
	DataNascimento string `json:"data_nascimento"`
	PlanoSaude     string `json:"plano_saude"`
}

type ChangePasswordRequest struct {
	SenhaAtual string `json:"senha_atual"`
	NovaSenha  string `json:"nova_senha"`
}
