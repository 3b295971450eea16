package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/url"

	gomail "gopkg.in/gomail.v2"

	"github.com/anestconsulta/booking-api/internal/config"
)

type smtpService struct {
	dialer  *gomail.Dialer
	cfg     config.SMTPConfig
	baseURL string
}

// NewSMTPService builds the gomail-backed sender. Links in the
// verification and reset messages are rooted at baseURL.
func NewSMTPService(cfg config.SMTPConfig, baseURL string) Service {
	return &smtpService{
		dialer:  gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password),
		cfg:     cfg,
		baseURL: baseURL,
	}
}

func (s *smtpService) SendBookingConfirmation(ctx context.Context, msg *BookingMessage) error {
	body, err := render(patientTemplate, msg)
	if err != nil {
		return err
	}
	subject := "Consulta Agendada — AnestConsulta"
	return s.send(ctx, msg.PatientEmail, subject, body)
}

func (s *smtpService) SendDoctorNotice(ctx context.Context, msg *BookingMessage) error {
	body, err := render(doctorTemplate, msg)
	if err != nil {
		return err
	}
	subject := fmt.Sprintf("Novo Agendamento — %s", msg.PatientName)
	return s.send(ctx, s.doctorRecipient(msg), subject, body)
}

func (s *smtpService) SendVerification(ctx context.Context, email, name, token string) error {
	data := linkData{
		Name: name,
		URL:  fmt.Sprintf("%s/painel/?verificar=%s", s.baseURL, url.QueryEscape(token)),
	}
	body, err := render(verificationTemplate, data)
	if err != nil {
		return err
	}
	return s.send(ctx, email, "Confirme seu e-mail — AnestConsulta", body)
}

func (s *smtpService) SendPasswordReset(ctx context.Context, email, name, token string) error {
	data := linkData{
		Name: name,
		URL:  fmt.Sprintf("%s/painel/?reset=%s", s.baseURL, url.QueryEscape(token)),
	}
	body, err := render(resetTemplate, data)
	if err != nil {
		return err
	}
	return s.send(ctx, email, "Redefinir senha — AnestConsulta", body)
}

func (s *smtpService) doctorRecipient(msg *BookingMessage) string {
	if msg.DoctorEmail != "" {
		return msg.DoctorEmail
	}
	return s.cfg.DoctorEmail
}

// send delivers the message in a goroutine so the SMTP dial honors
// both the context and the configured timeout.
func (s *smtpService) send(ctx context.Context, to, subject, body string) error {
	m := gomail.NewMessage()
	m.SetAddressHeader("From", s.cfg.From, s.cfg.FromName)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- s.dialer.DialAndSend(m)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("failed to send email: %w", err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("email delivery timed out: %w", ctx.Err())
	}
}

type linkData struct {
	Name string
	URL  string
}

func render(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render email template: %w", err)
	}
	return buf.String(), nil
}

var patientTemplate = template.Must(template.New("patient").Parse(`<!DOCTYPE html>
<html lang="pt-BR">
<head><meta charset="UTF-8"></head>
<body style="margin:0;padding:0;background:#f0f9f8;font-family:'Segoe UI',Arial,sans-serif">
<table width="100%" cellpadding="0" cellspacing="0"><tr><td align="center" style="padding:40px 20px">
<table width="600" cellpadding="0" cellspacing="0" style="background:#ffffff;border-radius:16px;overflow:hidden">
  <tr><td style="background:#008c87;padding:36px 40px;text-align:center">
    <h1 style="color:#ffffff;margin:0;font-size:22px">AnestConsulta</h1>
    <p style="color:rgba(255,255,255,.7);margin:6px 0 0;font-size:13px">Avaliação Pré-Anestésica</p>
  </td></tr>
  <tr><td style="padding:36px 40px 0;text-align:center">
    <h2 style="color:#0a2322;margin:0 0 8px;font-size:20px">Consulta Confirmada!</h2>
    <p style="color:#4a7f7e;margin:0;font-size:14px">Olá, <strong>{{.PatientName}}</strong>! Seu agendamento foi realizado com sucesso.</p>
  </td></tr>
  <tr><td style="padding:28px 40px">
    <table width="100%" cellpadding="0" cellspacing="0" style="background:#f4fbfb;border-radius:12px">
      <tr><td style="padding:16px 24px;font-size:13px;color:#4a7f7e;width:40%">Médico</td>
        <td style="padding:16px 24px;font-size:13px;color:#0a2322;font-weight:600">{{.DoctorName}}</td></tr>
      <tr><td style="padding:16px 24px;font-size:13px;color:#4a7f7e">Data</td>
        <td style="padding:16px 24px;font-size:13px;color:#0a2322;font-weight:600">{{.Date}}</td></tr>
      <tr><td style="padding:16px 24px;font-size:13px;color:#4a7f7e">Horário</td>
        <td style="padding:16px 24px;font-size:13px;color:#0a2322;font-weight:600">{{.Slot}}h</td></tr>
      <tr><td style="padding:16px 24px;font-size:13px;color:#4a7f7e">Modalidade</td>
        <td style="padding:16px 24px;font-size:13px;color:#0a2322;font-weight:600">{{.Kind}}</td></tr>
    </table>
  </td></tr>
  <tr><td style="padding:0 40px 28px">
    <div style="background:#fff8e1;border-radius:10px;padding:18px 20px;border-left:4px solid #f59e0b">
      <p style="margin:0 0 8px;font-size:13px;font-weight:700;color:#92400e">Documentos necessários</p>
      <p style="margin:0;font-size:13px;color:#78350f">Separe: documento com foto, pedido cirúrgico, exames recentes (até 6 meses), lista de medicamentos e cartão do plano de saúde.</p>
    </div>
  </td></tr>
  <tr><td style="background:#f4fbfb;padding:24px 40px;text-align:center">
    <p style="margin:0;font-size:12px;color:#7fa9a8">© 2025 AnestConsulta</p>
    <p style="margin:6px 0 0;font-size:11px;color:#aac8c7">Token de confirmação: {{.Token}}</p>
  </td></tr>
</table>
</td></tr></table>
</body></html>`))

var doctorTemplate = template.Must(template.New("doctor").Parse(`<!DOCTYPE html>
<html lang="pt-BR">
<head><meta charset="UTF-8"></head>
<body style="margin:0;padding:0;background:#f0f9f8;font-family:'Segoe UI',Arial,sans-serif">
<table width="100%" cellpadding="0" cellspacing="0"><tr><td align="center" style="padding:40px 20px">
<table width="600" cellpadding="0" cellspacing="0" style="background:#ffffff;border-radius:16px;overflow:hidden">
  <tr><td style="background:#003d3b;padding:28px 40px">
    <h1 style="color:#ffffff;margin:0;font-size:18px">Novo Agendamento</h1>
    <p style="color:rgba(255,255,255,.6);margin:4px 0 0;font-size:13px">AnestConsulta — Painel Médico</p>
  </td></tr>
  <tr><td style="padding:32px 40px">
    <p style="color:#0a2322;font-size:14px;margin:0 0 20px">Olá, <strong>{{.DoctorName}}</strong>! Você tem um novo agendamento.</p>
    <table width="100%" cellpadding="0" cellspacing="0" style="background:#f4fbfb;border-radius:10px">
      <tr><td style="padding:14px 20px;font-size:13px;color:#4a7f7e;width:35%">Paciente</td>
        <td style="padding:14px 20px;font-size:13px;color:#0a2322;font-weight:600">{{.PatientName}}</td></tr>
      <tr><td style="padding:14px 20px;font-size:13px;color:#4a7f7e">E-mail</td>
        <td style="padding:14px 20px;font-size:13px;color:#0a2322">{{.PatientEmail}}</td></tr>
      <tr><td style="padding:14px 20px;font-size:13px;color:#4a7f7e">Data / Horário</td>
        <td style="padding:14px 20px;font-size:13px;color:#0a2322;font-weight:600">{{.Date}} às {{.Slot}}h</td></tr>
      <tr><td style="padding:14px 20px;font-size:13px;color:#4a7f7e">Modalidade</td>
        <td style="padding:14px 20px;font-size:13px;color:#0a2322">{{.Kind}}</td></tr>
      <tr><td style="padding:14px 20px;font-size:13px;color:#4a7f7e">Cirurgia</td>
        <td style="padding:14px 20px;font-size:13px;color:#0a2322">{{.Procedure}}</td></tr>
    </table>
  </td></tr>
  <tr><td style="background:#f4fbfb;padding:18px 40px;text-align:center">
    <p style="margin:0;font-size:12px;color:#7fa9a8">© 2025 AnestConsulta</p>
  </td></tr>
</table>
</td></tr></table>
</body></html>`))

var verificationTemplate = template.Must(template.New("verification").Parse(`<!DOCTYPE html>
<html lang="pt-BR"><head><meta charset="UTF-8"></head>
<body style="font-family:'Segoe UI',Arial,sans-serif;background:#f0f9f8;margin:0;padding:40px 16px">
<table width="100%" cellpadding="0" cellspacing="0"><tr><td align="center">
<table width="560" style="background:#fff;border-radius:20px;overflow:hidden">
  <tr><td style="background:#005451;padding:36px 48px;text-align:center">
    <h1 style="color:#fff;margin:0;font-size:20px">AnestConsulta</h1>
    <p style="color:rgba(255,255,255,.6);margin:6px 0 0;font-size:13px">Verificação de E-mail</p>
  </td></tr>
  <tr><td style="padding:40px 48px;text-align:center">
    <h2 style="color:#003d3b;margin:0 0 12px;font-size:20px">Confirme seu e-mail</h2>
    <p style="color:#4a7f7e;font-size:14px;margin:0 0 28px">
      Olá, <strong style="color:#003d3b">{{.Name}}</strong>!<br>
      Clique no botão abaixo para ativar sua conta no AnestConsulta.
    </p>
    <a href="{{.URL}}" style="display:inline-block;background:#008c87;color:#fff;text-decoration:none;padding:14px 36px;border-radius:50px;font-size:14px;font-weight:700">Verificar meu e-mail</a>
    <p style="color:#7fa9a8;font-size:11px;margin:20px 0 0">Link válido por 24h. Se não foi você, ignore este e-mail.</p>
  </td></tr>
  <tr><td style="background:#f4fbfb;padding:20px 48px;text-align:center">
    <p style="margin:0;font-size:11px;color:#7fa9a8">© 2025 AnestConsulta</p>
  </td></tr>
</table></td></tr></table>
</body></html>`))

var resetTemplate = template.Must(template.New("reset").Parse(`<!DOCTYPE html>
<html lang="pt-BR"><head><meta charset="UTF-8"></head>
<body style="font-family:'Segoe UI',Arial,sans-serif;background:#f0f9f8;margin:0;padding:40px 16px">
<table width="100%" cellpadding="0" cellspacing="0"><tr><td align="center">
<table width="560" style="background:#fff;border-radius:20px;overflow:hidden">
  <tr><td style="background:#005451;padding:36px 48px;text-align:center">
    <h1 style="color:#fff;margin:0;font-size:20px">AnestConsulta</h1>
    <p style="color:rgba(255,255,255,.6);margin:6px 0 0;font-size:13px">Recuperação de Senha</p>
  </td></tr>
  <tr><td style="padding:40px 48px;text-align:center">
    <h2 style="color:#003d3b;margin:0 0 12px;font-size:20px">Redefinir senha</h2>
    <p style="color:#4a7f7e;font-size:14px;margin:0 0 28px">
      Olá, <strong style="color:#003d3b">{{.Name}}</strong>!<br>
      Recebemos uma solicitação para redefinir sua senha.
    </p>
    <a href="{{.URL}}" style="display:inline-block;background:#008c87;color:#fff;text-decoration:none;padding:14px 36px;border-radius:50px;font-size:14px;font-weight:700">Redefinir minha senha</a>
    <p style="color:#7fa9a8;font-size:11px;margin:20px 0 0">Link válido por 1 hora. Se não foi você, ignore este e-mail.</p>
  </td></tr>
  <tr><td style="background:#f4fbfb;padding:20px 48px;text-align:center">
    <p style="margin:0;font-size:11px;color:#7fa9a8">© 2025 AnestConsulta</p>
  </td></tr>
</table></td></tr></table>
</body></html>`))
