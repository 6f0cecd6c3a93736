package services

import (
	"fmt"

	"gopkg.in/gomail.v2"

	"racingplate/internal/config"
)

type EmailService interface {
	SendVerificationEmail(email, code string) error
	SendPasswordResetEmail(email, code string) error
}

type emailService struct {
	dialer *gomail.Dialer
	from   string
}

func NewEmailService(cfg config.EmailConfig) EmailService {
	dialer := gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword)
	return &emailService{
		dialer: dialer,
		from:   cfg.FromEmail,
	}
}

const codeBodyTemplate = `
	<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
		<h2>%s</h2>
		<p>%s</p>
		<div style="background-color: #f0f0f0; padding: 20px; text-align: center; font-size: 24px; font-weight: bold; letter-spacing: 5px;">
			%s
		</div>
		<p>This code will expire in 10 minutes.</p>
		<p>If you didn't request this, please ignore this email.</p>
	</div>
`

func (s *emailService) send(to, subject, title, intro, code string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", fmt.Sprintf(codeBodyTemplate, title, intro, code))

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}
	return nil
}

func (s *emailService) SendVerificationEmail(email, code string) error {
	return s.send(email,
		"Verify Your Racing Plate Account",
		"Welcome to Racing Plate!",
		"Your verification code is:",
		code)
}

func (s *emailService) SendPasswordResetEmail(email, code string) error {
	return s.send(email,
		"Reset Your Racing Plate Password",
		"Reset Your Password",
		"Your password reset code is:",
		code)
}
