// Package mailer delivers OTP codes to parents over SMTP.
package mailer

import (
	"fmt"
	"log"
	"net/smtp"
)

type Sender interface {
	SendOTP(email, code string, expiresMinutes int) error
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type SMTPSender struct {
	cfg SMTPConfig
}

func NewSMTP(cfg SMTPConfig) *SMTPSender {
	return &SMTPSender{cfg: cfg}
}

func (s *SMTPSender) SendOTP(email, code string, expiresMinutes int) error {
	body := fmt.Sprintf(
		"Your OTP code is %s. It expires in %d minutes.\r\n\r\nIf you did not request this, please ignore.",
		code, expiresMinutes,
	)
	msg := []byte(
		"From: " + s.cfg.From + "\r\n" +
			"To: " + email + "\r\n" +
			"Subject: Your AIDIY OTP Code\r\n\r\n" +
			body,
	)
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	return smtp.SendMail(addr, auth, s.cfg.From, []string{email}, msg)
}

// LogSender prints codes to the server log instead of sending mail.
// Used in development or when SMTP credentials are missing.
type LogSender struct{}

func (LogSender) SendOTP(email, code string, expiresMinutes int) error {
	log.Printf("[DEV] OTP for %s: %s (expires in %d min)", email, code, expiresMinutes)
	return nil
}
