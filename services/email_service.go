package services

import (
	"bytes"
	"context"
	"crypto/tls"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/smtp"
	"strings"

	"github.com/nhsf/dharmic-games/config"
	"github.com/nhsf/dharmic-games/models"
	"github.com/nhsf/dharmic-games/utils"
)

//go:embed templates/emails/*.html
var emailTemplates embed.FS

// Notifier tells applicants about the outcome of their request.
type Notifier interface {
	AdminRequestReviewed(ctx context.Context, req *models.AdminRequest) error
	UniversityRequestReviewed(ctx context.Context, req *models.UniversityRequest) error
}

type NopNotifier struct{}

func (NopNotifier) AdminRequestReviewed(context.Context, *models.AdminRequest) error { return nil }
func (NopNotifier) UniversityRequestReviewed(context.Context, *models.UniversityRequest) error {
	return nil
}

// mailSender delivers one HTML message; swapped out in tests.
type mailSender func(to []string, subject, body string) error

type EmailService struct {
	cfg       *config.Config
	templates *template.Template
	send      mailSender
	logger    *slog.Logger
}

func NewEmailService(cfg *config.Config, logger *slog.Logger) (*EmailService, error) {
	tmpl, err := template.ParseFS(emailTemplates, "templates/emails/*.html")
	if err != nil {
		return nil, fmt.Errorf("ошибка парсинга шаблонов писем: %w", err)
	}
	s := &EmailService{cfg: cfg, templates: tmpl, logger: logger}
	s.send = s.SendEmail
	return s, nil
}

func (s *EmailService) SendEmail(to []string, subject string, body string) error {
	auth := smtp.PlainAuth("", s.cfg.SMTPUser, s.cfg.SMTPPass, s.cfg.SMTPHost)

	msg := []byte("To: " + strings.Join(to, ", ") + "\r\n" +
		"From: " + s.cfg.SMTPFrom + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"MIME-version: 1.0;\r\nContent-Type: text/html; charset=\"UTF-8\";\r\n" +
		"\r\n" +
		body + "\r\n")

	addr := fmt.Sprintf("%s:%d", s.cfg.SMTPHost, s.cfg.SMTPPort)
	tlsconfig := &tls.Config{ServerName: s.cfg.SMTPHost}

	var client *smtp.Client
	if s.cfg.SMTPPort == 465 {
		// Прямое TLS-соединение (обычно порт 465)
		conn, err := tls.Dial("tcp", addr, tlsconfig)
		if err != nil {
			return fmt.Errorf("ошибка TLS соединения: %w", err)
		}
		client, err = smtp.NewClient(conn, s.cfg.SMTPHost)
		if err != nil {
			conn.Close()
			return fmt.Errorf("ошибка создания SMTP клиента: %w", err)
		}
	} else {
		// STARTTLS (обычно порт 587)
		c, err := smtp.Dial(addr)
		if err != nil {
			return fmt.Errorf("ошибка соединения SMTP: %w", err)
		}
		client = c
		if err = client.StartTLS(tlsconfig); err != nil {
			client.Close()
			return fmt.Errorf("ошибка команды STARTTLS: %w", err)
		}
	}
	defer client.Quit()

	if s.cfg.SMTPUser != "" {
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("ошибка аутентификации SMTP: %w", err)
		}
	}
	if err := client.Mail(s.cfg.SMTPFrom); err != nil {
		return fmt.Errorf("ошибка MAIL FROM: %w", err)
	}
	for _, rcpt := range to {
		if err := client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("ошибка RCPT TO: %w", err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("ошибка команды DATA: %w", err)
	}
	if _, err = w.Write(msg); err != nil {
		return fmt.Errorf("ошибка записи сообщения: %w", err)
	}
	if err = w.Close(); err != nil {
		return fmt.Errorf("ошибка закрытия DATA: %w", err)
	}
	return nil
}

func (s *EmailService) GenerateEmailBody(name string, data interface{}) (string, error) {
	var body bytes.Buffer
	if err := s.templates.ExecuteTemplate(&body, name, data); err != nil {
		return "", fmt.Errorf("ошибка выполнения шаблона %s: %w", name, err)
	}
	return body.String(), nil
}

func (s *EmailService) AdminRequestReviewed(ctx context.Context, req *models.AdminRequest) error {
	approved := req.Status == models.RequestStatusApproved
	subject := "Your Dharmic Games admin request was declined"
	if approved {
		subject = "Your Dharmic Games admin access is ready"
	}
	body, err := s.GenerateEmailBody("admin_request_reviewed.html", struct {
		Name     string
		Approved bool
		Reason   string
	}{req.Name, approved, utils.Deref(req.Reason)})
	if err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "Sending admin request notification", slog.Int("request_id", req.ID), slog.Bool("approved", approved))
	return s.send([]string{req.Email}, subject, body)
}

func (s *EmailService) UniversityRequestReviewed(ctx context.Context, req *models.UniversityRequest) error {
	approved := req.Status == models.RequestStatusApproved
	subject := fmt.Sprintf("%s: registration declined", req.UniversityName)
	if approved {
		subject = fmt.Sprintf("%s is registered for the Dharmic Games", req.UniversityName)
	}
	body, err := s.GenerateEmailBody("university_request_reviewed.html", struct {
		ContactName    string
		UniversityName string
		Zone           models.Zone
		Sports         []string
		Approved       bool
		Reason         string
	}{req.ContactName, req.UniversityName, req.Zone, req.Sports, approved, utils.Deref(req.Reason)})
	if err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "Sending university request notification", slog.Int("request_id", req.ID), slog.Bool("approved", approved))
	return s.send([]string{req.ContactEmail}, subject, body)
}
