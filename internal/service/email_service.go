package service

import (
	"bytes"
	"crypto/tls"
	"fmt"
	"mime"
	"net/mail"
	"net/smtp"
	"strings"
	"time"

	"github.com/hortafresh/backoffice/internal/config"
	"github.com/hortafresh/backoffice/internal/constants"
	"github.com/hortafresh/backoffice/internal/models"
)

// EmailService sends transactional mail over plain SMTP.
type EmailService struct {
	cfg *config.EmailConfig
}

// NewEmailService creates the email service.
func NewEmailService(cfg *config.EmailConfig) *EmailService {
	return &EmailService{cfg: cfg}
}

// SetConfig swaps the runtime SMTP configuration.
func (s *EmailService) SetConfig(cfg *config.EmailConfig) {
	if cfg == nil {
		return
	}
	s.cfg = cfg
}

// OrderStatusEmailInput carries the order fields shown in status mail.
type OrderStatusEmailInput struct {
	OrderNo          string
	Status           string
	Amount           models.Money
	DeliveryDate     *time.Time
	DeliveryTimeSlot string
	CancelReason     string
}

// SendOrderStatusEmail notifies a customer about an order status change.
// Messages are written in Brazilian Portuguese.
func (s *EmailService) SendOrderStatusEmail(toEmail string, input OrderStatusEmailInput) error {
	subject, body := buildOrderStatusContent(input)
	return s.sendTextEmail(toEmail, subject, body)
}

// SendCustomEmail sends a free-form message, used by the SMTP settings test.
func (s *EmailService) SendCustomEmail(toEmail, subject, body string) error {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		subject = "Teste de configuração SMTP"
	}
	body = strings.TrimSpace(body)
	if body == "" {
		body = "Este é um e-mail de teste da HortaFresh. Se você o recebeu, a configuração SMTP está funcionando."
	}
	return s.sendTextEmail(toEmail, subject, body)
}

func (s *EmailService) sendTextEmail(toEmail, subject, body string) error {
	if s.cfg == nil || !s.cfg.Enabled {
		return ErrEmailServiceDisabled
	}
	if s.cfg.Host == "" || s.cfg.Port == 0 || s.cfg.From == "" {
		return ErrEmailServiceNotConfigured
	}
	if _, err := mail.ParseAddress(toEmail); err != nil {
		return ErrInvalidEmail
	}

	from := buildFromAddress(s.cfg.From, s.cfg.FromName)
	msg := buildEmailMessage(from, toEmail, subject, body)

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	var auth smtp.Auth
	if s.cfg.Username != "" || s.cfg.Password != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}

	if s.cfg.UseSSL {
		return normalizeEmailSendError(sendMailWithSSL(addr, auth, s.cfg.Host, s.cfg.From, []string{toEmail}, []byte(msg)))
	}
	if s.cfg.UseTLS {
		return normalizeEmailSendError(sendMailWithStartTLS(addr, auth, s.cfg.Host, s.cfg.From, []string{toEmail}, []byte(msg)))
	}
	return normalizeEmailSendError(sendMailPlain(addr, auth, s.cfg.Host, s.cfg.From, []string{toEmail}, []byte(msg)))
}

func buildOrderStatusContent(input OrderStatusEmailInput) (string, string) {
	amount := "R$ " + input.Amount.String()
	window := formatDeliveryWindow(input.DeliveryDate, input.DeliveryTimeSlot)

	switch strings.ToLower(strings.TrimSpace(input.Status)) {
	case constants.PaymentStatusConfirmed:
		subject := fmt.Sprintf("Pedido %s confirmado", input.OrderNo)
		body := fmt.Sprintf("Recebemos o pagamento do pedido %s no valor de %s.", input.OrderNo, amount)
		if window != "" {
			body += fmt.Sprintf("\n\nSua entrega está programada para %s.", window)
		}
		return subject, body
	case constants.DeliveryStatusEnRoute:
		subject := fmt.Sprintf("Pedido %s saiu para entrega", input.OrderNo)
		body := fmt.Sprintf("O pedido %s saiu para entrega.", input.OrderNo)
		if window != "" {
			body += fmt.Sprintf(" Janela prevista: %s.", window)
		}
		return subject, body
	case constants.DeliveryStatusDelivered:
		subject := fmt.Sprintf("Pedido %s entregue", input.OrderNo)
		body := fmt.Sprintf("O pedido %s foi entregue. Bom apetite!", input.OrderNo)
		return subject, body
	case constants.DeliveryStatusCanceled:
		subject := fmt.Sprintf("Pedido %s cancelado", input.OrderNo)
		body := fmt.Sprintf("O pedido %s no valor de %s foi cancelado.", input.OrderNo, amount)
		if reason := strings.TrimSpace(input.CancelReason); reason != "" {
			body += fmt.Sprintf("\n\nMotivo: %s", reason)
		}
		return subject, body
	default:
		subject := fmt.Sprintf("Atualização do pedido %s", input.OrderNo)
		body := fmt.Sprintf("O pedido %s no valor de %s foi atualizado. Status atual: %s.", input.OrderNo, amount, input.Status)
		return subject, body
	}
}

func formatDeliveryWindow(date *time.Time, slot string) string {
	if date == nil {
		return ""
	}
	formatted := date.Format("02/01/2006")
	switch slot {
	case constants.TimeSlotMorning:
		return formatted + " pela manhã"
	case constants.TimeSlotAfternoon:
		return formatted + " à tarde"
	default:
		return formatted
	}
}

func buildFromAddress(from, name string) string {
	if strings.TrimSpace(name) == "" {
		return from
	}
	encoded := mime.QEncoding.Encode("UTF-8", name)
	return (&mail.Address{Name: encoded, Address: from}).String()
}

func buildEmailMessage(from, to, subject, body string) string {
	var buf bytes.Buffer
	buf.WriteString(fmt.Sprintf("From: %s\r\n", from))
	buf.WriteString(fmt.Sprintf("To: %s\r\n", to))
	buf.WriteString(fmt.Sprintf("Subject: %s\r\n", mime.QEncoding.Encode("UTF-8", subject)))
	buf.WriteString("MIME-Version: 1.0\r\n")
	buf.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	buf.WriteString("\r\n")
	buf.WriteString(body)
	return buf.String()
}

func sendMailWithSSL(addr string, auth smtp.Auth, host, from string, to []string, msg []byte) error {
	conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: host})
	if err != nil {
		return err
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, host)
	if err != nil {
		return err
	}
	defer client.Close()

	if auth != nil {
		if ok, _ := client.Extension("AUTH"); ok {
			if err := client.Auth(auth); err != nil {
				return err
			}
		}
	}

	return sendSMTPData(client, from, to, msg)
}

func sendMailWithStartTLS(addr string, auth smtp.Auth, host, from string, to []string, msg []byte) error {
	client, err := smtp.Dial(addr)
	if err != nil {
		return err
	}
	defer client.Close()

	if err := client.StartTLS(&tls.Config{ServerName: host}); err != nil {
		return err
	}

	if auth != nil {
		if ok, _ := client.Extension("AUTH"); ok {
			if err := client.Auth(auth); err != nil {
				return err
			}
		}
	}

	return sendSMTPData(client, from, to, msg)
}

func sendMailPlain(addr string, auth smtp.Auth, host, from string, to []string, msg []byte) error {
	client, err := smtp.Dial(addr)
	if err != nil {
		return err
	}
	defer client.Close()

	if auth != nil {
		if ok, _ := client.Extension("AUTH"); ok {
			if err := client.Auth(auth); err != nil {
				return err
			}
		}
	}

	return sendSMTPData(client, from, to, msg)
}

func sendSMTPData(client *smtp.Client, from string, to []string, msg []byte) error {
	if err := client.Mail(from); err != nil {
		return err
	}
	for _, rcpt := range to {
		if err := client.Rcpt(rcpt); err != nil {
			return err
		}
	}
	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return client.Quit()
}

func normalizeEmailSendError(err error) error {
	if err == nil {
		return nil
	}
	if isEmailRecipientRejected(err) {
		return ErrEmailRecipientRejected
	}
	return err
}

func isEmailRecipientRejected(err error) bool {
	if err == nil {
		return false
	}
	message := strings.ToLower(strings.TrimSpace(err.Error()))
	if message == "" {
		return false
	}
	directKeywords := []string{
		"no such recipient",
		"no such user",
		"recipient not found",
		"recipient address rejected",
		"invalid recipient",
		"user unknown",
		"unknown user",
		"unknown mailbox",
		"mailbox unavailable",
	}
	for _, keyword := range directKeywords {
		if strings.Contains(message, keyword) {
			return true
		}
	}
	if strings.Contains(message, "550") {
		hints := []string{"recipient", "user", "mailbox", "address", "rcpt"}
		for _, hint := range hints {
			if strings.Contains(message, hint) {
				return true
			}
		}
	}
	return false
}
