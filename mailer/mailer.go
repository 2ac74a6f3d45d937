// Verification mail for the email binding flow
package mailer

import (
	"context"
	"fmt"

	"habitbot/config"
	"habitbot/utils"

	"github.com/wneessen/go-mail"
	"go.uber.org/zap"
)

const subject = "Your habit tracker verification code"

// Sender is satisfied by *mail.Client
type Sender interface {
	DialAndSendWithContext(ctx context.Context, ml ...*mail.Msg) error
}

type Mailer struct {
	From   string
	Sender Sender
	Logger *zap.Logger
}

// New dials cfg.Host on every send, without a host codes are only logged
func New(cfg config.Mail, logger *zap.Logger) (*Mailer, error) {
	m := &Mailer{From: cfg.From, Logger: logger}

	if cfg.Host == "" {
		return m, nil
	}

	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}

	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}

	c, err := mail.NewClient(cfg.Host, opts...)

	if err != nil {
		return nil, fmt.Errorf("mail client: %w", err)
	}

	m.Sender = c
	return m, nil
}

func body(code string) string {
	return "Your verification code is " + code + "\n\nSend it to the bot to finish binding this address. If you did not ask for it, ignore this mail.\n"
}

func (m *Mailer) message(email, code string) (*mail.Msg, error) {
	msg := mail.NewMsg()

	if err := msg.From(m.From); err != nil {
		return nil, fmt.Errorf("from: %w", err)
	}

	if err := msg.To(email); err != nil {
		return nil, fmt.Errorf("to: %w", err)
	}

	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body(code))

	return msg, nil
}

// SendVerificationCode mails a fresh code to email and returns it
func (m *Mailer) SendVerificationCode(ctx context.Context, email string) (string, error) {
	code, err := utils.GenerateCode(utils.CodeDigits)

	if err != nil {
		return "", err
	}

	msg, err := m.message(email, code)

	if err != nil {
		return "", err
	}

	if m.Sender == nil {
		m.Logger.Info("Mail delivery disabled, logging verification code", zap.String("email", utils.MaskEmail(email)), zap.String("code", code))
		return code, nil
	}

	if err := m.Sender.DialAndSendWithContext(ctx, msg); err != nil {
		return "", fmt.Errorf("send verification mail: %w", err)
	}

	m.Logger.Debug("Sent verification code", zap.String("email", utils.MaskEmail(email)))
	return code, nil
}
