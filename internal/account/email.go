package account

import (
	"context"
	"errors"
	"fmt"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/dressing-intelligent/wardrobe-backend/pkg/config"
	"github.com/dressing-intelligent/wardrobe-backend/pkg/logger"
)

const senderName = "Dressing Intelligent"

type sendgridClient interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

// Mailer sends transactional account emails through SendGrid.
type Mailer struct {
	client sendgridClient
	from   string
	logg   *logger.Logger
}

// NewMailer constructs a SendGrid-backed mailer.
func NewMailer(cfg config.SendgridConfig, logg *logger.Logger) (*Mailer, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("sendgrid api key is required")
	}
	if cfg.DefaultFrom == "" {
		return nil, errors.New("sendgrid sender address is required")
	}
	return &Mailer{
		client: sendgrid.NewSendClient(cfg.APIKey),
		from:   cfg.DefaultFrom,
		logg:   logg,
	}, nil
}

// SendAccountDeleted confirms the account removal to the user's address.
func (m *Mailer) SendAccountDeleted(ctx context.Context, email string) error {
	from := mail.NewEmail(senderName, m.from)
	to := mail.NewEmail("", email)
	subject := "Votre compte a été supprimé"
	text := "Votre compte Dressing Intelligent et toutes les données associées ont été supprimés."
	html := "<p>Votre compte Dressing Intelligent et toutes les données associées ont été supprimés.</p>"
	message := mail.NewSingleEmail(from, subject, to, text, html)

	resp, err := m.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("sending account deletion email: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("sendgrid rejected email with status %d", resp.StatusCode)
	}
	return nil
}
