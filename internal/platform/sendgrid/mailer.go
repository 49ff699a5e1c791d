// Package sendgrid delivers reminder emails through the SendGrid API.
package sendgrid

import (
	"context"
	"fmt"
	"log/slog"

	sendgridapi "github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/jmolloy/cartminder/internal/config"
	"github.com/jmolloy/cartminder/internal/domain"
	"github.com/jmolloy/cartminder/internal/service"
)

// reminderSubject is the subject line shared by every reminder step.
const reminderSubject = "Complete your cart with us"

// Mailer implements the service.ReminderMailer interface using SendGrid.
type Mailer struct {
	apiKey      string
	fromAddress string
	fromName    string
	logger      *slog.Logger
}

// NewMailer creates a Mailer from mail configuration.
// If logger is nil, a default logger will be used.
func NewMailer(cfg config.MailConfig, logger *slog.Logger) (*Mailer, error) {
	if cfg.SendGridAPIKey == "" {
		return nil, fmt.Errorf("sendgrid api key is empty")
	}
	if cfg.FromAddress == "" {
		return nil, fmt.Errorf("from address is empty")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Mailer{
		apiKey:      cfg.SendGridAPIKey,
		fromAddress: cfg.FromAddress,
		fromName:    cfg.FromName,
		logger:      logger.With(slog.String("component", "sendgrid_mailer")),
	}, nil
}

// Ensure Mailer implements service.ReminderMailer
var _ service.ReminderMailer = (*Mailer)(nil)

// SendReminder builds and sends the reminder email for the given step.
func (m *Mailer) SendReminder(ctx context.Context, cart *domain.Cart, step domain.ReminderStep) error {
	if cart == nil {
		return fmt.Errorf("cart is nil")
	}
	if cart.Email == "" {
		return fmt.Errorf("cart %d has no email address", cart.ID)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	from := mail.NewEmail(m.fromName, m.fromAddress)
	to := mail.NewEmail("", cart.Email)

	body := reminderBody(cart, step)
	message := mail.NewSingleEmail(
		from,
		reminderSubject,
		to,
		body,
		fmt.Sprintf("<pre>%s</pre>", body),
	)

	client := sendgridapi.NewSendClient(m.apiKey)

	response, err := client.Send(message)
	if err != nil {
		return fmt.Errorf("sendgrid send error: %w", err)
	}

	if response.StatusCode >= 400 {
		m.logger.Error("sendgrid rejected reminder",
			"cart_id", cart.ID,
			"step", step,
			"status", response.StatusCode,
			"body", response.Body)
		return fmt.Errorf("sendgrid send failed: status=%d", response.StatusCode)
	}

	m.logger.Info("reminder email delivered",
		"cart_id", cart.ID,
		"step", step,
		"to", cart.Email,
		"status", response.StatusCode)

	return nil
}

// reminderBody renders the plain text body for a reminder step. The tone
// escalates across the sequence while the subject stays constant.
func reminderBody(cart *domain.Cart, step domain.ReminderStep) string {
	itemCount := 0
	for _, item := range cart.Items {
		itemCount += item.Quantity
	}

	var lead string
	switch step {
	case domain.ReminderStepSecond:
		lead = "Your cart is still waiting for you."
	case domain.ReminderStepThird:
		lead = "Last chance: your cart will not wait forever."
	default:
		lead = "You left some items in your cart."
	}

	return fmt.Sprintf(
		"%s\n\nYou have %d item(s) saved in cart #%d.\nCome back and finish your order whenever you are ready.\n",
		lead,
		itemCount,
		cart.ID,
	)
}
