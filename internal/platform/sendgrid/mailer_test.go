package sendgrid

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmolloy/cartminder/internal/config"
	"github.com/jmolloy/cartminder/internal/domain"
)

func validMailConfig() config.MailConfig {
	return config.MailConfig{
		SendGridAPIKey: "SG.test-key",
		FromAddress:    "reminders@example.com",
		FromName:       "Cartminder",
	}
}

func TestNewMailer(t *testing.T) {
	t.Parallel()

	t.Run("valid config", func(t *testing.T) {
		t.Parallel()

		mailer, err := NewMailer(validMailConfig(), nil)
		require.NoError(t, err)
		assert.NotNil(t, mailer)
	})

	t.Run("missing api key", func(t *testing.T) {
		t.Parallel()

		cfg := validMailConfig()
		cfg.SendGridAPIKey = ""
		_, err := NewMailer(cfg, nil)
		assert.Error(t, err)
	})

	t.Run("missing from address", func(t *testing.T) {
		t.Parallel()

		cfg := validMailConfig()
		cfg.FromAddress = ""
		_, err := NewMailer(cfg, nil)
		assert.Error(t, err)
	})
}

func TestSendReminderInputValidation(t *testing.T) {
	t.Parallel()

	mailer, err := NewMailer(validMailConfig(), nil)
	require.NoError(t, err)

	t.Run("nil cart", func(t *testing.T) {
		t.Parallel()
		assert.Error(t, mailer.SendReminder(context.Background(), nil, domain.ReminderStepFirst))
	})

	t.Run("cart without email", func(t *testing.T) {
		t.Parallel()

		cart := &domain.Cart{ID: 42}
		assert.Error(t, mailer.SendReminder(context.Background(), cart, domain.ReminderStepFirst))
	})

	t.Run("cancelled context short-circuits before the API call", func(t *testing.T) {
		t.Parallel()

		cart, err := domain.NewCart(nil, "shopper@example.com")
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err = mailer.SendReminder(ctx, cart, domain.ReminderStepFirst)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestReminderBody(t *testing.T) {
	t.Parallel()

	cart, err := domain.NewCart(nil, "shopper@example.com")
	require.NoError(t, err)
	cart.ID = 42
	require.NoError(t, cart.AddItem(101, 2))
	require.NoError(t, cart.AddItem(102, 1))

	tests := []struct {
		step domain.ReminderStep
		want string
	}{
		{step: domain.ReminderStepFirst, want: "You left some items in your cart."},
		{step: domain.ReminderStepSecond, want: "Your cart is still waiting for you."},
		{step: domain.ReminderStepThird, want: "Last chance: your cart will not wait forever."},
	}

	for _, tc := range tests {
		body := reminderBody(cart, tc.step)
		assert.Contains(t, body, tc.want, "step %s", tc.step)
		assert.Contains(t, body, "3 item(s)")
		assert.Contains(t, body, "cart #42")
	}
}
