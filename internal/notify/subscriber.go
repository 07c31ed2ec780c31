// Package notify fans domain events out to email, best-effort. It never
// blocks or fails the publishing transaction — it runs downstream of the
// outbox dispatcher, the same place every other subscriber runs.
package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"foodcourt/internal/eventbus"
	"foodcourt/internal/logger"

	"github.com/matcornic/hermes/v2"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"
)

type Subscriber struct {
	client    *sendgrid.Client
	fromEmail string
	fromName  string
	hermes    hermes.Hermes
}

func NewSubscriber(apiKey, fromEmail, fromName, productName string) *Subscriber {
	return &Subscriber{
		client:    sendgrid.NewSendClient(apiKey),
		fromEmail: fromEmail,
		fromName:  fromName,
		hermes: hermes.Hermes{
			Product: hermes.Product{
				Name: productName,
			},
		},
	}
}

func (s *Subscriber) Name() string { return "notify" }

func (s *Subscriber) Handle(ctx context.Context, event eventbus.Event) error {
	log := logger.GetLogger(ctx)

	switch event.Kind {
	case eventbus.KindShiftMissed:
		var p eventbus.ShiftMissedPayload
		if err := json.Unmarshal(event.Payload, &p); err != nil {
			return err
		}
		return s.sendEmployeeNotice(ctx, "Missed shift recorded",
			fmt.Sprintf("Shift %s was not clocked into within the grace window and has been marked a no-show.", p.ShiftID))

	case eventbus.KindInviteConsumed:
		var p eventbus.InviteConsumedPayload
		if err := json.Unmarshal(event.Payload, &p); err != nil {
			return err
		}
		return s.sendEmployeeNotice(ctx, "Invite accepted",
			fmt.Sprintf("Invite %s was accepted and created employee %s.", p.InviteID, p.EmployeeID))

	default:
		log.Debug("[NOTIFY] action=ignored_event", zap.String("kind", string(event.Kind)))
		return nil
	}
}

// sendEmployeeNotice renders a hermes email and delivers it via SendGrid.
// The message is addressed to the configured sender address (fromEmail); no
// employee or restaurant recipient is looked up.
func (s *Subscriber) sendEmployeeNotice(ctx context.Context, subject, body string) error {
	email := hermes.Email{
		Body: hermes.Body{
			Intros: []string{body},
		},
	}
	html, err := s.hermes.GenerateHTML(email)
	if err != nil {
		return fmt.Errorf("render notification email: %w", err)
	}
	plain, err := s.hermes.GeneratePlainText(email)
	if err != nil {
		return fmt.Errorf("render notification email: %w", err)
	}

	from := mail.NewEmail(s.fromName, s.fromEmail)
	to := mail.NewEmail("", s.fromEmail)
	message := mail.NewSingleEmail(from, subject, to, plain, html)

	resp, err := s.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("sendgrid send failed: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("sendgrid returned status %d", resp.StatusCode)
	}
	return nil
}
