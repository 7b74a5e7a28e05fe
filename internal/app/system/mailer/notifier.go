package mailer

import (
	"context"
	"time"

	"github.com/dalemusser/confhub/internal/domain/models"
)

// Sender delivers one email. *Mailer implements it.
type Sender interface {
	SendContext(ctx context.Context, e Email) error
}

// Notifier renders participant emails and hands them to a Sender.
type Notifier struct {
	sender   Sender
	siteName string
}

// NewNotifier builds a Notifier.
func NewNotifier(sender Sender, siteName string) *Notifier {
	return &Notifier{sender: sender, siteName: siteName}
}

// RegistrationReceived acknowledges a new, still unpaid registration.
func (n *Notifier) RegistrationReceived(ctx context.Context, p models.Participant) error {
	e := BuildRegistrationEmail(RegistrationEmailData{
		SiteName:         n.siteName,
		FirstName:        p.FirstName,
		RegistrationType: string(p.RegistrationType),
		ReferenceID:      p.ID.Hex(),
	})
	e.To = p.Email
	return n.sender.SendContext(ctx, e)
}

// PaymentConfirmed tells the participant their payment was recorded.
func (n *Notifier) PaymentConfirmed(ctx context.Context, p models.Participant) error {
	paid := "now"
	if p.PaidAt != nil {
		paid = p.PaidAt.UTC().Format(time.RFC1123)
	}
	e := BuildPaymentEmail(PaymentEmailData{
		SiteName:         n.siteName,
		FirstName:        p.FirstName,
		RegistrationType: string(p.RegistrationType),
		ReferenceID:      p.ID.Hex(),
		Method:           p.PaymentMethod,
		TransactionRef:   p.TransactionRef,
		PaidAt:           paid,
	})
	e.To = p.Email
	return n.sender.SendContext(ctx, e)
}
