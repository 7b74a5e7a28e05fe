package mailer

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/confhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/email"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type fakeTransport struct {
	got []email.Message
	err error
}

func (f *fakeTransport) Send(_ context.Context, msg email.Message) error {
	f.got = append(f.got, msg)
	return f.err
}

func TestSendContext_HandsMessageToTransport(t *testing.T) {
	ft := &fakeTransport{}
	m := NewWithTransport(ft)

	err := m.SendContext(context.Background(), Email{
		To:       "ada@example.com",
		Subject:  "Welcome",
		TextBody: "plain",
		HTMLBody: "<p>rich</p>",
	})
	if err != nil {
		t.Fatalf("SendContext: %v", err)
	}
	if len(ft.got) != 1 {
		t.Fatalf("expected 1 message, got %d", len(ft.got))
	}
	msg := ft.got[0]
	if len(msg.To) != 1 || msg.To[0] != "ada@example.com" {
		t.Errorf("To: got %v", msg.To)
	}
	if msg.Subject != "Welcome" || msg.TextBody != "plain" || msg.HTMLBody != "<p>rich</p>" {
		t.Errorf("message fields not carried over: %+v", msg)
	}
}

func TestSendContext_Errors(t *testing.T) {
	transportErr := errors.New("relay refused")

	tests := []struct {
		name string
		m    *Mailer
		e    Email
		want error
	}{
		{"unconfigured", New(Config{}), Email{To: "ada@example.com", TextBody: "x"}, nil},
		{"nil mailer", nil, Email{To: "ada@example.com", TextBody: "x"}, nil},
		{"bad recipient", NewWithTransport(&fakeTransport{}), Email{To: "not-an-address", TextBody: "x"}, nil},
		{"empty body", NewWithTransport(&fakeTransport{}), Email{To: "ada@example.com"}, nil},
		{"transport failure", NewWithTransport(&fakeTransport{err: transportErr}), Email{To: "ada@example.com", TextBody: "x"}, transportErr},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.m.SendContext(context.Background(), tt.e)
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestNew_ConfiguredUsesSender(t *testing.T) {
	m := New(Config{Host: "smtp.example.com", Port: 587, From: "noreply@example.com"})
	if _, ok := m.tr.(*email.Sender); !ok {
		t.Errorf("transport: got %T, want *email.Sender", m.tr)
	}
}

func TestNotifier_OverMailer(t *testing.T) {
	ft := &fakeTransport{}
	n := NewNotifier(NewWithTransport(ft), "ConfHub")

	if err := n.RegistrationReceived(context.Background(), participantFixture()); err != nil {
		t.Fatalf("RegistrationReceived: %v", err)
	}
	if len(ft.got) != 1 || !strings.HasPrefix(ft.got[0].Subject, "ConfHub") {
		t.Errorf("unexpected messages: %+v", ft.got)
	}
}

func TestTemplates(t *testing.T) {
	reg := BuildRegistrationEmail(RegistrationEmailData{
		SiteName:         "ConfHub 2026",
		FirstName:        "<Ada>",
		RegistrationType: "attendance",
		ReferenceID:      "abc123",
	})
	if reg.Subject != "ConfHub 2026: registration received" {
		t.Errorf("Subject: got %q", reg.Subject)
	}
	if !strings.Contains(reg.TextBody, "abc123") {
		t.Error("text body missing reference")
	}
	if strings.Contains(reg.HTMLBody, "<Ada>") || !strings.Contains(reg.HTMLBody, "&lt;Ada&gt;") {
		t.Error("html body must escape participant input")
	}

	pay := BuildPaymentEmail(PaymentEmailData{
		SiteName:    "ConfHub 2026",
		FirstName:   "Ada",
		ReferenceID: "abc123",
		PaidAt:      "Fri, 01 May 2026",
	})
	if strings.Contains(pay.TextBody, "Method:") {
		t.Error("empty method should be omitted")
	}
	if !strings.Contains(pay.HTMLBody, "Fri, 01 May 2026") {
		t.Error("html body missing paid date")
	}
}

type captureSender struct {
	got []Email
}

func (c *captureSender) SendContext(_ context.Context, e Email) error {
	c.got = append(c.got, e)
	return nil
}

func TestNotifier(t *testing.T) {
	cs := &captureSender{}
	n := NewNotifier(cs, "ConfHub")

	p := participantFixture()
	if err := n.RegistrationReceived(context.Background(), p); err != nil {
		t.Fatalf("RegistrationReceived: %v", err)
	}
	if err := n.PaymentConfirmed(context.Background(), p); err != nil {
		t.Fatalf("PaymentConfirmed: %v", err)
	}
	if len(cs.got) != 2 {
		t.Fatalf("expected 2 emails, got %d", len(cs.got))
	}
	for _, e := range cs.got {
		if e.To != p.Email {
			t.Errorf("To: got %q, want %q", e.To, p.Email)
		}
	}
	if !strings.Contains(cs.got[1].TextBody, "tx-7") {
		t.Errorf("payment email missing transaction ref: %q", cs.got[1].TextBody)
	}
}

func participantFixture() models.Participant {
	paid := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	return models.Participant{
		ID:               primitive.NewObjectID(),
		FirstName:        "Ada",
		Email:            "ada@example.com",
		RegistrationType: models.RegistrationOnsitePaper,
		PaymentStatus:    models.PaymentCompleted,
		PaymentMethod:    "card",
		TransactionRef:   "tx-7",
		PaidAt:           &paid,
	}
}
