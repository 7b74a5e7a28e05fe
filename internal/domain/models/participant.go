// internal/domain/models/participant.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PaymentStatus is the financial lifecycle state of a Participant.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentCancelled PaymentStatus = "cancelled"
)

// Valid reports whether s is a known payment status.
func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentPending, PaymentCompleted, PaymentCancelled:
		return true
	}
	return false
}

// RegistrationType is chosen once at registration and never changes.
type RegistrationType string

const (
	RegistrationOnsitePaper RegistrationType = "onsite-paper"
	RegistrationOnlinePaper RegistrationType = "online-paper"
	RegistrationAttendance  RegistrationType = "attendance"
)

// Valid reports whether t is a known registration type.
func (t RegistrationType) Valid() bool {
	switch t {
	case RegistrationOnsitePaper, RegistrationOnlinePaper, RegistrationAttendance:
		return true
	}
	return false
}

// Participant is a conference registration owned by exactly one Account.
// AccountID carries a unique index; a second registration for the same
// account is rejected by the store.
type Participant struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	AccountID primitive.ObjectID `bson:"account_id" json:"account_id"`

	FirstName   string `bson:"first_name" json:"first_name"`
	LastName    string `bson:"last_name" json:"last_name"`
	Email       string `bson:"email" json:"email"`
	Phone       string `bson:"phone,omitempty" json:"phone,omitempty"`
	Affiliation string `bson:"affiliation,omitempty" json:"affiliation,omitempty"`
	Country     string `bson:"country,omitempty" json:"country,omitempty"`

	RegistrationType RegistrationType `bson:"registration_type" json:"registration_type"`

	PaymentStatus  PaymentStatus `bson:"payment_status" json:"payment_status"`
	PaymentMethod  string        `bson:"payment_method,omitempty" json:"payment_method,omitempty"`
	TransactionRef string        `bson:"transaction_ref,omitempty" json:"transaction_ref,omitempty"`
	PaidAt         *time.Time    `bson:"paid_at,omitempty" json:"paid_at,omitempty"`

	ArrivalDate        *time.Time `bson:"arrival_date,omitempty" json:"arrival_date,omitempty"`
	DepartureDate      *time.Time `bson:"departure_date,omitempty" json:"departure_date,omitempty"`
	AccommodationNotes string     `bson:"accommodation_notes,omitempty" json:"accommodation_notes,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
