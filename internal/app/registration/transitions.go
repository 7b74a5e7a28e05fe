package registration

import "github.com/dalemusser/confhub/internal/domain/models"

// transitions lists the payment-status moves accepted without an override.
// Self-transitions are allowed so method and reference can be corrected.
var transitions = map[models.PaymentStatus][]models.PaymentStatus{
	models.PaymentPending:   {models.PaymentPending, models.PaymentCompleted, models.PaymentCancelled},
	models.PaymentCompleted: {models.PaymentCompleted},
	models.PaymentCancelled: {models.PaymentCancelled},
}

// CanTransition reports whether from -> to is in the transition table.
func CanTransition(from, to models.PaymentStatus) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}
