package registration_test

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	participantstore "github.com/dalemusser/confhub/internal/app/store/participants"
	"github.com/dalemusser/confhub/internal/app/system/apperr"
	"github.com/dalemusser/confhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// memStore mirrors participantstore.Store semantics in memory: unique
// account, conditional payment writes and a paid-record delete guard.
type memStore struct {
	mu   sync.Mutex
	byID map[primitive.ObjectID]*models.Participant
	seq  map[primitive.ObjectID]int
	next int

	// beforeSetPayment runs inside SetPayment before the condition is
	// checked, letting tests simulate a concurrent writer.
	beforeSetPayment func(p *models.Participant)
}

func newMemStore() *memStore {
	return &memStore{
		byID: map[primitive.ObjectID]*models.Participant{},
		seq:  map[primitive.ObjectID]int{},
	}
}

func notFound() error { return fmt.Errorf("participant: %w", apperr.ErrNotFound) }

func (m *memStore) Insert(_ context.Context, p models.Participant) (models.Participant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.byID {
		if existing.AccountID == p.AccountID {
			return models.Participant{}, apperr.ErrDuplicateRegistration
		}
	}
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	cp := p
	m.byID[p.ID] = &cp
	m.next++
	m.seq[p.ID] = m.next
	return p, nil
}

func (m *memStore) GetByID(_ context.Context, id primitive.ObjectID) (*models.Participant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[id]
	if !ok {
		return nil, notFound()
	}
	cp := *p
	return &cp, nil
}

func (m *memStore) GetByAccount(_ context.Context, accountID primitive.ObjectID) (*models.Participant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.byID {
		if p.AccountID == accountID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, notFound()
}

func (m *memStore) SetPayment(_ context.Context, id primitive.ObjectID, from models.PaymentStatus, upd participantstore.PaymentUpdate) (*models.Participant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[id]
	if !ok {
		return nil, notFound()
	}
	if m.beforeSetPayment != nil {
		m.beforeSetPayment(p)
	}
	if p.PaymentStatus != from {
		return nil, participantstore.ErrStateChanged
	}
	p.PaymentStatus = upd.Status
	p.PaymentMethod = upd.Method
	p.TransactionRef = upd.TransactionRef
	p.PaidAt = upd.PaidAt
	cp := *p
	return &cp, nil
}

func (m *memStore) UpdateDetails(_ context.Context, id primitive.ObjectID, patch participantstore.Patch) (*models.Participant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[id]
	if !ok {
		return nil, notFound()
	}
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	set(&p.FirstName, patch.FirstName)
	set(&p.LastName, patch.LastName)
	set(&p.Email, patch.Email)
	set(&p.Phone, patch.Phone)
	set(&p.Affiliation, patch.Affiliation)
	set(&p.Country, patch.Country)
	set(&p.AccommodationNotes, patch.AccommodationNotes)
	if patch.ClearArrival {
		p.ArrivalDate = nil
	} else if patch.ArrivalDate != nil {
		p.ArrivalDate = patch.ArrivalDate
	}
	if patch.ClearDeparture {
		p.DepartureDate = nil
	} else if patch.DepartureDate != nil {
		p.DepartureDate = patch.DepartureDate
	}
	cp := *p
	return &cp, nil
}

func (m *memStore) DeleteUnlessPaid(_ context.Context, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[id]
	if !ok {
		return notFound()
	}
	if p.PaymentStatus == models.PaymentCompleted {
		return participantstore.ErrStateChanged
	}
	delete(m.byID, id)
	delete(m.seq, id)
	return nil
}

func (m *memStore) List(_ context.Context, f participantstore.Filter, skip, limit int64) ([]models.Participant, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []models.Participant
	for _, p := range m.byID {
		if f.PaymentStatus != "" && p.PaymentStatus != f.PaymentStatus {
			continue
		}
		if f.RegistrationType != "" && p.RegistrationType != f.RegistrationType {
			continue
		}
		all = append(all, *p)
	}
	// newest first; insertion order breaks created_at ties
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return m.seq[all[i].ID] > m.seq[all[j].ID]
	})
	total := int64(len(all))
	if skip >= total {
		return []models.Participant{}, total, nil
	}
	end := skip + limit
	if end > total {
		end = total
	}
	return all[skip:end], total, nil
}

// recordingNotifier captures sends; fail makes every send error.
type recordingNotifier struct {
	mu           sync.Mutex
	registration []primitive.ObjectID
	payment      []primitive.ObjectID
	fail         bool
}

func (n *recordingNotifier) RegistrationReceived(_ context.Context, p models.Participant) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.registration = append(n.registration, p.ID)
	if n.fail {
		return errors.New("smtp down")
	}
	return nil
}

func (n *recordingNotifier) PaymentConfirmed(_ context.Context, p models.Participant) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.payment = append(n.payment, p.ID)
	if n.fail {
		return errors.New("smtp down")
	}
	return nil
}

func (n *recordingNotifier) counts() (int, int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.registration), len(n.payment)
}
