// Package registration manages the participant registration and payment
// lifecycle: one registration per account, a pending/completed/cancelled
// payment state machine, and paid records that cannot be deleted.
package registration

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	participantstore "github.com/dalemusser/confhub/internal/app/store/participants"
	"github.com/dalemusser/confhub/internal/app/system/apperr"
	"github.com/dalemusser/confhub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/confhub/internal/app/system/inputval"
	"github.com/dalemusser/confhub/internal/app/system/normalize"
	"github.com/dalemusser/confhub/internal/app/system/paging"
	"github.com/dalemusser/confhub/internal/app/system/telemetry"
	"github.com/dalemusser/confhub/internal/app/system/timeouts"
	"github.com/dalemusser/confhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Store is the persistence the lifecycle needs. *participantstore.Store
// satisfies it.
type Store interface {
	Insert(ctx context.Context, p models.Participant) (models.Participant, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Participant, error)
	GetByAccount(ctx context.Context, accountID primitive.ObjectID) (*models.Participant, error)
	SetPayment(ctx context.Context, id primitive.ObjectID, from models.PaymentStatus, upd participantstore.PaymentUpdate) (*models.Participant, error)
	UpdateDetails(ctx context.Context, id primitive.ObjectID, patch participantstore.Patch) (*models.Participant, error)
	DeleteUnlessPaid(ctx context.Context, id primitive.ObjectID) error
	List(ctx context.Context, f participantstore.Filter, skip, limit int64) ([]models.Participant, int64, error)
}

// Notifier sends participant-facing emails. Failures are logged, never
// returned to the caller of the lifecycle operation.
type Notifier interface {
	RegistrationReceived(ctx context.Context, p models.Participant) error
	PaymentConfirmed(ctx context.Context, p models.Participant) error
}

// Owner is the authenticated account a registration is created for.
type Owner struct {
	AccountID primitive.ObjectID
	Email     string
}

// Details is the participant-supplied registration form.
type Details struct {
	FirstName          string
	LastName           string
	Email              string
	Phone              string
	Affiliation        string
	Country            string
	RegistrationType   models.RegistrationType
	ArrivalDate        *time.Time
	DepartureDate      *time.Time
	AccommodationNotes string
}

// PaymentChange is a requested payment-status update. Force bypasses the
// transition table and is honored only for super-admins.
type PaymentChange struct {
	Status         models.PaymentStatus
	Method         string
	TransactionRef string
	Force          bool
	ActorRole      models.StaffRole
}

// PaymentResult is the outcome of UpdatePayment.
type PaymentResult struct {
	Participant models.Participant
	From        models.PaymentStatus
	Overridden  bool
}

// ListQuery selects one page of participants.
type ListQuery struct {
	Page     int
	PageSize int
	Filter   participantstore.Filter
}

// ListResult is one page plus the clamped paging values actually used.
type ListResult struct {
	Items    []models.Participant
	Total    int64
	Page     int
	PageSize int
}

// Patch is an administrative edit; see participantstore.Patch.
type Patch = participantstore.Patch

// Service implements the lifecycle operations.
type Service struct {
	store   Store
	notify  Notifier
	metrics *telemetry.Metrics
	log     *zap.Logger
	now     func() time.Time

	mu     sync.Mutex // guards closed and orders wg.Add against Wait
	closed bool
	wg     sync.WaitGroup
}

// New builds a Service. notify and metrics may be nil.
func New(store Store, notify Notifier, metrics *telemetry.Metrics, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		store:   store,
		notify:  notify,
		metrics: metrics,
		log:     log,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Register creates the owner's registration with payment pending.
func (s *Service) Register(ctx context.Context, owner Owner, d Details) (models.Participant, error) {
	if owner.AccountID.IsZero() {
		return models.Participant{}, apperr.ErrAuthentication
	}
	d = cleanDetails(d)
	if d.Email == "" {
		d.Email = normalize.Email(owner.Email)
	}
	if err := validateDetails(d); err != nil {
		return models.Participant{}, err
	}

	now := s.now()
	p, err := s.store.Insert(ctx, models.Participant{
		AccountID:          owner.AccountID,
		FirstName:          d.FirstName,
		LastName:           d.LastName,
		Email:              d.Email,
		Phone:              d.Phone,
		Affiliation:        d.Affiliation,
		Country:            d.Country,
		RegistrationType:   d.RegistrationType,
		PaymentStatus:      models.PaymentPending,
		ArrivalDate:        utcPtr(d.ArrivalDate),
		DepartureDate:      utcPtr(d.DepartureDate),
		AccommodationNotes: d.AccommodationNotes,
		CreatedAt:          now,
		UpdatedAt:          now,
	})
	if err != nil {
		return models.Participant{}, err
	}

	s.metrics.Registered()
	s.sendAsync("registration received", p, s.notifyRegistration)
	return p, nil
}

// Get loads one participant by id.
func (s *Service) Get(ctx context.Context, id primitive.ObjectID) (*models.Participant, error) {
	return s.store.GetByID(ctx, id)
}

// GetMine loads the registration owned by accountID.
func (s *Service) GetMine(ctx context.Context, accountID primitive.ObjectID) (*models.Participant, error) {
	return s.store.GetByAccount(ctx, accountID)
}

// UpdatePayment moves a participant's payment status. paid_at is set on the
// move to completed and cleared when leaving it.
func (s *Service) UpdatePayment(ctx context.Context, id primitive.ObjectID, ch PaymentChange) (PaymentResult, error) {
	ch.Status = models.PaymentStatus(normalize.Status(string(ch.Status)))
	if !ch.Status.Valid() {
		return PaymentResult{}, apperr.Validation("status", "must be one of pending, completed, cancelled")
	}
	if ch.Force && ch.ActorRole != models.RoleSuperAdmin {
		return PaymentResult{}, apperr.ErrAuthorization
	}

	cur, err := s.store.GetByID(ctx, id)
	if err != nil {
		return PaymentResult{}, err
	}
	from := cur.PaymentStatus

	overridden := false
	if !CanTransition(from, ch.Status) {
		if !ch.Force {
			return PaymentResult{}, apperr.Conflict(fmt.Sprintf("payment status cannot change from %s to %s", from, ch.Status))
		}
		overridden = true
	}

	upd := participantstore.PaymentUpdate{
		Status:         ch.Status,
		Method:         firstNonEmpty(strings.TrimSpace(ch.Method), cur.PaymentMethod),
		TransactionRef: firstNonEmpty(strings.TrimSpace(ch.TransactionRef), cur.TransactionRef),
	}
	if ch.Status == models.PaymentCompleted {
		if from == models.PaymentCompleted && cur.PaidAt != nil {
			upd.PaidAt = cur.PaidAt
		} else {
			now := s.now()
			upd.PaidAt = &now
		}
	}

	p, err := s.store.SetPayment(ctx, id, from, upd)
	if err != nil {
		if errors.Is(err, participantstore.ErrStateChanged) {
			return PaymentResult{}, apperr.Conflict("payment status changed concurrently; reload and retry")
		}
		return PaymentResult{}, err
	}

	s.metrics.PaymentTransition(string(from), string(ch.Status))
	if ch.Status == models.PaymentCompleted && from != models.PaymentCompleted {
		s.sendAsync("payment confirmed", *p, s.notifyPayment)
	}
	return PaymentResult{Participant: *p, From: from, Overridden: overridden}, nil
}

// Delete removes a registration unless its payment is completed. It
// returns the record as it was before deletion.
func (s *Service) Delete(ctx context.Context, id primitive.ObjectID) (*models.Participant, error) {
	cur, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if cur.PaymentStatus == models.PaymentCompleted {
		return nil, errPaidDelete
	}
	if err := s.store.DeleteUnlessPaid(ctx, id); err != nil {
		if errors.Is(err, participantstore.ErrStateChanged) {
			return nil, errPaidDelete
		}
		return nil, err
	}
	s.metrics.ParticipantDeleted()
	return cur, nil
}

var errPaidDelete = apperr.Conflict("a participant with a completed payment cannot be deleted")

// ListAll returns one page of participants, newest first. Page and page
// size are clamped rather than rejected.
func (s *Service) ListAll(ctx context.Context, q ListQuery) (ListResult, error) {
	if f := q.Filter.PaymentStatus; f != "" && !f.Valid() {
		return ListResult{}, apperr.Validation("payment_status", "unknown payment status")
	}
	if f := q.Filter.RegistrationType; f != "" && !f.Valid() {
		return ListResult{}, apperr.Validation("registration_type", "unknown registration type")
	}

	page, size := paging.Clamp(q.Page, q.PageSize)
	items, total, err := s.store.List(ctx, q.Filter, paging.Offset(page, size), int64(size))
	if err != nil {
		return ListResult{}, err
	}
	return ListResult{Items: items, Total: total, Page: page, PageSize: size}, nil
}

// UpdateDetails applies an administrative edit of contact and travel
// fields. It returns the updated record and the names of the fields the
// patch touched.
func (s *Service) UpdateDetails(ctx context.Context, id primitive.ObjectID, patch Patch) (*models.Participant, []string, error) {
	patch = cleanPatch(patch)
	fields := patchFields(patch)
	if len(fields) == 0 {
		return nil, nil, apperr.Validation("", "no editable fields supplied")
	}
	if err := validatePatch(patch); err != nil {
		return nil, nil, err
	}

	cur, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	arrival, departure := cur.ArrivalDate, cur.DepartureDate
	if patch.ClearArrival {
		arrival = nil
	} else if patch.ArrivalDate != nil {
		arrival = patch.ArrivalDate
	}
	if patch.ClearDeparture {
		departure = nil
	} else if patch.DepartureDate != nil {
		departure = patch.DepartureDate
	}
	if err := validateStay(arrival, departure); err != nil {
		return nil, nil, err
	}

	p, err := s.store.UpdateDetails(ctx, id, patch)
	if err != nil {
		return nil, nil, err
	}
	return p, fields, nil
}

// Wait blocks until every queued notification has finished. Sends that
// arrive meanwhile wait for the drain before they start.
func (s *Service) Wait() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wg.Wait()
}

// Close stops accepting notifications and waits for queued ones. Later
// sends are dropped with a log line. Safe to call more than once.
func (s *Service) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *Service) notifyRegistration(ctx context.Context, p models.Participant) error {
	return s.notify.RegistrationReceived(ctx, p)
}

func (s *Service) notifyPayment(ctx context.Context, p models.Participant) error {
	return s.notify.PaymentConfirmed(ctx, p)
}

// sendAsync runs send on a detached goroutine with its own deadline so the
// request that triggered it is never held up by SMTP.
func (s *Service) sendAsync(kind string, p models.Participant, send func(context.Context, models.Participant) error) {
	if s.notify == nil {
		return
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		s.log.Warn("notification dropped: service closed",
			zap.String("kind", kind),
			zap.String("participant_id", p.ID.Hex()))
		return
	}
	s.wg.Add(1)
	s.mu.Unlock()
	go func() {
		defer s.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				s.log.Error("notification panicked", zap.String("kind", kind), zap.Any("panic", r))
			}
		}()
		ctx, cancel := context.WithTimeout(context.Background(), timeouts.Mail())
		defer cancel()
		if err := send(ctx, p); err != nil {
			s.log.Warn("notification failed",
				zap.String("kind", kind),
				zap.String("participant_id", p.ID.Hex()),
				zap.Error(err),
			)
		}
	}()
}

func cleanDetails(d Details) Details {
	d.FirstName = normalize.Name(htmlsanitize.PlainText(d.FirstName))
	d.LastName = normalize.Name(htmlsanitize.PlainText(d.LastName))
	d.Email = normalize.Email(d.Email)
	d.Phone = strings.TrimSpace(d.Phone)
	d.Affiliation = normalize.Name(htmlsanitize.PlainText(d.Affiliation))
	d.Country = normalize.Name(htmlsanitize.PlainText(d.Country))
	d.AccommodationNotes = htmlsanitize.PlainText(d.AccommodationNotes)
	d.RegistrationType = models.RegistrationType(normalize.Status(string(d.RegistrationType)))
	return d
}

func validateDetails(d Details) error {
	if !d.RegistrationType.Valid() {
		return apperr.Validation("registration_type", "must be one of onsite-paper, online-paper, attendance")
	}
	if d.FirstName == "" {
		return apperr.Validation("first_name", "is required")
	}
	if d.LastName == "" {
		return apperr.Validation("last_name", "is required")
	}
	if !inputval.IsValidEmail(d.Email) {
		return apperr.Validation("email", "is not a valid email address")
	}
	if d.Phone != "" && !inputval.IsValidPhone(d.Phone) {
		return apperr.Validation("phone", "is not a valid phone number")
	}
	return validateStay(d.ArrivalDate, d.DepartureDate)
}

func validateStay(arrival, departure *time.Time) error {
	if arrival != nil && departure != nil && departure.Before(*arrival) {
		return apperr.Validation("departure_date", "must not be before arrival_date")
	}
	return nil
}

func cleanPatch(p Patch) Patch {
	clean := func(v *string, f func(string) string) *string {
		if v == nil {
			return nil
		}
		s := f(*v)
		return &s
	}
	name := func(s string) string { return normalize.Name(htmlsanitize.PlainText(s)) }
	p.FirstName = clean(p.FirstName, name)
	p.LastName = clean(p.LastName, name)
	p.Email = clean(p.Email, normalize.Email)
	p.Phone = clean(p.Phone, strings.TrimSpace)
	p.Affiliation = clean(p.Affiliation, name)
	p.Country = clean(p.Country, name)
	p.AccommodationNotes = clean(p.AccommodationNotes, htmlsanitize.PlainText)
	p.ArrivalDate = utcPtr(p.ArrivalDate)
	p.DepartureDate = utcPtr(p.DepartureDate)
	return p
}

func validatePatch(p Patch) error {
	if p.FirstName != nil && *p.FirstName == "" {
		return apperr.Validation("first_name", "must not be empty")
	}
	if p.LastName != nil && *p.LastName == "" {
		return apperr.Validation("last_name", "must not be empty")
	}
	if p.Email != nil && !inputval.IsValidEmail(*p.Email) {
		return apperr.Validation("email", "is not a valid email address")
	}
	if p.Phone != nil && *p.Phone != "" && !inputval.IsValidPhone(*p.Phone) {
		return apperr.Validation("phone", "is not a valid phone number")
	}
	return nil
}

func patchFields(p Patch) []string {
	var out []string
	add := func(set bool, name string) {
		if set {
			out = append(out, name)
		}
	}
	add(p.FirstName != nil, "first_name")
	add(p.LastName != nil, "last_name")
	add(p.Email != nil, "email")
	add(p.Phone != nil, "phone")
	add(p.Affiliation != nil, "affiliation")
	add(p.Country != nil, "country")
	add(p.ArrivalDate != nil || p.ClearArrival, "arrival_date")
	add(p.DepartureDate != nil || p.ClearDeparture, "departure_date")
	add(p.AccommodationNotes != nil, "accommodation_notes")
	return out
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}
