package registration_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/dalemusser/confhub/internal/app/registration"
	participantstore "github.com/dalemusser/confhub/internal/app/store/participants"
	"github.com/dalemusser/confhub/internal/app/system/apperr"
	"github.com/dalemusser/confhub/internal/app/system/respond"
	"github.com/dalemusser/confhub/internal/app/system/telemetry"
	"github.com/dalemusser/confhub/internal/domain/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func newService(t *testing.T) (*registration.Service, *memStore, *recordingNotifier) {
	t.Helper()
	store := newMemStore()
	notify := &recordingNotifier{}
	svc := registration.New(store, notify, telemetry.NewWith(prometheus.NewRegistry()), zap.NewNop())
	t.Cleanup(svc.Wait)
	return svc, store, notify
}

func owner() registration.Owner {
	return registration.Owner{AccountID: primitive.NewObjectID(), Email: "Ada@Example.com"}
}

func details(rt models.RegistrationType) registration.Details {
	return registration.Details{
		FirstName:        "Ada",
		LastName:         "Lovelace",
		Affiliation:      "Analytical Engines",
		Country:          "UK",
		RegistrationType: rt,
	}
}

func register(t *testing.T, svc *registration.Service) models.Participant {
	t.Helper()
	p, err := svc.Register(context.Background(), owner(), details(models.RegistrationAttendance))
	require.NoError(t, err)
	return p
}

func TestRegister_CreatesPending(t *testing.T) {
	svc, _, notify := newService(t)
	o := owner()

	p, err := svc.Register(context.Background(), o, details(models.RegistrationOnsitePaper))
	require.NoError(t, err)

	assert.Equal(t, models.PaymentPending, p.PaymentStatus)
	assert.Equal(t, o.AccountID, p.AccountID)
	assert.Equal(t, "ada@example.com", p.Email, "email defaults to the owner's, normalized")
	assert.Nil(t, p.PaidAt)

	svc.Wait()
	reg, pay := notify.counts()
	assert.Equal(t, 1, reg)
	assert.Equal(t, 0, pay)
}

func TestRegister_Duplicate(t *testing.T) {
	svc, _, _ := newService(t)
	o := owner()

	_, err := svc.Register(context.Background(), o, details(models.RegistrationAttendance))
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), o, details(models.RegistrationOnlinePaper))
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrDuplicateRegistration)
}

func TestRegister_Validation(t *testing.T) {
	svc, _, _ := newService(t)
	arrive := time.Date(2026, 6, 10, 0, 0, 0, 0, time.UTC)
	leave := arrive.AddDate(0, 0, -1)

	tests := []struct {
		name  string
		edit  func(*registration.Details)
		field string
	}{
		{"unknown registration type", func(d *registration.Details) { d.RegistrationType = "vip" }, "registration_type"},
		{"missing first name", func(d *registration.Details) { d.FirstName = "  " }, "first_name"},
		{"markup-only last name", func(d *registration.Details) { d.LastName = "<b></b>" }, "last_name"},
		{"bad email", func(d *registration.Details) { d.Email = "not-an-email" }, "email"},
		{"bad phone", func(d *registration.Details) { d.Phone = "12" }, "phone"},
		{"departure before arrival", func(d *registration.Details) {
			d.ArrivalDate, d.DepartureDate = &arrive, &leave
		}, "departure_date"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := details(models.RegistrationAttendance)
			tt.edit(&d)
			_, err := svc.Register(context.Background(), owner(), d)
			require.Error(t, err)
			var ve *apperr.ValidationError
			require.True(t, errors.As(err, &ve), "want ValidationError, got %v", err)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestRegister_StripsMarkup(t *testing.T) {
	svc, _, _ := newService(t)
	d := details(models.RegistrationAttendance)
	d.FirstName = "<script>alert(1)</script>Ada"
	d.AccommodationNotes = "<i>ground floor</i> please"

	p, err := svc.Register(context.Background(), owner(), d)
	require.NoError(t, err)
	assert.Equal(t, "Ada", p.FirstName)
	assert.Equal(t, "ground floor please", p.AccommodationNotes)
}

func TestRegister_NotifierFailureIsSuppressed(t *testing.T) {
	store := newMemStore()
	notify := &recordingNotifier{fail: true}
	svc := registration.New(store, notify, nil, zap.NewNop())

	_, err := svc.Register(context.Background(), owner(), details(models.RegistrationAttendance))
	require.NoError(t, err)
	svc.Wait()

	reg, _ := notify.counts()
	assert.Equal(t, 1, reg)
}

func TestUpdatePayment_Transitions(t *testing.T) {
	tests := []struct {
		from, to models.PaymentStatus
		ok       bool
	}{
		{models.PaymentPending, models.PaymentCompleted, true},
		{models.PaymentPending, models.PaymentCancelled, true},
		{models.PaymentPending, models.PaymentPending, true},
		{models.PaymentCompleted, models.PaymentCompleted, true},
		{models.PaymentCancelled, models.PaymentCancelled, true},
		{models.PaymentCompleted, models.PaymentPending, false},
		{models.PaymentCompleted, models.PaymentCancelled, false},
		{models.PaymentCancelled, models.PaymentPending, false},
		{models.PaymentCancelled, models.PaymentCompleted, false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s to %s", tt.from, tt.to), func(t *testing.T) {
			assert.Equal(t, tt.ok, registration.CanTransition(tt.from, tt.to))

			svc, store, _ := newService(t)
			p := register(t, svc)
			store.byID[p.ID].PaymentStatus = tt.from

			_, err := svc.UpdatePayment(context.Background(), p.ID, registration.PaymentChange{Status: tt.to})
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, apperr.ErrConflict)
			}
		})
	}
}

func TestUpdatePayment_CompletedSetsPaidAtAndNotifies(t *testing.T) {
	svc, _, notify := newService(t)
	p := register(t, svc)

	res, err := svc.UpdatePayment(context.Background(), p.ID, registration.PaymentChange{
		Status:         "Completed",
		Method:         "card",
		TransactionRef: "tx-42",
	})
	require.NoError(t, err)

	assert.Equal(t, models.PaymentPending, res.From)
	assert.False(t, res.Overridden)
	assert.Equal(t, models.PaymentCompleted, res.Participant.PaymentStatus)
	assert.Equal(t, "card", res.Participant.PaymentMethod)
	assert.Equal(t, "tx-42", res.Participant.TransactionRef)
	require.NotNil(t, res.Participant.PaidAt)
	paidAt := *res.Participant.PaidAt

	// self-transition corrects the reference without moving paid_at or re-sending mail
	res, err = svc.UpdatePayment(context.Background(), p.ID, registration.PaymentChange{
		Status:         models.PaymentCompleted,
		TransactionRef: "tx-43",
	})
	require.NoError(t, err)
	assert.Equal(t, "card", res.Participant.PaymentMethod)
	assert.Equal(t, "tx-43", res.Participant.TransactionRef)
	assert.True(t, paidAt.Equal(*res.Participant.PaidAt))

	svc.Wait()
	_, pay := notify.counts()
	assert.Equal(t, 1, pay)
}

func TestUpdatePayment_InvalidStatus(t *testing.T) {
	svc, _, _ := newService(t)
	p := register(t, svc)

	_, err := svc.UpdatePayment(context.Background(), p.ID, registration.PaymentChange{Status: "refunded"})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestUpdatePayment_NotFound(t *testing.T) {
	svc, _, _ := newService(t)

	_, err := svc.UpdatePayment(context.Background(), primitive.NewObjectID(), registration.PaymentChange{Status: models.PaymentCompleted})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestUpdatePayment_Force(t *testing.T) {
	svc, _, _ := newService(t)
	p := register(t, svc)
	ctx := context.Background()

	_, err := svc.UpdatePayment(ctx, p.ID, registration.PaymentChange{Status: models.PaymentCompleted})
	require.NoError(t, err)

	// admin cannot force
	_, err = svc.UpdatePayment(ctx, p.ID, registration.PaymentChange{
		Status: models.PaymentPending, Force: true, ActorRole: models.RoleAdmin,
	})
	assert.ErrorIs(t, err, apperr.ErrAuthorization)

	res, err := svc.UpdatePayment(ctx, p.ID, registration.PaymentChange{
		Status: models.PaymentPending, Force: true, ActorRole: models.RoleSuperAdmin,
	})
	require.NoError(t, err)
	assert.True(t, res.Overridden)
	assert.Equal(t, models.PaymentCompleted, res.From)
	assert.Equal(t, models.PaymentPending, res.Participant.PaymentStatus)
	assert.Nil(t, res.Participant.PaidAt, "leaving completed clears paid_at")

	// forcing an allowed move is not an override
	res, err = svc.UpdatePayment(ctx, p.ID, registration.PaymentChange{
		Status: models.PaymentCancelled, Force: true, ActorRole: models.RoleSuperAdmin,
	})
	require.NoError(t, err)
	assert.False(t, res.Overridden)
}

func TestUpdatePayment_ConcurrentChangeIsConflict(t *testing.T) {
	svc, store, _ := newService(t)
	p := register(t, svc)

	// another writer cancels between the read and the conditional write
	store.beforeSetPayment = func(rec *models.Participant) {
		rec.PaymentStatus = models.PaymentCancelled
	}

	_, err := svc.UpdatePayment(context.Background(), p.ID, registration.PaymentChange{Status: models.PaymentCompleted})
	assert.ErrorIs(t, err, apperr.ErrConflict)
	assert.Equal(t, models.PaymentCancelled, store.byID[p.ID].PaymentStatus)
}

func TestUpdatePayment_Metrics(t *testing.T) {
	store := newMemStore()
	m := telemetry.NewWith(prometheus.NewRegistry())
	svc := registration.New(store, nil, m, zap.NewNop())
	p := register(t, svc)

	_, err := svc.UpdatePayment(context.Background(), p.ID, registration.PaymentChange{Status: models.PaymentCompleted})
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Registrations))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PaymentTransitions.WithLabelValues("pending", "completed")))
}

func TestDelete(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	t.Run("completed is conflict", func(t *testing.T) {
		p := register(t, svc)
		_, err := svc.UpdatePayment(ctx, p.ID, registration.PaymentChange{Status: models.PaymentCompleted})
		require.NoError(t, err)

		_, err = svc.Delete(ctx, p.ID)
		assert.ErrorIs(t, err, apperr.ErrConflict)
		_, err = svc.Get(ctx, p.ID)
		assert.NoError(t, err, "record must survive")
	})

	t.Run("cancelled is deleted", func(t *testing.T) {
		p := register(t, svc)
		_, err := svc.UpdatePayment(ctx, p.ID, registration.PaymentChange{Status: models.PaymentCancelled})
		require.NoError(t, err)

		deleted, err := svc.Delete(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, models.PaymentCancelled, deleted.PaymentStatus)

		_, err = svc.Get(ctx, p.ID)
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})

	t.Run("pending is deleted", func(t *testing.T) {
		p := register(t, svc)
		_, err := svc.Delete(ctx, p.ID)
		assert.NoError(t, err)
	})

	t.Run("missing is not found", func(t *testing.T) {
		_, err := svc.Delete(ctx, primitive.NewObjectID())
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})
}

func TestListAll_Pagination(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()
	for i := 0; i < 25; i++ {
		register(t, svc)
	}

	res, err := svc.ListAll(ctx, registration.ListQuery{Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Len(t, res.Items, 10)

	page := respond.NewPage(res.Items, res.Total, res.Page, res.PageSize)
	assert.Equal(t, respond.PageMeta{Total: 25, Page: 1, Limit: 10, Pages: 3}, page.Meta)

	res, err = svc.ListAll(ctx, registration.ListQuery{Page: 3, PageSize: 10})
	require.NoError(t, err)
	assert.Len(t, res.Items, 5)

	res, err = svc.ListAll(ctx, registration.ListQuery{Page: 4, PageSize: 10})
	require.NoError(t, err)
	assert.Empty(t, res.Items)
	assert.Equal(t, int64(25), res.Total)
}

func TestListAll_Clamping(t *testing.T) {
	svc, _, _ := newService(t)
	register(t, svc)

	tests := []struct {
		page, size         int
		wantPage, wantSize int
	}{
		{0, 0, 1, 10},
		{-3, 5, 1, 5},
		{2, 1000, 2, 100},
	}
	for _, tt := range tests {
		res, err := svc.ListAll(context.Background(), registration.ListQuery{Page: tt.page, PageSize: tt.size})
		require.NoError(t, err)
		assert.Equal(t, tt.wantPage, res.Page, "page for %d/%d", tt.page, tt.size)
		assert.Equal(t, tt.wantSize, res.PageSize, "size for %d/%d", tt.page, tt.size)
	}
}

func TestListAll_Filters(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	a := register(t, svc)
	register(t, svc)
	_, err := svc.UpdatePayment(ctx, a.ID, registration.PaymentChange{Status: models.PaymentCompleted})
	require.NoError(t, err)

	res, err := svc.ListAll(ctx, registration.ListQuery{
		Filter: participantstore.Filter{PaymentStatus: models.PaymentCompleted},
	})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, a.ID, res.Items[0].ID)

	_, err = svc.ListAll(ctx, registration.ListQuery{
		Filter: participantstore.Filter{PaymentStatus: "refunded"},
	})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestGetMine(t *testing.T) {
	svc, _, _ := newService(t)
	o := owner()

	_, err := svc.GetMine(context.Background(), o.AccountID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	p, err := svc.Register(context.Background(), o, details(models.RegistrationOnlinePaper))
	require.NoError(t, err)

	mine, err := svc.GetMine(context.Background(), o.AccountID)
	require.NoError(t, err)
	assert.Equal(t, p.ID, mine.ID)
}

func TestUpdateDetails(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()
	p := register(t, svc)

	arrive := time.Date(2026, 6, 10, 12, 0, 0, 0, time.UTC)
	country := "  New   Zealand "
	updated, fields, err := svc.UpdateDetails(ctx, p.ID, registration.Patch{
		Country:     &country,
		ArrivalDate: &arrive,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"country", "arrival_date"}, fields)
	assert.Equal(t, "New Zealand", updated.Country)
	assert.Equal(t, models.RegistrationAttendance, updated.RegistrationType)

	// departure before the stored arrival is rejected
	leave := arrive.AddDate(0, 0, -2)
	_, _, err = svc.UpdateDetails(ctx, p.ID, registration.Patch{DepartureDate: &leave})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	// clearing arrival makes the same departure acceptable
	_, _, err = svc.UpdateDetails(ctx, p.ID, registration.Patch{DepartureDate: &leave, ClearArrival: true})
	assert.NoError(t, err)

	empty := ""
	_, _, err = svc.UpdateDetails(ctx, p.ID, registration.Patch{FirstName: &empty})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, _, err = svc.UpdateDetails(ctx, p.ID, registration.Patch{})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, _, err = svc.UpdateDetails(ctx, primitive.NewObjectID(), registration.Patch{Country: &country})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

// Register, pay, try to delete, then cancel a second registration and
// delete it.
func TestScenario_FullLifecycle(t *testing.T) {
	svc, _, notify := newService(t)
	ctx := context.Background()

	alice, bob := owner(), owner()

	pa, err := svc.Register(ctx, alice, details(models.RegistrationOnsitePaper))
	require.NoError(t, err)
	pb, err := svc.Register(ctx, bob, details(models.RegistrationAttendance))
	require.NoError(t, err)

	_, err = svc.Register(ctx, alice, details(models.RegistrationAttendance))
	require.ErrorIs(t, err, apperr.ErrDuplicateRegistration)

	_, err = svc.UpdatePayment(ctx, pa.ID, registration.PaymentChange{Status: models.PaymentCompleted, Method: "transfer"})
	require.NoError(t, err)
	_, err = svc.Delete(ctx, pa.ID)
	require.ErrorIs(t, err, apperr.ErrConflict)

	_, err = svc.UpdatePayment(ctx, pb.ID, registration.PaymentChange{Status: models.PaymentCancelled})
	require.NoError(t, err)
	_, err = svc.UpdatePayment(ctx, pb.ID, registration.PaymentChange{Status: models.PaymentCompleted})
	require.ErrorIs(t, err, apperr.ErrConflict)
	_, err = svc.Delete(ctx, pb.ID)
	require.NoError(t, err)

	res, err := svc.ListAll(ctx, registration.ListQuery{})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, pa.ID, res.Items[0].ID)
	assert.Equal(t, models.PaymentCompleted, res.Items[0].PaymentStatus)

	svc.Wait()
	reg, pay := notify.counts()
	assert.Equal(t, 2, reg)
	assert.Equal(t, 1, pay)
}

func TestClose_DropsLaterNotifications(t *testing.T) {
	store := newMemStore()
	notify := &recordingNotifier{}
	svc := registration.New(store, notify, nil, zap.NewNop())

	register(t, svc)
	svc.Close()
	reg, _ := notify.counts()
	assert.Equal(t, 1, reg, "queued notification finishes before Close returns")

	_, err := svc.Register(context.Background(), owner(), details(models.RegistrationAttendance))
	require.NoError(t, err, "registration still succeeds after Close")
	svc.Close()
	reg, _ = notify.counts()
	assert.Equal(t, 1, reg, "no notification after Close")
}

func TestClose_ConcurrentWithRegister(t *testing.T) {
	store := newMemStore()
	notify := &recordingNotifier{}
	svc := registration.New(store, notify, nil, zap.NewNop())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = svc.Register(context.Background(), owner(), details(models.RegistrationAttendance))
		}()
	}
	svc.Close()
	wg.Wait()
	svc.Close()

	reg, _ := notify.counts()
	assert.LessOrEqual(t, reg, 20)
}
