package audit_test

import (
	"testing"
	"time"

	"github.com/dalemusser/confhub/internal/app/store/audit"
	"github.com/dalemusser/confhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestStore_Log(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	targetID := primitive.NewObjectID()
	event := audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventLoginSuccess,
		Domain:    "participant",
		ActorID:   &targetID,
		TargetID:  &targetID,
		IP:        "192.168.1.1",
		UserAgent: "TestBrowser/1.0",
		Success:   true,
	}

	if err := store.Log(ctx, event); err != nil {
		t.Fatalf("Log failed: %v", err)
	}

	events, err := store.GetByTarget(ctx, targetID, 10)
	if err != nil {
		t.Fatalf("GetByTarget failed: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].ID.IsZero() {
		t.Error("expected ID to be auto-generated")
	}
	if events[0].Domain != "participant" {
		t.Errorf("Domain: got %q, want participant", events[0].Domain)
	}
}

func TestStore_Log_AutoSetsTimestamp(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	before := time.Now().Add(-time.Second)
	if err := store.Log(ctx, audit.Event{Category: audit.CategoryAuth, EventType: audit.EventLogout, Success: true}); err != nil {
		t.Fatalf("Log failed: %v", err)
	}
	after := time.Now().Add(time.Second)

	events, err := store.GetRecent(ctx, 10)
	if err != nil {
		t.Fatalf("GetRecent failed: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Timestamp.Before(before) || events[0].Timestamp.After(after) {
		t.Errorf("expected timestamp to be set to current time, got %v", events[0].Timestamp)
	}
}

func TestStore_Query_Filters(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	actor := primitive.NewObjectID()
	target := primitive.NewObjectID()
	base := time.Now().UTC().Add(-time.Hour)

	events := []audit.Event{
		{Timestamp: base, Category: audit.CategoryAdmin, EventType: audit.EventPaymentUpdated, ActorID: &actor, TargetID: &target, Success: true},
		{Timestamp: base.Add(time.Minute), Category: audit.CategoryAdmin, EventType: audit.EventPaymentOverridden, ActorID: &actor, TargetID: &target, Success: true},
		{Timestamp: base.Add(2 * time.Minute), Category: audit.CategoryAuth, EventType: audit.EventLoginFailedWrongPassword, Success: false},
	}
	for _, e := range events {
		if err := store.Log(ctx, e); err != nil {
			t.Fatalf("Log failed: %v", err)
		}
	}

	admin, err := store.Query(ctx, audit.QueryFilter{Category: audit.CategoryAdmin})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(admin) != 2 {
		t.Fatalf("expected 2 admin events, got %d", len(admin))
	}
	if admin[0].EventType != audit.EventPaymentOverridden {
		t.Errorf("expected newest first, got %q", admin[0].EventType)
	}

	n, err := store.CountByFilter(ctx, audit.QueryFilter{ActorID: &actor, EventType: audit.EventPaymentUpdated})
	if err != nil {
		t.Fatalf("CountByFilter failed: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 payment_updated by actor, got %d", n)
	}

	start := base.Add(30 * time.Second)
	ranged, err := store.Query(ctx, audit.QueryFilter{StartTime: &start})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(ranged) != 2 {
		t.Errorf("expected 2 events after start, got %d", len(ranged))
	}

	failed, err := store.GetFailedLogins(ctx, base, 10)
	if err != nil {
		t.Fatalf("GetFailedLogins failed: %v", err)
	}
	if len(failed) != 1 {
		t.Errorf("expected 1 failed login, got %d", len(failed))
	}
}
