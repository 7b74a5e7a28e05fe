package health_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/confhub/internal/app/features/health"
	"github.com/dalemusser/confhub/internal/testutil"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

type stubMongo struct{ err error }

func (s stubMongo) Ping(context.Context, *readpref.ReadPref) error { return s.err }

type stubRedis struct{ err error }

func (s stubRedis) Ping(context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", s.err)
}

type response struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Redis    string `json:"redis"`
	Message  string `json:"message"`
}

func serve(t *testing.T, h *health.Handler) (*httptest.ResponseRecorder, response) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.Serve(rec, httptest.NewRequest("GET", "/health", nil))

	var resp response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	return rec, resp
}

func TestServe_DatabaseConnected(t *testing.T) {
	db := testutil.SetupTestDB(t)
	handler := health.NewHandler(db.Client(), nil, zap.NewNop())

	rec, resp := serve(t, handler)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q, want %q", ct, "application/json")
	}
	if resp.Status != "ok" || resp.Database != "connected" {
		t.Errorf("got %+v, want ok/connected", resp)
	}
	if resp.Redis != "" {
		t.Errorf("redis should be omitted when not configured, got %q", resp.Redis)
	}
}

func TestServe_Failures(t *testing.T) {
	tests := []struct {
		name     string
		mongo    error
		redis    error
		wantDB   string
		wantRdb  string
		wantCode int
	}{
		{"all up", nil, nil, "connected", "connected", http.StatusOK},
		{"mongo down", errors.New("no reachable servers"), nil, "disconnected", "", http.StatusServiceUnavailable},
		{"redis down", nil, errors.New("connection refused"), "connected", "disconnected", http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := health.NewHandler(stubMongo{tt.mongo}, stubRedis{tt.redis}, zap.NewNop())
			rec, resp := serve(t, h)
			if rec.Code != tt.wantCode {
				t.Errorf("status: got %d, want %d", rec.Code, tt.wantCode)
			}
			if resp.Database != tt.wantDB || resp.Redis != tt.wantRdb {
				t.Errorf("got database=%q redis=%q, want %q/%q", resp.Database, resp.Redis, tt.wantDB, tt.wantRdb)
			}
		})
	}
}
