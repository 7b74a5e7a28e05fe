package health

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/dalemusser/confhub/internal/app/system/timeouts"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// MongoPinger is satisfied by *mongo.Client.
type MongoPinger interface {
	Ping(ctx context.Context, rp *readpref.ReadPref) error
}

// RedisPinger is satisfied by every go-redis client.
type RedisPinger interface {
	Ping(ctx context.Context) *redis.StatusCmd
}

// Handler holds dependencies needed for health checks.
type Handler struct {
	Mongo MongoPinger
	Redis RedisPinger
	Log   *zap.Logger
}

// NewHandler constructs a health Handler. rdb is nil when the token
// denylist is not backed by Redis.
func NewHandler(client MongoPinger, rdb RedisPinger, logger *zap.Logger) *Handler {
	return &Handler{
		Mongo: client,
		Redis: rdb,
		Log:   logger,
	}
}

// healthResponse is the JSON structure for the health check response.
type healthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Redis    string `json:"redis,omitempty"`
	Message  string `json:"message,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Serve handles GET /health.
//
// On success: 200 and
//
//	{ "status":"ok", "database":"connected", "redis":"connected" }
//
// On a dependency failure: 503 and
//
//	{ "status":"error", "message":"Database unavailable", "error":"…"}
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Ping())
	defer cancel()

	w.Header().Set("Content-Type", "application/json")

	resp := healthResponse{
		Status:   "ok",
		Database: "connected",
	}

	if err := h.Mongo.Ping(ctx, readpref.Primary()); err != nil {
		h.Log.Error("health-check: mongo ping failed", zap.Error(err))
		resp.Status = "error"
		resp.Database = "disconnected"
		resp.Message = "Database unavailable"
		resp.Error = err.Error()
		writeHealth(w, http.StatusServiceUnavailable, resp)
		return
	}

	// Redis backs token revocation, so losing it is a failure too.
	if h.Redis != nil {
		resp.Redis = "connected"
		if err := h.Redis.Ping(ctx).Err(); err != nil {
			h.Log.Error("health-check: redis ping failed", zap.Error(err))
			resp.Status = "error"
			resp.Redis = "disconnected"
			resp.Message = "Token denylist unavailable"
			resp.Error = err.Error()
			writeHealth(w, http.StatusServiceUnavailable, resp)
			return
		}
	}

	writeHealth(w, http.StatusOK, resp)
}

func writeHealth(w http.ResponseWriter, status int, resp healthResponse) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}
