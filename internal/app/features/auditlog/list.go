// internal/app/features/auditlog/list.go
package auditlog

import (
	"net/http"
	"slices"
	"time"

	"github.com/dalemusser/confhub/internal/app/store/audit"
	"github.com/dalemusser/confhub/internal/app/system/apperr"
	"github.com/dalemusser/confhub/internal/app/system/inputval"
	"github.com/dalemusser/confhub/internal/app/system/normalize"
	"github.com/dalemusser/confhub/internal/app/system/paging"
	"github.com/dalemusser/confhub/internal/app/system/respond"
	"github.com/dalemusser/confhub/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/sync/errgroup"
)

/*─────────────────────────────────────────────────────────────────────────────*
| GET /api/admin/audit?category=&event_type=&target_id=&start_date=&end_date= |
*─────────────────────────────────────────────────────────────────────────────*/

// ServeList returns one page of audit events, newest first.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	page, limit := paging.ParseRequest(r)
	filter.Limit = int64(limit)
	filter.Offset = paging.Offset(page, limit)

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "audit log list")
	defer cancel()

	var (
		events []audit.Event
		total  int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		events, err = h.Events.Query(gctx, filter)
		return err
	})
	g.Go(func() (err error) {
		total, err = h.Events.CountByFilter(gctx, filter)
		return err
	})
	if err := g.Wait(); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}

	respond.OK(w, "audit events", respond.NewPage(events, total, page, limit))
}

func parseFilter(r *http.Request) (audit.QueryFilter, error) {
	f := audit.QueryFilter{
		Category:  normalize.Status(query.Get(r, "category")),
		EventType: normalize.Status(query.Get(r, "event_type")),
	}
	known := eventTypesForCategory(f.Category)
	if known == nil {
		return f, apperr.Validation("category", "must be auth or admin")
	}
	if f.EventType != "" && !slices.Contains(known, f.EventType) {
		return f, apperr.Validation("event_type", "is not a known event type for this category")
	}

	if s := query.Get(r, "target_id"); s != "" {
		id, err := primitive.ObjectIDFromHex(s)
		if err != nil {
			return f, apperr.Validation("target_id", "is not a valid id")
		}
		f.TargetID = &id
	}

	start, err := inputval.ParseOptionalDate("start_date", query.Get(r, "start_date"))
	if err != nil {
		return f, err
	}
	f.StartTime = start

	end, err := inputval.ParseOptionalDate("end_date", query.Get(r, "end_date"))
	if err != nil {
		return f, err
	}
	if end != nil {
		endOfDay := end.Add(24*time.Hour - time.Nanosecond)
		f.EndTime = &endOfDay
	}
	return f, nil
}
