package metricsstore

import (
	"context"
	"sort"

	"github.com/dalemusser/confhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/sync/errgroup"
)

// Counts is the set of totals shown on the staff dashboard.
type Counts struct {
	Participants          int64 `json:"participants"`
	ParticipantsPending   int64 `json:"participants_pending"`
	ParticipantsCompleted int64 `json:"participants_completed"`
	ParticipantsCancelled int64 `json:"participants_cancelled"`
	Accounts              int64 `json:"accounts"`
	Staff                 int64 `json:"staff"`
	Papers                int64 `json:"papers"`
	Reviewers             int64 `json:"reviewers"`
	Speakers              int64 `json:"speakers"`
}

// FetchDashboardCounts returns the high-level counts used by the dashboard.
// Intentionally tolerant: on error it returns 0 for that counter.
// The counts run concurrently; none of them fails the group.
func FetchDashboardCounts(ctx context.Context, db *mongo.Database) Counts {
	var out Counts

	counters := []struct {
		coll   string
		filter bson.M
		dst    *int64
	}{
		{"participants", bson.M{}, &out.Participants},
		{"participants", bson.M{"payment_status": models.PaymentPending}, &out.ParticipantsPending},
		{"participants", bson.M{"payment_status": models.PaymentCompleted}, &out.ParticipantsCompleted},
		{"participants", bson.M{"payment_status": models.PaymentCancelled}, &out.ParticipantsCancelled},
		{"accounts", bson.M{}, &out.Accounts},
		{"staff_users", bson.M{"active": true}, &out.Staff},
		{"papers", bson.M{}, &out.Papers},
		{"reviewers", bson.M{}, &out.Reviewers},
		{"speakers", bson.M{}, &out.Speakers},
	}

	var g errgroup.Group
	for _, c := range counters {
		g.Go(func() error {
			if n, err := db.Collection(c.coll).CountDocuments(ctx, c.filter); err == nil {
				*c.dst = n
			}
			return nil
		})
	}
	_ = g.Wait()

	return out
}

// Bucket is one group of a breakdown aggregation.
type Bucket struct {
	Key   string `bson:"_id" json:"key"`
	Count int64  `bson:"count" json:"count"`
}

// Breakdown groups participants along the dimensions the dashboard charts.
type Breakdown struct {
	ByPaymentStatus    []Bucket `json:"by_payment_status"`
	ByRegistrationType []Bucket `json:"by_registration_type"`
	ByCountry          []Bucket `json:"by_country"`
}

// FetchParticipantBreakdown runs one $group per dimension. Unlike the
// counts, an aggregation failure is returned to the caller.
func FetchParticipantBreakdown(ctx context.Context, db *mongo.Database) (Breakdown, error) {
	coll := db.Collection("participants")
	var out Breakdown

	dims := []struct {
		field string
		dst   *[]Bucket
	}{
		{"payment_status", &out.ByPaymentStatus},
		{"registration_type", &out.ByRegistrationType},
		{"country", &out.ByCountry},
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, d := range dims {
		g.Go(func() error {
			buckets, err := groupBy(gctx, coll, d.field)
			if err != nil {
				return err
			}
			*d.dst = buckets
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Breakdown{}, err
	}
	return out, nil
}

func groupBy(ctx context.Context, coll *mongo.Collection, field string) ([]Bucket, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: bson.D{{Key: "$ifNull", Value: bson.A{"$" + field, ""}}}},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
	}
	cur, err := coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	buckets := []Bucket{}
	if err := cur.All(ctx, &buckets); err != nil {
		return nil, err
	}
	// largest first, ties by key so output is stable
	sort.Slice(buckets, func(i, j int) bool {
		if buckets[i].Count != buckets[j].Count {
			return buckets[i].Count > buckets[j].Count
		}
		return buckets[i].Key < buckets[j].Key
	})
	return buckets, nil
}
