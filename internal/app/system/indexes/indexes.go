// Package indexes reconciles the MongoDB indexes the application relies on.
// The unique indexes here are load-bearing: one account per email, one staff
// user per email, and one participant record per account.
package indexes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

/*
EnsureAll is called at startup. Each collection set is reconciled
independently and every problem is reported, so a single bad index does
not hide the others.
*/
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	sets := []struct {
		coll   string
		models []mongo.IndexModel
	}{
		{"accounts", accountIndexes()},
		{"staff_users", staffUserIndexes()},
		{"participants", participantIndexes()},
		{"login_records", loginRecordIndexes()},
		{"audit_events", auditEventIndexes()},
	}

	var problems []string
	for _, s := range sets {
		if err := ensureIndexSet(ctx, db.Collection(s.coll), s.models); err != nil {
			problems = append(problems, s.coll+": "+err.Error())
		}
	}
	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

/* -------------------------------------------------------------------------- */
/* Collection index sets                                                       */
/* -------------------------------------------------------------------------- */

func accountIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_accounts_email"),
		},
		{
			Keys:    bson.D{{Key: "role", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_accounts_role_created"),
		},
	}
}

func staffUserIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_staff_users_email"),
		},
		// Staff list ordered by role, active first.
		{
			Keys:    bson.D{{Key: "role", Value: 1}, {Key: "active", Value: -1}, {Key: "last_name", Value: 1}},
			Options: options.Index().SetName("idx_staff_users_role_active_lastname"),
		},
	}
}

func participantIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		// One registration per account. Registration relies on the
		// duplicate-key error from this index.
		{
			Keys:    bson.D{{Key: "account_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_participants_account"),
		},
		// Default admin list: newest first.
		{
			Keys:    bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}},
			Options: options.Index().SetName("idx_participants_created"),
		},
		// Filtered admin lists and dashboard grouping.
		{
			Keys:    bson.D{{Key: "payment_status", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_participants_payment_created"),
		},
		{
			Keys:    bson.D{{Key: "registration_type", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_participants_regtype_created"),
		},
	}
}

func loginRecordIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_logins_user_created"),
		},
		{
			Keys:    bson.D{{Key: "domain", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_logins_domain_created"),
		},
	}
}

func auditEventIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "timestamp", Value: -1}},
			Options: options.Index().SetName("idx_audit_timestamp"),
		},
		{
			Keys:    bson.D{{Key: "category", Value: 1}, {Key: "event_type", Value: 1}, {Key: "timestamp", Value: -1}},
			Options: options.Index().SetName("idx_audit_category_type_timestamp"),
		},
		{
			Keys:    bson.D{{Key: "target_id", Value: 1}, {Key: "timestamp", Value: -1}},
			Options: options.Index().SetName("idx_audit_target_timestamp"),
		},
		{
			Keys:    bson.D{{Key: "actor_id", Value: 1}, {Key: "timestamp", Value: -1}},
			Options: options.Index().SetName("idx_audit_actor_timestamp"),
		},
	}
}

/* -------------------------------------------------------------------------- */
/* Reconciliation                                                              */
/* -------------------------------------------------------------------------- */

type existingIndex struct {
	Name   string `bson:"name"`
	Key    bson.D `bson:"key"`
	Unique *bool  `bson:"unique,omitempty"`
}

func keySig(keys bson.D) string {
	parts := make([]string, 0, len(keys))
	for _, kv := range keys {
		parts = append(parts, fmt.Sprintf("%s:%v", kv.Key, kv.Value))
	}
	return strings.Join(parts, ", ")
}

func boolVal(p *bool) bool { return p != nil && *p }

// Best-effort duplicate-detector (works across vendors).
func isDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}
	if mongo.IsDuplicateKeyError(err) {
		return true
	}
	s := err.Error()
	return strings.Contains(s, "E11000") || strings.Contains(strings.ToLower(s), "duplicate key")
}

// Mongo/DocDB return IndexOptionsConflict when an index with the same keys
// already exists under a different name or with different options.
func isOptionsConflictErr(err error) bool {
	return err != nil && strings.Contains(err.Error(), "IndexOptionsConflict")
}

func listExisting(ctx context.Context, coll *mongo.Collection) map[string]existingIndex {
	out := map[string]existingIndex{}
	cur, err := coll.Indexes().List(ctx)
	if err != nil {
		return out
	}
	defer cur.Close(ctx)
	for cur.Next(ctx) {
		var idx existingIndex
		if err := cur.Decode(&idx); err != nil {
			zap.L().Warn("failed to decode existing index",
				zap.String("collection", coll.Name()),
				zap.Error(err))
			continue
		}
		out[keySig(idx.Key)] = idx
	}
	return out
}

// createErr explains a failed CreateOne. Duplicate data under a new unique
// index gets an aggregation the operator can paste into mongosh.
func createErr(coll *mongo.Collection, name string, keys bson.D, unique bool, err error) string {
	if unique && isDuplicateKeyErr(err) && len(keys) > 0 {
		field := keys[0].Key
		return fmt.Sprintf("%s(%s): cannot create unique index (duplicates present); find them with "+
			`db.%s.aggregate([{ $group: { _id: "$%s", n: { $sum: 1 } } }, { $match: { n: { $gt: 1 } } }])`,
			coll.Name(), name, coll.Name(), field)
	}
	return fmt.Sprintf("%s(%s): %v", coll.Name(), name, err)
}

// replace drops an index and creates the desired one in its place.
func replace(ctx context.Context, coll *mongo.Collection, oldName string, m mongo.IndexModel, name string, keys bson.D, unique bool) error {
	if _, err := coll.Indexes().DropOne(ctx, oldName); err != nil {
		return fmt.Errorf("%s(%s): drop %s failed: %v", coll.Name(), name, oldName, err)
	}
	if _, err := coll.Indexes().CreateOne(ctx, m); err != nil {
		return errors.New(createErr(coll, name, keys, unique, err))
	}
	return nil
}

func ensureIndexSet(ctx context.Context, coll *mongo.Collection, models []mongo.IndexModel) error {
	var errs []string

	for _, m := range models {
		var name string
		var uniquePtr *bool
		if m.Options != nil {
			if m.Options.Name != nil {
				name = *m.Options.Name
			}
			uniquePtr = m.Options.Unique
		}
		unique := boolVal(uniquePtr)
		keys := m.Keys.(bson.D)
		sig := keySig(keys)
		start := time.Now()

		fields := []zap.Field{
			zap.String("collection", coll.Name()),
			zap.String("name", name),
			zap.String("keys", sig),
			zap.Bool("unique", unique),
		}

		ex, found := listExisting(ctx, coll)[sig]
		switch {
		case found && boolVal(ex.Unique) == unique && (name == "" || ex.Name == name):
			zap.L().Info("reusing existing index", append(fields, zap.Duration("took", time.Since(start)))...)

		case found:
			// Same keys but a different name or uniqueness: rebuild.
			if err := replace(ctx, coll, ex.Name, m, name, keys, unique); err != nil {
				zap.L().Warn("index rebuild failed", append(fields, zap.Error(err))...)
				errs = append(errs, err.Error())
				continue
			}
			zap.L().Info("index rebuilt", append(fields, zap.String("from", ex.Name), zap.Duration("took", time.Since(start)))...)

		default:
			_, err := coll.Indexes().CreateOne(ctx, m)
			if err != nil && isOptionsConflictErr(err) {
				// Raced with another instance or a server-side rename.
				if ex, ok := listExisting(ctx, coll)[sig]; ok {
					if boolVal(ex.Unique) == unique {
						zap.L().Info("reusing existing index (post-conflict)", fields...)
						continue
					}
					err = replace(ctx, coll, ex.Name, m, name, keys, unique)
					if err == nil {
						zap.L().Info("index rebuilt (post-conflict)", fields...)
						continue
					}
					errs = append(errs, err.Error())
					continue
				}
			}
			if err != nil {
				zap.L().Warn("index ensure failed", append(fields, zap.Error(err))...)
				errs = append(errs, createErr(coll, name, keys, unique, err))
				continue
			}
			zap.L().Info("index ensured", append(fields, zap.Duration("took", time.Since(start)))...)
		}
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}
