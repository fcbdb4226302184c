package audit

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const collectionName = "audit_log"

// Repository defines the data access contract for the audit log.
type Repository interface {
	// Log inserts a new entry and sets its ID.
	Log(ctx context.Context, entry *Entry) error

	// List returns matching entries, most recent first, with the filtered
	// total for pagination.
	List(ctx context.Context, filter Filter, offset, limit int) ([]Entry, int, error)
}

type entryDoc struct {
	ID         bson.ObjectID `bson:"_id,omitempty"`
	Action     string        `bson:"action"`
	ActorID    string        `bson:"actorId"`
	ActorEmail string        `bson:"actorEmail,omitempty"`
	TargetID   string        `bson:"targetId,omitempty"`
	IPAddress  string        `bson:"ipAddress,omitempty"`
	RequestID  string        `bson:"requestId,omitempty"`
	CreatedAt  time.Time     `bson:"createdAt"`
}

func (d *entryDoc) toEntry() Entry {
	return Entry{
		ID:         d.ID.Hex(),
		Action:     d.Action,
		ActorID:    d.ActorID,
		ActorEmail: d.ActorEmail,
		TargetID:   d.TargetID,
		IPAddress:  d.IPAddress,
		RequestID:  d.RequestID,
		CreatedAt:  d.CreatedAt,
	}
}

type mongoRepository struct {
	coll *mongo.Collection
}

// NewRepository creates an audit repository on db.
func NewRepository(db *mongo.Database) Repository {
	return &mongoRepository{coll: db.Collection(collectionName)}
}

func (r *mongoRepository) Log(ctx context.Context, entry *Entry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	res, err := r.coll.InsertOne(ctx, entryDoc{
		Action:     entry.Action,
		ActorID:    entry.ActorID,
		ActorEmail: entry.ActorEmail,
		TargetID:   entry.TargetID,
		IPAddress:  entry.IPAddress,
		RequestID:  entry.RequestID,
		CreatedAt:  entry.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("inserting audit entry: %w", err)
	}
	if oid, ok := res.InsertedID.(bson.ObjectID); ok {
		entry.ID = oid.Hex()
	}
	return nil
}

func (r *mongoRepository) List(ctx context.Context, filter Filter, offset, limit int) ([]Entry, int, error) {
	q := bson.M{}
	if filter.Action != "" {
		q["action"] = filter.Action
	}
	if filter.ActorID != "" {
		q["actorId"] = filter.ActorID
	}
	if filter.TargetID != "" {
		q["targetId"] = filter.TargetID
	}

	total, err := r.coll.CountDocuments(ctx, q)
	if err != nil {
		return nil, 0, fmt.Errorf("counting audit entries: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))
	cur, err := r.coll.Find(ctx, q, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("listing audit entries: %w", err)
	}

	var docs []entryDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, 0, fmt.Errorf("decoding audit entries: %w", err)
	}
	out := make([]Entry, 0, len(docs))
	for i := range docs {
		out = append(out, docs[i].toEntry())
	}
	return out, int(total), nil
}
