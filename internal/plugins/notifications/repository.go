package notifications

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/keyxmakerx/forgepoint/internal/apperror"
)

const collectionName = "notifications"

// Repository defines data access for notifications.
type Repository interface {
	Create(ctx context.Context, n *Notification) error
	List(ctx context.Context, unreadOnly bool, offset, limit int) ([]Notification, int, error)
	CountUnread(ctx context.Context) (int, error)
	MarkRead(ctx context.Context, id string) error
	MarkAllRead(ctx context.Context) (int, error)
	Delete(ctx context.Context, id string) error
}

type notificationDoc struct {
	ID        bson.ObjectID `bson:"_id,omitempty"`
	Type      string        `bson:"type"`
	Title     string        `bson:"title"`
	Body      string        `bson:"body"`
	Link      string        `bson:"link,omitempty"`
	Read      bool          `bson:"read"`
	CreatedAt time.Time     `bson:"createdAt"`
}

func (d *notificationDoc) toNotification() Notification {
	return Notification{
		ID:        d.ID.Hex(),
		Type:      d.Type,
		Title:     d.Title,
		Body:      d.Body,
		Link:      d.Link,
		Read:      d.Read,
		CreatedAt: d.CreatedAt,
	}
}

type mongoRepository struct {
	coll *mongo.Collection
}

// NewRepository creates a notification repository on db.
func NewRepository(db *mongo.Database) Repository {
	return &mongoRepository{coll: db.Collection(collectionName)}
}

func (r *mongoRepository) Create(ctx context.Context, n *Notification) error {
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	doc := notificationDoc{
		Type:      n.Type,
		Title:     n.Title,
		Body:      n.Body,
		Link:      n.Link,
		Read:      n.Read,
		CreatedAt: n.CreatedAt,
	}
	res, err := r.coll.InsertOne(ctx, doc)
	if err != nil {
		return fmt.Errorf("inserting notification: %w", err)
	}
	if oid, ok := res.InsertedID.(bson.ObjectID); ok {
		n.ID = oid.Hex()
	}
	return nil
}

// List returns notifications newest first with the filtered total.
func (r *mongoRepository) List(ctx context.Context, unreadOnly bool, offset, limit int) ([]Notification, int, error) {
	filter := bson.M{}
	if unreadOnly {
		filter["read"] = false
	}

	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("counting notifications: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("listing notifications: %w", err)
	}

	var docs []notificationDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, 0, fmt.Errorf("decoding notifications: %w", err)
	}
	out := make([]Notification, 0, len(docs))
	for i := range docs {
		out = append(out, docs[i].toNotification())
	}
	return out, int(total), nil
}

func (r *mongoRepository) CountUnread(ctx context.Context) (int, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{"read": false})
	if err != nil {
		return 0, fmt.Errorf("counting unread notifications: %w", err)
	}
	return int(n), nil
}

// MarkRead flags one notification as read. Marking an already read entry
// succeeds.
func (r *mongoRepository) MarkRead(ctx context.Context, id string) error {
	oid, err := parseID(id)
	if err != nil {
		return err
	}
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": bson.M{"read": true}})
	if err != nil {
		return fmt.Errorf("marking notification read: %w", err)
	}
	if res.MatchedCount == 0 {
		return apperror.NewNotFound("notification not found")
	}
	return nil
}

// MarkAllRead flags every unread notification and returns how many changed.
func (r *mongoRepository) MarkAllRead(ctx context.Context) (int, error) {
	res, err := r.coll.UpdateMany(ctx, bson.M{"read": false}, bson.M{"$set": bson.M{"read": true}})
	if err != nil {
		return 0, fmt.Errorf("marking notifications read: %w", err)
	}
	return int(res.ModifiedCount), nil
}

func (r *mongoRepository) Delete(ctx context.Context, id string) error {
	oid, err := parseID(id)
	if err != nil {
		return err
	}
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("deleting notification: %w", err)
	}
	if res.DeletedCount == 0 {
		return apperror.NewNotFound("notification not found")
	}
	return nil
}

func parseID(id string) (bson.ObjectID, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return bson.ObjectID{}, apperror.NewNotFound("notification not found")
	}
	return oid, nil
}
