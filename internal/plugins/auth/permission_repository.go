package auth

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/keyxmakerx/forgepoint/internal/apperror"
)

// PermissionRepository defines the data access contract for stored
// permission records.
type PermissionRepository interface {
	List(ctx context.Context) ([]PermissionRecord, error)
	FindByID(ctx context.Context, id string) (*PermissionRecord, error)
	FindBySlug(ctx context.Context, slug Permission) (*PermissionRecord, error)
	Create(ctx context.Context, rec *PermissionRecord) error
	Update(ctx context.Context, rec *PermissionRecord) error
	Delete(ctx context.Context, id string) error

	// EnsureExists inserts rec when its slug is not stored yet. Existing
	// records keep their edited name and module.
	EnsureExists(ctx context.Context, rec PermissionRecord) error
}

type permissionDoc struct {
	ID     bson.ObjectID `bson:"_id,omitempty"`
	Slug   string        `bson:"slug"`
	Name   string        `bson:"name"`
	Module string        `bson:"module"`
}

func (d *permissionDoc) toRecord() PermissionRecord {
	return PermissionRecord{ID: d.ID.Hex(), Slug: Permission(d.Slug), Name: d.Name, Module: d.Module}
}

type permissionRepository struct {
	coll *mongo.Collection
}

// NewPermissionRepository creates a permission repository on db.
func NewPermissionRepository(db *mongo.Database) PermissionRepository {
	return &permissionRepository{coll: db.Collection(permissionsCollection)}
}

func (r *permissionRepository) List(ctx context.Context) ([]PermissionRecord, error) {
	cur, err := r.coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "module", Value: 1}, {Key: "slug", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("listing permissions: %w", err)
	}
	var docs []permissionDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decoding permissions: %w", err)
	}
	out := make([]PermissionRecord, 0, len(docs))
	for i := range docs {
		out = append(out, docs[i].toRecord())
	}
	return out, nil
}

func (r *permissionRepository) FindByID(ctx context.Context, id string) (*PermissionRecord, error) {
	oid, err := parseObjectID(id, "permission")
	if err != nil {
		return nil, err
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *permissionRepository) FindBySlug(ctx context.Context, slug Permission) (*PermissionRecord, error) {
	return r.findOne(ctx, bson.M{"slug": string(slug)})
}

func (r *permissionRepository) findOne(ctx context.Context, filter bson.M) (*PermissionRecord, error) {
	var doc permissionDoc
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperror.NewNotFound("permission not found")
		}
		return nil, fmt.Errorf("querying permission: %w", err)
	}
	rec := doc.toRecord()
	return &rec, nil
}

func (r *permissionRepository) Create(ctx context.Context, rec *PermissionRecord) error {
	res, err := r.coll.InsertOne(ctx, permissionDoc{Slug: string(rec.Slug), Name: rec.Name, Module: rec.Module})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperror.NewConflict("permission already exists")
		}
		return fmt.Errorf("inserting permission: %w", err)
	}
	if oid, ok := res.InsertedID.(bson.ObjectID); ok {
		rec.ID = oid.Hex()
	}
	return nil
}

func (r *permissionRepository) Update(ctx context.Context, rec *PermissionRecord) error {
	oid, err := parseObjectID(rec.ID, "permission")
	if err != nil {
		return err
	}
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": bson.M{"name": rec.Name, "module": rec.Module}})
	if err != nil {
		return fmt.Errorf("updating permission: %w", err)
	}
	if res.MatchedCount == 0 {
		return apperror.NewNotFound("permission not found")
	}
	return nil
}

func (r *permissionRepository) Delete(ctx context.Context, id string) error {
	oid, err := parseObjectID(id, "permission")
	if err != nil {
		return err
	}
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("deleting permission: %w", err)
	}
	if res.DeletedCount == 0 {
		return apperror.NewNotFound("permission not found")
	}
	return nil
}

func (r *permissionRepository) EnsureExists(ctx context.Context, rec PermissionRecord) error {
	_, err := r.coll.UpdateOne(ctx,
		bson.M{"slug": string(rec.Slug)},
		bson.M{"$setOnInsert": bson.M{"slug": string(rec.Slug), "name": rec.Name, "module": rec.Module}},
		options.UpdateOne().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("seeding permission %s: %w", rec.Slug, err)
	}
	return nil
}
