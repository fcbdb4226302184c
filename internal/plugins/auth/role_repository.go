package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/keyxmakerx/forgepoint/internal/apperror"
)

// RoleRepository defines the data access contract for roles.
type RoleRepository interface {
	Create(ctx context.Context, role *Role) error
	FindByID(ctx context.Context, id string) (*Role, error)
	FindBySlug(ctx context.Context, slug string) (*Role, error)
	FindByIDs(ctx context.Context, ids []string) ([]Role, error)
	List(ctx context.Context) ([]Role, error)
	Update(ctx context.Context, role *Role) error
	Delete(ctx context.Context, id string) error

	// UpsertSystem creates or refreshes a system role by slug and sets its ID.
	UpsertSystem(ctx context.Context, role *Role) error

	// PullPermission removes perm from every non-system role.
	PullPermission(ctx context.Context, perm Permission) error
}

type roleDoc struct {
	ID          bson.ObjectID `bson:"_id,omitempty"`
	Slug        string        `bson:"slug"`
	Name        string        `bson:"name"`
	Description string        `bson:"description,omitempty"`
	IsSystem    bool          `bson:"isSystem"`
	Permissions []string      `bson:"permissions"`
	CreatedAt   time.Time     `bson:"createdAt"`
	UpdatedAt   time.Time     `bson:"updatedAt"`
}

func (d *roleDoc) toRole() Role {
	perms := make([]Permission, 0, len(d.Permissions))
	for _, p := range d.Permissions {
		// Slugs dropped from the catalog are ignored rather than granted.
		if info, ok := LookupPermission(p); ok {
			perms = append(perms, info.Slug)
		}
	}
	return Role{
		ID:          d.ID.Hex(),
		Slug:        d.Slug,
		Name:        d.Name,
		Description: d.Description,
		IsSystem:    d.IsSystem,
		Permissions: perms,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

func permissionStrings(perms []Permission) []string {
	out := make([]string, len(perms))
	for i, p := range perms {
		out[i] = string(p)
	}
	return out
}

type roleRepository struct {
	coll *mongo.Collection
}

// NewRoleRepository creates a role repository on db.
func NewRoleRepository(db *mongo.Database) RoleRepository {
	return &roleRepository{coll: db.Collection(rolesCollection)}
}

func (r *roleRepository) Create(ctx context.Context, role *Role) error {
	now := time.Now().UTC()
	doc := roleDoc{
		Slug:        role.Slug,
		Name:        role.Name,
		Description: role.Description,
		IsSystem:    role.IsSystem,
		Permissions: permissionStrings(role.Permissions),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	res, err := r.coll.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperror.NewConflict("a role with this slug already exists")
		}
		return fmt.Errorf("inserting role: %w", err)
	}
	if oid, ok := res.InsertedID.(bson.ObjectID); ok {
		role.ID = oid.Hex()
	}
	role.CreatedAt = now
	role.UpdatedAt = now
	return nil
}

func (r *roleRepository) FindByID(ctx context.Context, id string) (*Role, error) {
	oid, err := parseObjectID(id, "role")
	if err != nil {
		return nil, err
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *roleRepository) FindBySlug(ctx context.Context, slug string) (*Role, error) {
	return r.findOne(ctx, bson.M{"slug": slug})
}

func (r *roleRepository) findOne(ctx context.Context, filter bson.M) (*Role, error) {
	var doc roleDoc
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperror.NewNotFound("role not found")
		}
		return nil, fmt.Errorf("querying role: %w", err)
	}
	role := doc.toRole()
	return &role, nil
}

// FindByIDs loads the roles with the given IDs. Unknown or malformed IDs
// are skipped, so a dangling reference simply grants nothing.
func (r *roleRepository) FindByIDs(ctx context.Context, ids []string) ([]Role, error) {
	oids := make([]bson.ObjectID, 0, len(ids))
	for _, id := range ids {
		if oid, err := bson.ObjectIDFromHex(id); err == nil {
			oids = append(oids, oid)
		}
	}
	if len(oids) == 0 {
		return nil, nil
	}
	return r.find(ctx, bson.M{"_id": bson.M{"$in": oids}})
}

func (r *roleRepository) List(ctx context.Context) ([]Role, error) {
	return r.find(ctx, bson.M{})
}

func (r *roleRepository) find(ctx context.Context, filter bson.M) ([]Role, error) {
	cur, err := r.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "slug", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("querying roles: %w", err)
	}
	var docs []roleDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decoding roles: %w", err)
	}
	roles := make([]Role, 0, len(docs))
	for i := range docs {
		roles = append(roles, docs[i].toRole())
	}
	return roles, nil
}

// Update writes name, description and permissions. System roles are
// excluded by the filter as a second line of defence behind the service.
func (r *roleRepository) Update(ctx context.Context, role *Role) error {
	oid, err := parseObjectID(role.ID, "role")
	if err != nil {
		return err
	}
	role.UpdatedAt = time.Now().UTC()
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": oid, "isSystem": bson.M{"$ne": true}},
		bson.M{"$set": bson.M{
			"name":        role.Name,
			"description": role.Description,
			"permissions": permissionStrings(role.Permissions),
			"updatedAt":   role.UpdatedAt,
		}},
	)
	if err != nil {
		return fmt.Errorf("updating role: %w", err)
	}
	if res.MatchedCount == 0 {
		return apperror.NewNotFound("role not found")
	}
	return nil
}

func (r *roleRepository) Delete(ctx context.Context, id string) error {
	oid, err := parseObjectID(id, "role")
	if err != nil {
		return err
	}
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": oid, "isSystem": bson.M{"$ne": true}})
	if err != nil {
		return fmt.Errorf("deleting role: %w", err)
	}
	if res.DeletedCount == 0 {
		return apperror.NewNotFound("role not found")
	}
	return nil
}

func (r *roleRepository) UpsertSystem(ctx context.Context, role *Role) error {
	now := time.Now().UTC()
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	update := bson.M{
		"$set": bson.M{
			"name":        role.Name,
			"description": role.Description,
			"isSystem":    true,
			"permissions": permissionStrings(role.Permissions),
			"updatedAt":   now,
		},
		"$setOnInsert": bson.M{"createdAt": now},
	}

	var doc roleDoc
	if err := r.coll.FindOneAndUpdate(ctx, bson.M{"slug": role.Slug}, update, opts).Decode(&doc); err != nil {
		return fmt.Errorf("upserting system role %s: %w", role.Slug, err)
	}
	*role = doc.toRole()
	return nil
}

func (r *roleRepository) PullPermission(ctx context.Context, perm Permission) error {
	_, err := r.coll.UpdateMany(ctx,
		bson.M{"permissions": string(perm), "isSystem": bson.M{"$ne": true}},
		bson.M{"$pull": bson.M{"permissions": string(perm)}, "$set": bson.M{"updatedAt": time.Now().UTC()}},
	)
	if err != nil {
		return fmt.Errorf("removing permission from roles: %w", err)
	}
	return nil
}
