package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/keyxmakerx/forgepoint/internal/apperror"
)

// Collection names owned by this plugin.
const (
	usersCollection       = "users"
	rolesCollection       = "roles"
	permissionsCollection = "permissions"
)

// UserRepository defines the data access contract for user operations.
// All Mongo queries live in the concrete implementation.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	FindByID(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	UpdateLastLogin(ctx context.Context, id string) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error

	// Admin operations.
	List(ctx context.Context, offset, limit int) ([]User, int, error)
	Update(ctx context.Context, user *User) error
	Delete(ctx context.Context, id string) error
	PullRole(ctx context.Context, roleID string) error
}

// userDoc is the stored form of a User.
type userDoc struct {
	ID           bson.ObjectID   `bson:"_id,omitempty"`
	Email        string          `bson:"email"`
	Name         string          `bson:"name"`
	PasswordHash string          `bson:"passwordHash"`
	Roles        []bson.ObjectID `bson:"roles"`
	IsActive     bool            `bson:"isActive"`
	LastLogin    *time.Time      `bson:"lastLogin,omitempty"`
	CreatedAt    time.Time       `bson:"createdAt"`
	UpdatedAt    time.Time       `bson:"updatedAt"`
}

func (d *userDoc) toUser() *User {
	roles := make([]string, len(d.Roles))
	for i, r := range d.Roles {
		roles[i] = r.Hex()
	}
	return &User{
		ID:           d.ID.Hex(),
		Email:        d.Email,
		Name:         d.Name,
		PasswordHash: d.PasswordHash,
		Roles:        roles,
		IsActive:     d.IsActive,
		LastLogin:    d.LastLogin,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

// userRepository implements UserRepository on a MongoDB collection.
type userRepository struct {
	coll *mongo.Collection
}

// NewUserRepository creates a user repository on db.
func NewUserRepository(db *mongo.Database) UserRepository {
	return &userRepository{coll: db.Collection(usersCollection)}
}

// Create inserts user and sets its ID. A duplicate email is a conflict.
func (r *userRepository) Create(ctx context.Context, user *User) error {
	roles, err := parseObjectIDs(user.Roles)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	doc := userDoc{
		Email:        normalizeEmail(user.Email),
		Name:         user.Name,
		PasswordHash: user.PasswordHash,
		Roles:        roles,
		IsActive:     user.IsActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	res, err := r.coll.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperror.NewConflict("a user with this email already exists")
		}
		return fmt.Errorf("inserting user: %w", err)
	}

	if oid, ok := res.InsertedID.(bson.ObjectID); ok {
		user.ID = oid.Hex()
	}
	user.Email = doc.Email
	user.CreatedAt = now
	user.UpdatedAt = now
	return nil
}

// FindByID retrieves a user by ID.
// Returns apperror.NotFound if no user exists with this ID.
func (r *userRepository) FindByID(ctx context.Context, id string) (*User, error) {
	oid, err := parseObjectID(id, "user")
	if err != nil {
		return nil, err
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

// FindByEmail retrieves a user by email address (case-insensitive).
func (r *userRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	return r.findOne(ctx, bson.M{"email": normalizeEmail(email)})
}

func (r *userRepository) findOne(ctx context.Context, filter bson.M) (*User, error) {
	var doc userDoc
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperror.NewNotFound("user not found")
		}
		return nil, fmt.Errorf("querying user: %w", err)
	}
	return doc.toUser(), nil
}

// EmailExists checks whether a user with the given email already exists.
func (r *userRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{"email": normalizeEmail(email)}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("checking email exists: %w", err)
	}
	return n > 0, nil
}

// UpdateLastLogin sets lastLogin to the current time.
func (r *userRepository) UpdateLastLogin(ctx context.Context, id string) error {
	return r.set(ctx, id, bson.M{"lastLogin": time.Now().UTC()})
}

// UpdatePassword replaces the stored password hash.
func (r *userRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	return r.set(ctx, id, bson.M{"passwordHash": passwordHash, "updatedAt": time.Now().UTC()})
}

// Update writes the mutable fields of user.
func (r *userRepository) Update(ctx context.Context, user *User) error {
	roles, err := parseObjectIDs(user.Roles)
	if err != nil {
		return err
	}
	user.UpdatedAt = time.Now().UTC()
	user.Email = normalizeEmail(user.Email)

	err = r.set(ctx, user.ID, bson.M{
		"email":        user.Email,
		"name":         user.Name,
		"passwordHash": user.PasswordHash,
		"roles":        roles,
		"isActive":     user.IsActive,
		"updatedAt":    user.UpdatedAt,
	})
	if mongo.IsDuplicateKeyError(err) {
		return apperror.NewConflict("a user with this email already exists")
	}
	return err
}

func (r *userRepository) set(ctx context.Context, id string, fields bson.M) error {
	oid, err := parseObjectID(id, "user")
	if err != nil {
		return err
	}
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": fields})
	if err != nil {
		return fmt.Errorf("updating user: %w", err)
	}
	if res.MatchedCount == 0 {
		return apperror.NewNotFound("user not found")
	}
	return nil
}

// Delete removes a user.
func (r *userRepository) Delete(ctx context.Context, id string) error {
	oid, err := parseObjectID(id, "user")
	if err != nil {
		return err
	}
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("deleting user: %w", err)
	}
	if res.DeletedCount == 0 {
		return apperror.NewNotFound("user not found")
	}
	return nil
}

// List returns a page of users ordered by creation time, newest first,
// along with the total count.
func (r *userRepository) List(ctx context.Context, offset, limit int) ([]User, int, error) {
	total, err := r.coll.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, 0, fmt.Errorf("counting users: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))
	cur, err := r.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("listing users: %w", err)
	}

	var docs []userDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, 0, fmt.Errorf("decoding users: %w", err)
	}

	users := make([]User, 0, len(docs))
	for i := range docs {
		users = append(users, *docs[i].toUser())
	}
	return users, int(total), nil
}

// PullRole removes roleID from every user holding it.
func (r *userRepository) PullRole(ctx context.Context, roleID string) error {
	oid, err := parseObjectID(roleID, "role")
	if err != nil {
		return err
	}
	_, err = r.coll.UpdateMany(ctx,
		bson.M{"roles": oid},
		bson.M{"$pull": bson.M{"roles": oid}, "$set": bson.M{"updatedAt": time.Now().UTC()}},
	)
	if err != nil {
		return fmt.Errorf("removing role from users: %w", err)
	}
	return nil
}

// --- Helpers ---

// parseObjectID converts a hex ID. Malformed IDs cannot match any document
// so they are reported as not found.
func parseObjectID(id, kind string) (bson.ObjectID, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return bson.ObjectID{}, apperror.NewNotFound(kind + " not found")
	}
	return oid, nil
}

func parseObjectIDs(ids []string) ([]bson.ObjectID, error) {
	out := make([]bson.ObjectID, 0, len(ids))
	for _, id := range ids {
		oid, err := bson.ObjectIDFromHex(id)
		if err != nil {
			return nil, apperror.NewValidation("invalid role reference", map[string]string{"roles": id + " is not a valid role id"})
		}
		out = append(out, oid)
	}
	return out, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
