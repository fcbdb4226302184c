package contact

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

const collectionName = "contacts"

// Repository defines data access for contact submissions.
type Repository interface {
	Create(ctx context.Context, s *Submission) error
	FindByID(ctx context.Context, id string) (*Submission, error)
	List(ctx context.Context, status Status, offset, limit int) ([]Submission, int, error)
	UpdateTriage(ctx context.Context, id string, status *Status, notes *string) (*Submission, error)
	Delete(ctx context.Context, id string) error
}

type submissionDoc struct {
	ID          bson.ObjectID `bson:"_id,omitempty"`
	Name        string        `bson:"name"`
	Email       string        `bson:"email"`
	Phone       string        `bson:"phone,omitempty"`
	Company     string        `bson:"company,omitempty"`
	Service     string        `bson:"service,omitempty"`
	Budget      string        `bson:"budget,omitempty"`
	Message     string        `bson:"message"`
	Attachments []StoredFile  `bson:"attachments"`
	VoiceNote   *StoredFile   `bson:"voiceNote,omitempty"`
	Status      Status        `bson:"status"`
	Notes       string        `bson:"notes,omitempty"`
	IPAddress   string        `bson:"ipAddress,omitempty"`
	UserAgent   string        `bson:"userAgent,omitempty"`
	CreatedAt   time.Time     `bson:"createdAt"`
	UpdatedAt   time.Time     `bson:"updatedAt"`
}

func (d *submissionDoc) toSubmission() *Submission {
	attachments := d.Attachments
	if attachments == nil {
		attachments = []StoredFile{}
	}
	return &Submission{
		ID:          d.ID.Hex(),
		Name:        d.Name,
		Email:       d.Email,
		Phone:       d.Phone,
		Company:     d.Company,
		Service:     d.Service,
		Budget:      d.Budget,
		Message:     d.Message,
		Attachments: attachments,
		VoiceNote:   d.VoiceNote,
		Status:      d.Status,
		Notes:       d.Notes,
		IPAddress:   d.IPAddress,
		UserAgent:   d.UserAgent,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

type mongoRepository struct {
	coll *mongo.Collection
}

// NewRepository creates a contact repository on db.
func NewRepository(db *mongo.Database) Repository {
	return &mongoRepository{coll: db.Collection(collectionName)}
}

func (r *mongoRepository) Create(ctx context.Context, s *Submission) error {
	now := time.Now().UTC()
	attachments := s.Attachments
	if attachments == nil {
		attachments = []StoredFile{}
	}
	doc := submissionDoc{
		Name:        s.Name,
		Email:       s.Email,
		Phone:       s.Phone,
		Company:     s.Company,
		Service:     s.Service,
		Budget:      s.Budget,
		Message:     s.Message,
		Attachments: attachments,
		VoiceNote:   s.VoiceNote,
		Status:      s.Status,
		IPAddress:   s.IPAddress,
		UserAgent:   s.UserAgent,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	res, err := r.coll.InsertOne(ctx, doc)
	if err != nil {
		return fmt.Errorf("inserting submission: %w", err)
	}
	if oid, ok := res.InsertedID.(bson.ObjectID); ok {
		s.ID = oid.Hex()
	}
	s.Attachments = attachments
	s.CreatedAt = now
	s.UpdatedAt = now
	return nil
}

func (r *mongoRepository) FindByID(ctx context.Context, id string) (*Submission, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	var doc submissionDoc
	if err := r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperror.NewNotFound("submission not found")
		}
		return nil, fmt.Errorf("querying submission: %w", err)
	}
	return doc.toSubmission(), nil
}

// List returns submissions newest first. An empty status matches all.
func (r *mongoRepository) List(ctx context.Context, status Status, offset, limit int) ([]Submission, int, error) {
	filter := bson.M{}
	if status != "" {
		filter["status"] = status
	}

	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("counting submissions: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("listing submissions: %w", err)
	}

	var docs []submissionDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, 0, fmt.Errorf("decoding submissions: %w", err)
	}
	out := make([]Submission, 0, len(docs))
	for i := range docs {
		out = append(out, *docs[i].toSubmission())
	}
	return out, int(total), nil
}

// UpdateTriage sets status and/or notes and returns the updated document.
func (r *mongoRepository) UpdateTriage(ctx context.Context, id string, status *Status, notes *string) (*Submission, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}

	set := bson.M{"updatedAt": time.Now().UTC()}
	if status != nil {
		set["status"] = *status
	}
	if notes != nil {
		set["notes"] = *notes
	}

	var doc submissionDoc
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	err = r.coll.FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": set}, opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperror.NewNotFound("submission not found")
		}
		return nil, fmt.Errorf("updating submission: %w", err)
	}
	return doc.toSubmission(), nil
}

func (r *mongoRepository) Delete(ctx context.Context, id string) error {
	oid, err := parseID(id)
	if err != nil {
		return err
	}
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("deleting submission: %w", err)
	}
	if res.DeletedCount == 0 {
		return apperror.NewNotFound("submission not found")
	}
	return nil
}

func parseID(id string) (bson.ObjectID, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return bson.ObjectID{}, apperror.NewNotFound("submission not found")
	}
	return oid, nil
}
