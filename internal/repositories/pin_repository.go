package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/anonto42/pinpoint/backend/internal/apperr"
	"github.com/anonto42/pinpoint/backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// PinRepository defines the interface for pin data operations
type PinRepository interface {
	Insert(ctx context.Context, pin *models.Pin) (string, error)
	GetByID(ctx context.Context, id string) (*models.Pin, error)
	Nearby(ctx context.Context, center models.Point, radiusMeters float64, limit int64) ([]models.Pin, error)
	Delete(ctx context.Context, id string, ownerID uint) error
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
	EnsureIndexes(ctx context.Context) error
}

// geoJSONPoint is the GeoJSON shape MongoDB's 2dsphere index expects.
// Coordinates are [longitude, latitude].
type geoJSONPoint struct {
	Type        string    `bson:"type"`
	Coordinates []float64 `bson:"coordinates"`
}

type pinDocument struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	OwnerID   uint               `bson:"owner_id"`
	Category  string             `bson:"category"`
	Location  geoJSONPoint       `bson:"location"`
	CreatedAt time.Time          `bson:"created_at"`
}

func newPinDocument(pin *models.Pin) pinDocument {
	return pinDocument{
		OwnerID:  pin.OwnerID,
		Category: pin.Category,
		Location: geoJSONPoint{
			Type:        "Point",
			Coordinates: []float64{pin.Location.Longitude, pin.Location.Latitude},
		},
		CreatedAt: pin.CreatedAt,
	}
}

func (d pinDocument) toModel() models.Pin {
	pin := models.Pin{
		ID:        d.ID.Hex(),
		OwnerID:   d.OwnerID,
		Category:  d.Category,
		CreatedAt: d.CreatedAt,
	}
	if len(d.Location.Coordinates) == 2 {
		pin.Location = models.Point{Longitude: d.Location.Coordinates[0], Latitude: d.Location.Coordinates[1]}
	}
	return pin
}

// MongoPinRepository implements PinRepository for MongoDB
type MongoPinRepository struct {
	collection *mongo.Collection
}

// NewMongoPinRepository creates a new MongoPinRepository
func NewMongoPinRepository(db *mongo.Database) *MongoPinRepository {
	return &MongoPinRepository{collection: db.Collection("pins")}
}

// EnsureIndexes creates the 2dsphere index used by Nearby and the created_at index
// used by the retention sweep.
func (r *MongoPinRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "location", Value: "2dsphere"}}},
		{Keys: bson.D{{Key: "created_at", Value: 1}}},
		{Keys: bson.D{{Key: "owner_id", Value: 1}}},
	})
	return err
}

// Insert stores a new pin and returns its hex id
func (r *MongoPinRepository) Insert(ctx context.Context, pin *models.Pin) (string, error) {
	if pin.CreatedAt.IsZero() {
		pin.CreatedAt = time.Now().UTC()
	}
	doc := newPinDocument(pin)
	doc.ID = primitive.NewObjectID()

	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		return "", apperr.Storage("insert pin", err)
	}
	pin.ID = doc.ID.Hex()
	return pin.ID, nil
}

// GetByID retrieves a pin by ID from MongoDB
func (r *MongoPinRepository) GetByID(ctx context.Context, id string) (*models.Pin, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, apperr.Invalid("pin id", "not a valid id")
	}

	var doc pinDocument
	err = r.collection.FindOne(ctx, bson.M{"_id": objID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("pin %s: %w", id, apperr.ErrNotFound)
		}
		return nil, apperr.Storage("get pin", err)
	}
	pin := doc.toModel()
	return &pin, nil
}

// Nearby returns pins within radiusMeters of center, nearest first
func (r *MongoPinRepository) Nearby(ctx context.Context, center models.Point, radiusMeters float64, limit int64) ([]models.Pin, error) {
	filter := bson.M{
		"location": bson.M{
			"$nearSphere": bson.M{
				"$geometry": bson.M{
					"type":        "Point",
					"coordinates": bson.A{center.Longitude, center.Latitude},
				},
				"$maxDistance": radiusMeters,
			},
		},
	}

	cursor, err := r.collection.Find(ctx, filter, options.Find().SetLimit(limit))
	if err != nil {
		return nil, apperr.Storage("nearby pins", err)
	}
	defer cursor.Close(ctx)

	var docs []pinDocument
	if err = cursor.All(ctx, &docs); err != nil {
		return nil, apperr.Storage("nearby pins", err)
	}

	pins := make([]models.Pin, 0, len(docs))
	for _, d := range docs {
		pins = append(pins, d.toModel())
	}
	return pins, nil
}

// Delete removes a pin owned by ownerID. A pin owned by someone else yields
// apperr.ErrForbidden and is left in place.
func (r *MongoPinRepository) Delete(ctx context.Context, id string, ownerID uint) error {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return apperr.Invalid("pin id", "not a valid id")
	}

	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": objID, "owner_id": ownerID})
	if err != nil {
		return apperr.Storage("delete pin", err)
	}
	if res.DeletedCount == 1 {
		return nil
	}

	n, err := r.collection.CountDocuments(ctx, bson.M{"_id": objID})
	if err != nil {
		return apperr.Storage("delete pin", err)
	}
	if n > 0 {
		return fmt.Errorf("pin %s: %w", id, apperr.ErrForbidden)
	}
	return fmt.Errorf("pin %s: %w", id, apperr.ErrNotFound)
}

// DeleteOlderThan removes pins created before cutoff
func (r *MongoPinRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.collection.DeleteMany(ctx, bson.M{"created_at": bson.M{"$lt": cutoff}})
	if err != nil {
		return 0, apperr.Storage("sweep pins", err)
	}
	return res.DeletedCount, nil
}
