package remote

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/tablewise-app/tablewise-backend/internal/cart"
)

// MongoStore is the document-store implementation of the remote cart
// contract: one record per user identity, whole cart in a single document,
// partial updates for the per-item operations.
type MongoStore struct {
	collection *mongo.Collection
}

// NewMongoStore wraps the cart collection.
func NewMongoStore(collection *mongo.Collection) (*MongoStore, error) {
	if collection == nil {
		return nil, errors.New("cart collection required")
	}
	return &MongoStore{collection: collection}, nil
}

// Get loads the user's cart record, reporting absence without error.
func (s *MongoStore) Get(ctx context.Context, userID string) (cart.Snapshot, bool, error) {
	var doc cartDocument
	err := s.collection.FindOne(ctx, bson.M{"user_id": userID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return cart.Snapshot{}, false, nil
		}
		return cart.Snapshot{}, false, fmt.Errorf("get cart: %w", err)
	}

	snapshot, err := doc.toSnapshot()
	if err != nil {
		return cart.Snapshot{}, false, err
	}
	return snapshot, true, nil
}

// Set replaces the whole record, creating it when absent. It must be a full
// replace, not a partial update: fields missing from the snapshot, like a
// dropped promo, must not survive from the previous record.
func (s *MongoStore) Set(ctx context.Context, userID string, snapshot cart.Snapshot, revision int64) error {
	doc := toDocument(userID, snapshot, revision)
	opts := options.Replace().SetUpsert(true)
	if _, err := s.collection.ReplaceOne(ctx, bson.M{"user_id": userID}, doc, opts); err != nil {
		return fmt.Errorf("set cart: %w", err)
	}
	return nil
}

// UpsertItem writes a single line in place, appending it when the id is not
// present yet.
func (s *MongoStore) UpsertItem(ctx context.Context, userID string, item cart.LineItem, revision int64) error {
	doc := toItemDocument(item)

	res, err := s.collection.UpdateOne(ctx,
		bson.M{"user_id": userID, "items.id": item.ID},
		bson.M{"$set": bson.M{
			"items.$":    doc,
			"revision":   revision,
			"updated_at": time.Now().UTC(),
		}},
	)
	if err != nil {
		return fmt.Errorf("upsert cart item: %w", err)
	}
	if res.MatchedCount > 0 {
		return nil
	}

	opts := options.Update().SetUpsert(true)
	_, err = s.collection.UpdateOne(ctx,
		bson.M{"user_id": userID},
		bson.M{
			"$push": bson.M{"items": doc},
			"$set":  bson.M{"revision": revision, "updated_at": time.Now().UTC()},
		},
		opts,
	)
	if err != nil {
		return fmt.Errorf("append cart item: %w", err)
	}
	return nil
}

// RemoveItem pulls the identified line. Removing an absent line is a no-op.
func (s *MongoStore) RemoveItem(ctx context.Context, userID, itemID string, revision int64) error {
	_, err := s.collection.UpdateOne(ctx,
		bson.M{"user_id": userID},
		bson.M{
			"$pull": bson.M{"items": bson.M{"id": itemID}},
			"$set":  bson.M{"revision": revision, "updated_at": time.Now().UTC()},
		},
	)
	if err != nil {
		return fmt.Errorf("remove cart item: %w", err)
	}
	return nil
}

// SetQuantity updates the quantity of one line via a positional update.
func (s *MongoStore) SetQuantity(ctx context.Context, userID, itemID string, quantity int, revision int64) error {
	_, err := s.collection.UpdateOne(ctx,
		bson.M{"user_id": userID, "items.id": itemID},
		bson.M{"$set": bson.M{
			"items.$.quantity": quantity,
			"revision":         revision,
			"updated_at":       time.Now().UTC(),
		}},
	)
	if err != nil {
		return fmt.Errorf("set cart item quantity: %w", err)
	}
	return nil
}

// SetPromo installs or clears the applied promo on the record.
func (s *MongoStore) SetPromo(ctx context.Context, userID string, promo *cart.PromoCode, revision int64) error {
	update := bson.M{
		"$set": bson.M{
			"promo":      toPromoDocument(promo),
			"revision":   revision,
			"updated_at": time.Now().UTC(),
		},
	}
	if promo == nil {
		update = bson.M{
			"$unset": bson.M{"promo": ""},
			"$set":   bson.M{"revision": revision, "updated_at": time.Now().UTC()},
		}
	}
	if _, err := s.collection.UpdateOne(ctx, bson.M{"user_id": userID}, update); err != nil {
		return fmt.Errorf("set cart promo: %w", err)
	}
	return nil
}

// Delete drops the record entirely, used when the cart is cleared.
func (s *MongoStore) Delete(ctx context.Context, userID string) error {
	if _, err := s.collection.DeleteOne(ctx, bson.M{"user_id": userID}); err != nil {
		return fmt.Errorf("delete cart: %w", err)
	}
	return nil
}

var _ cart.RemoteStore = (*MongoStore)(nil)
