package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/markjakearzadon/guardtip-gobackend/internal/ledger"
	"github.com/markjakearzadon/guardtip-gobackend/internal/models"
)

const (
	paymentRecordsCollection = "payment_records"
	storedListingCap         = 1000
)

// LedgerStore persists one canonical PaymentRecord per payment id.
type LedgerStore interface {
	// Upsert writes rec unless the stored record for the same id supersedes
	// it. It reports whether rec was written.
	Upsert(ctx context.Context, rec models.PaymentRecord) (bool, error)
	Get(ctx context.Context, paymentID string) (*models.PaymentRecord, error)
	ListByWallet(ctx context.Context, walletID string) ([]models.PaymentRecord, error)
	ListByCustomer(ctx context.Context, customerID string) ([]models.PaymentRecord, error)
	UpdateStatus(ctx context.Context, paymentID, status string) error
}

type MongoLedgerStore struct {
	collection *mongo.Collection
}

func NewMongoLedgerStore(db *mongo.Database) *MongoLedgerStore {
	return &MongoLedgerStore{collection: db.Collection(paymentRecordsCollection)}
}

// EnsureIndexes creates the indexes used by the wallet and customer listings.
func (s *MongoLedgerStore) EnsureIndexes(ctx context.Context) error {
	indexModels := []mongo.IndexModel{
		{Keys: bson.D{{Key: "wallet_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "customer_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "associated_payment_id", Value: 1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: -1}}},
	}
	if _, err := s.collection.Indexes().CreateMany(ctx, indexModels); err != nil {
		logrus.Errorf("Failed to create indexes: %v", err)
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

func (s *MongoLedgerStore) Upsert(ctx context.Context, rec models.PaymentRecord) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	existing, err := s.Get(ctx, rec.PaymentID)
	switch {
	case err == nil:
		if !ledger.Supersedes(rec, *existing) {
			return false, nil
		}
	case !errors.Is(err, ErrNotFound):
		return false, err
	}

	_, err = s.collection.ReplaceOne(ctx, bson.M{"_id": rec.PaymentID}, rec, options.Replace().SetUpsert(true))
	if err != nil {
		logrus.WithField("payment_id", rec.PaymentID).Errorf("Failed to upsert payment record: %v", err)
		return false, fmt.Errorf("failed to upsert payment record: %w", err)
	}
	return true, nil
}

func (s *MongoLedgerStore) Get(ctx context.Context, paymentID string) (*models.PaymentRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var rec models.PaymentRecord
	if err := s.collection.FindOne(ctx, bson.M{"_id": paymentID}).Decode(&rec); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("payment %s: %w", paymentID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to fetch payment %s: %w", paymentID, err)
	}
	return &rec, nil
}

func (s *MongoLedgerStore) ListByWallet(ctx context.Context, walletID string) ([]models.PaymentRecord, error) {
	return s.find(ctx, bson.M{"wallet_id": walletID})
}

func (s *MongoLedgerStore) ListByCustomer(ctx context.Context, customerID string) ([]models.PaymentRecord, error) {
	return s.find(ctx, bson.M{"customer_id": customerID})
}

func (s *MongoLedgerStore) find(ctx context.Context, filter bson.M) ([]models.PaymentRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetLimit(storedListingCap)
	cursor, err := s.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch payment records: %w", err)
	}
	defer cursor.Close(ctx)

	records := []models.PaymentRecord{}
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("failed to decode payment records: %w", err)
	}
	return records, nil
}

// UpdateStatus records a webhook status change on an existing record.
func (s *MongoLedgerStore) UpdateStatus(ctx context.Context, paymentID, status string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	update := bson.M{"$set": bson.M{
		"status":     status,
		"source":     models.SourceWebhook,
		"updated_at": ledger.FormatTimestamp(time.Now()),
	}}
	result, err := s.collection.UpdateOne(ctx, bson.M{"_id": paymentID}, update)
	if err != nil {
		return fmt.Errorf("failed to update payment status: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("payment %s: %w", paymentID, ErrNotFound)
	}
	return nil
}
