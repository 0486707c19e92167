package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/markjakearzadon/guardtip-gobackend/internal/eclipse"
	"github.com/markjakearzadon/guardtip-gobackend/internal/models"
)

type CivilServantService struct {
	collection *mongo.Collection
	gateway    Gateway
}

func NewCivilServantService(db *mongo.Database, gateway Gateway) *CivilServantService {
	return &CivilServantService{collection: db.Collection("civil_servants"), gateway: gateway}
}

// EnsureIndexes makes guard tokens unique.
func (s *CivilServantService) EnsureIndexes(ctx context.Context) error {
	_, err := s.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "guard_token", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		logrus.Errorf("Failed to create civil servant indexes: %v", err)
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

func (s *CivilServantService) GetByGuardToken(ctx context.Context, guardToken string) (*models.CivilServant, error) {
	return s.findOne(ctx, bson.M{"guard_token": guardToken}, "guard token "+guardToken)
}

// GetByID looks a guard up by the hex string of its ObjectID.
func (s *CivilServantService) GetByID(ctx context.Context, id string) (*models.CivilServant, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, invalid("id", "invalid civil servant id format")
	}
	return s.findOne(ctx, bson.M{"_id": objID}, "id "+id)
}

func (s *CivilServantService) findOne(ctx context.Context, filter bson.M, desc string) (*models.CivilServant, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var guard models.CivilServant
	if err := s.collection.FindOne(ctx, filter).Decode(&guard); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			logrus.Infof("Civil servant not found for %s", desc)
			return nil, fmt.Errorf("civil servant with %s: %w", desc, ErrNotFound)
		}
		logrus.Errorf("Failed to fetch civil servant for %s: %v", desc, err)
		return nil, fmt.Errorf("failed to fetch civil servant: %w", err)
	}
	return &guard, nil
}

// EnsureWallet returns the guard behind guardToken, opening a gateway wallet
// for it first when it has none.
func (s *CivilServantService) EnsureWallet(ctx context.Context, guardToken string) (*models.CivilServant, error) {
	guard, err := s.GetByGuardToken(ctx, guardToken)
	if err != nil {
		return nil, err
	}
	if guard.WalletID != "" {
		return guard, nil
	}

	resp, err := s.gateway.CreateWallet(ctx, eclipse.WalletRequest{
		CustomerID: guard.CustomerID,
		Name:       guard.FullName,
		Currency:   models.DefaultCurrency,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create wallet for civil servant %s: %w", guard.ID.Hex(), err)
	}
	walletID := stringValue(resp, "walletId", "id")
	if walletID == "" {
		return nil, fmt.Errorf("wallet response for civil servant %s carried no wallet id", guard.ID.Hex())
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	_, err = s.collection.UpdateOne(ctx, bson.M{"_id": guard.ID}, bson.M{"$set": bson.M{"wallet_id": walletID}})
	if err != nil {
		logrus.Errorf("Failed to save wallet %s for civil servant %s: %v", walletID, guard.ID.Hex(), err)
		return nil, fmt.Errorf("failed to save wallet id: %w", err)
	}

	logrus.WithField("wallet_id", walletID).Infof("Created wallet for civil servant %s", guard.ID.Hex())
	guard.WalletID = walletID
	return guard, nil
}

func stringValue(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			if s := strings.TrimSpace(fmt.Sprint(v)); s != "" {
				return s
			}
		}
	}
	return ""
}
