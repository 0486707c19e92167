package main

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/markjakearzadon/guardtip-gobackend/internal/cache"
	"github.com/markjakearzadon/guardtip-gobackend/internal/config"
	"github.com/markjakearzadon/guardtip-gobackend/internal/db"
	"github.com/markjakearzadon/guardtip-gobackend/internal/eclipse"
	"github.com/markjakearzadon/guardtip-gobackend/internal/kafka"
	"github.com/markjakearzadon/guardtip-gobackend/internal/services"
)

// app holds the wired services shared by every command.
type app struct {
	cfg      *config.Config
	mongo    *mongo.Client
	closers  []func()
	guards   *services.CivilServantService
	payments *services.PaymentService
	wallets  *services.WalletService
}

func newApp(ctx context.Context) (*app, error) {
	cfg := config.Load()
	if cfg.Eclipse.BaseURL == "" {
		return nil, fmt.Errorf("ECLIPSE_BASE_URL environment variable not set")
	}

	client, err := db.Connect(ctx, cfg.MongoURI)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, mongo: client}
	a.closers = append(a.closers, func() { db.Disconnect(client) })

	database := client.Database(cfg.MongoDatabase)
	store := services.NewMongoLedgerStore(database)
	if err := store.EnsureIndexes(ctx); err != nil {
		logrus.Warnf("Failed to create payment record indexes: %v", err)
	}

	gateway := eclipse.NewClient(cfg.Eclipse, nil)
	a.guards = services.NewCivilServantService(database, gateway)
	if err := a.guards.EnsureIndexes(ctx); err != nil {
		logrus.Warnf("Failed to create civil servant indexes: %v", err)
	}

	var claims services.ClaimStore
	if cfg.RedisAddr != "" {
		rdb, err := cache.Connect(ctx, cfg.RedisAddr)
		if err != nil {
			logrus.Warnf("Redis unavailable, fee claims fall back to the ledger: %v", err)
		} else {
			claims = cache.NewClaimStore(rdb)
			a.closers = append(a.closers, func() { rdb.Close() })
		}
	}

	var notifier services.Notifier
	if len(cfg.KafkaBrokers) > 0 {
		producer, err := kafka.NewProducer(cfg.KafkaBrokers, cfg.NotificationTopic)
		if err != nil {
			logrus.Warnf("Kafka unavailable, payment notifications disabled: %v", err)
		} else {
			notifier = producer
			a.closers = append(a.closers, func() { producer.Close() })
		}
	}

	fees := services.NewPlatformFeeService(gateway, store, claims, cfg.TenantWalletID)
	a.payments = services.NewPaymentService(gateway, store, a.guards, fees, notifier, services.PaymentConfig{
		MinTipAmount:    cfg.MinTipAmount,
		MaxTipAmount:    cfg.MaxTipAmount,
		TipPaymentType:  cfg.TipPaymentType,
		ReconcileWindow: cfg.ReconcileWindow,
	})
	a.wallets = services.NewWalletService(gateway, store, fees, services.WalletConfig{
		MinWithdrawalAmount: cfg.MinWithdrawalAmount,
		MaxWithdrawalAmount: cfg.MaxWithdrawalAmount,
	})
	return a, nil
}

func (a *app) Close() {
	if a.payments != nil {
		a.payments.Wait()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}
