package services

import (
	"context"
	"time"

	"github.com/markjakearzadon/guardtip-gobackend/internal/eclipse"
	"github.com/markjakearzadon/guardtip-gobackend/internal/models"
)

// Gateway is the subset of the eclipse client the services depend on.
type Gateway interface {
	CreatePayment(ctx context.Context, req eclipse.PaymentRequest) (map[string]any, error)
	GetPayment(ctx context.Context, paymentID string) (map[string]any, error)
	ListPayments(ctx context.Context, q eclipse.ListQuery) ([]map[string]any, error)
	ListReservations(ctx context.Context, q eclipse.ListQuery) ([]map[string]any, error)
	CreateWithdrawal(ctx context.Context, req eclipse.WithdrawalRequest) (map[string]any, error)
	TransferBetweenWallets(ctx context.Context, req eclipse.TransferRequest) (map[string]any, error)
	GetWallet(ctx context.Context, walletID string) (map[string]any, error)
	CreateWallet(ctx context.Context, req eclipse.WalletRequest) (map[string]any, error)
	VerifyWebhookSignature(rawBody []byte, signature string) bool
}

// ClaimStore hands out short-lived exclusive claims on a key.
type ClaimStore interface {
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

// Notifier publishes guard-facing payment events.
type Notifier interface {
	PublishPaymentReceived(ctx context.Context, n models.PaymentNotification) error
}

// GuardDirectory resolves guard profiles for tips.
type GuardDirectory interface {
	GetByGuardToken(ctx context.Context, guardToken string) (*models.CivilServant, error)
	EnsureWallet(ctx context.Context, guardToken string) (*models.CivilServant, error)
}
