package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markjakearzadon/guardtip-gobackend/internal/models"
)

func notification() models.PaymentNotification {
	return models.PaymentNotification{
		Event:      models.EventPaymentReceived,
		PaymentID:  "p1",
		GuardToken: "g-7",
		WalletID:   "w-guard",
		Amount:     100,
		Currency:   "ZAR",
		Message:    "You received a tip of ZAR 100.00",
		CreatedAt:  time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestPublishPaymentReceived(t *testing.T) {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	mock := mocks.NewSyncProducer(t, config)
	mock.ExpectSendMessageWithCheckerFunctionAndSucceed(func(value []byte) error {
		var got models.PaymentNotification
		if err := json.Unmarshal(value, &got); err != nil {
			return err
		}
		if got.PaymentID != "p1" || got.Amount != 100 {
			return errors.New("unexpected notification payload")
		}
		return nil
	})
	producer := NewProducerWith(mock, "")

	require.NoError(t, producer.PublishPaymentReceived(context.Background(), notification()))
	assert.Equal(t, models.EventPaymentReceived, producer.topic)
	require.NoError(t, producer.Close())
}

func TestPublishPaymentReceivedFailure(t *testing.T) {
	mock := mocks.NewSyncProducer(t, nil)
	mock.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)
	producer := NewProducerWith(mock, "tips")

	err := producer.PublishPaymentReceived(context.Background(), notification())

	assert.ErrorIs(t, err, sarama.ErrOutOfBrokers)
	require.NoError(t, producer.Close())
}
