package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/sirupsen/logrus"

	"github.com/markjakearzadon/guardtip-gobackend/internal/models"
)

const connectAttempts = 5

type Producer struct {
	producer sarama.SyncProducer
	topic    string
}

// NewProducer connects a synchronous producer, retrying while the brokers
// come up.
func NewProducer(brokers []string, topic string) (*Producer, error) {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.RequiredAcks = sarama.WaitForAll

	var err error
	for i := 1; i <= connectAttempts; i++ {
		var producer sarama.SyncProducer
		producer, err = sarama.NewSyncProducer(brokers, config)
		if err == nil {
			logrus.Infof("Kafka producer initialized for topic %s", topic)
			return NewProducerWith(producer, topic), nil
		}
		logrus.Warnf("Waiting for Kafka... (%d/%d) Error: %v", i, connectAttempts, err)
		time.Sleep(2 * time.Second)
	}
	return nil, fmt.Errorf("failed to start Kafka producer after retries: %w", err)
}

func NewProducerWith(producer sarama.SyncProducer, topic string) *Producer {
	if topic == "" {
		topic = models.EventPaymentReceived
	}
	return &Producer{producer: producer, topic: topic}
}

// PublishPaymentReceived sends n keyed by wallet so a guard's events stay ordered.
func (p *Producer) PublishPaymentReceived(_ context.Context, n models.PaymentNotification) error {
	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", n.Event, err)
	}

	key := n.WalletID
	if key == "" {
		key = n.PaymentID
	}
	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(data),
	}
	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("failed to send %s Kafka message: %w", n.Event, err)
	}

	logrus.WithField("payment_id", n.PaymentID).Infof("Published %s event to partition %d at offset %d", n.Event, partition, offset)
	return nil
}

func (p *Producer) Close() error {
	return p.producer.Close()
}
