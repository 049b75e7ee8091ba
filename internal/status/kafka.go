package status

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"
)

// DefaultTopic is the topic status messages are produced to.
const DefaultTopic = "permission-status"

// KafkaEmitter produces status messages keyed by permission id, so all
// changes of one aggregate land in one partition in commit order.
type KafkaEmitter struct {
	client *kgo.Client
	topic  string
}

// NewKafkaEmitter connects to the given brokers and ensures the topic exists.
func NewKafkaEmitter(ctx context.Context, brokers []string, topic string) (*KafkaEmitter, error) {
	if topic == "" {
		topic = DefaultTopic
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("connect kafka: %w", err)
	}
	if err := ensureTopic(ctx, client, topic); err != nil {
		client.Close()
		return nil, err
	}
	return &KafkaEmitter{client: client, topic: topic}, nil
}

func ensureTopic(ctx context.Context, client *kgo.Client, topic string) error {
	adm := kadm.NewClient(client)
	resp, err := adm.CreateTopics(ctx, 6, 1, nil, topic)
	if err != nil {
		return fmt.Errorf("create topic %s: %w", topic, err)
	}
	for _, result := range resp {
		if result.Err != nil && !errors.Is(result.Err, kerr.TopicAlreadyExists) {
			return fmt.Errorf("create topic %s: %w", result.Topic, result.Err)
		}
	}
	return nil
}

func (e *KafkaEmitter) Emit(ctx context.Context, msg Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal status message: %w", err)
	}
	record := &kgo.Record{
		Topic: e.topic,
		Key:   []byte(msg.PermissionID.String()),
		Value: payload,
	}
	if err := e.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce status message: %w", err)
	}
	return nil
}

func (e *KafkaEmitter) Close() {
	e.client.Close()
}
