package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/twmb/franz-go/pkg/kgo"
)

// KafkaSink publishes ledger events to a Kafka topic for downstream
// indexers. Produces are asynchronous; delivery errors surface through the
// publisher's log, never through ledger calls.
type KafkaSink struct {
	client *kgo.Client
	topic  string
}

func NewKafkaSink(brokers []string, topic string) (*KafkaSink, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return &KafkaSink{client: client, topic: topic}, nil
}

func (s *KafkaSink) Publish(ctx context.Context, ev Event) error {
	value, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", ev.ID, err)
	}
	record := &kgo.Record{
		Topic: s.topic,
		// Key by campaign index so per-campaign ordering survives
		// partitioning.
		Key:   []byte(strconv.FormatUint(ev.Index, 10)),
		Value: value,
	}
	s.client.Produce(ctx, record, nil)
	return nil
}

// Close drains buffered produces, bounded by ctx, then releases the
// client. Anything still unsent when ctx expires is dropped.
func (s *KafkaSink) Close(ctx context.Context) {
	_ = s.client.Flush(ctx)
	s.client.Close()
}
