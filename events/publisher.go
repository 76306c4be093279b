package events

import (
	"encoding/json"
	"log"
	"time"

	"volna/types"

	"github.com/IBM/sarama"
)

// Publisher pushes classified items from fresh discovery batches to Kafka
// for downstream consumers. Fire-and-forget: delivery errors are logged,
// never surfaced to the request path. A nil *Publisher is a no-op.
type Publisher struct {
	producer sarama.AsyncProducer
	topic    string
}

// NewPublisher connects an async producer to the given brokers.
func NewPublisher(brokers []string, topic string) (*Publisher, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Version = sarama.V3_6_0_0
	saramaConfig.Producer.RequiredAcks = sarama.WaitForLocal
	saramaConfig.Producer.Compression = sarama.CompressionSnappy
	saramaConfig.Producer.Return.Successes = false
	saramaConfig.Producer.Return.Errors = true

	producer, err := sarama.NewAsyncProducer(brokers, saramaConfig)
	if err != nil {
		return nil, err
	}

	p := &Publisher{producer: producer, topic: topic}
	go func() {
		for err := range producer.Errors() {
			log.Printf("Kafka publish error: %v", err)
		}
	}()
	return p, nil
}

// DiscoveredEvent is the wire payload for one fresh batch.
type DiscoveredEvent struct {
	SourceKey types.SourceKey        `json:"source_key"`
	FetchedAt time.Time              `json:"fetched_at"`
	Items     []types.DiscoveredItem `json:"items"`
}

// PublishBatch queues one batch event. Safe on a nil receiver and with an
// empty batch.
func (p *Publisher) PublishBatch(key types.SourceKey, items []types.DiscoveredItem) {
	if p == nil || len(items) == 0 {
		return
	}

	payload, err := json.Marshal(DiscoveredEvent{
		SourceKey: key,
		FetchedAt: time.Now().UTC(),
		Items:     items,
	})
	if err != nil {
		log.Printf("Kafka: marshal failed for %s: %v", key, err)
		return
	}

	p.producer.Input() <- &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(payload),
	}
}

// Close drains and shuts down the producer.
func (p *Publisher) Close() error {
	if p == nil {
		return nil
	}
	return p.producer.Close()
}
