// Package event publishes description lifecycle events to Kafka. Publishing
// is fire-and-forget: a broker outage never fails a merchant request.
package event

import (
	"context"
	"log/slog"
	"time"

	"github.com/IliasHad/shopify-remix-meetup-app/pkg/kafka"
)

const (
	TypeDescriptionGenerated = "description.generated"
	TypeDescriptionPublished = "description.published"

	aggregateType = "product"
	source        = "description-service"
)

// DescriptionGenerated is emitted after the AI produces copy for a product,
// including the canned fallback case.
type DescriptionGenerated struct {
	Shop        string    `json:"shop"`
	ProductID   string    `json:"product_id"`
	Fallback    bool      `json:"fallback"`
	GeneratedAt time.Time `json:"generated_at"`
}

// DescriptionPublished is emitted after a description lands on the product.
type DescriptionPublished struct {
	Shop           string    `json:"shop"`
	ProductID      string    `json:"product_id"`
	OnlineStoreURL string    `json:"online_store_url,omitempty"`
	PublishedAt    time.Time `json:"published_at"`
}

// Publisher is the kafka producer surface the event package depends on.
type Publisher interface {
	Publish(ctx context.Context, topic string, event *kafka.Event) error
}

// Producer emits description events to a single topic.
type Producer struct {
	publisher Publisher
	topic     string
	logger    *slog.Logger
}

func NewProducer(publisher Publisher, topic string, logger *slog.Logger) *Producer {
	return &Producer{publisher: publisher, topic: topic, logger: logger}
}

// DescriptionGenerated publishes a generated event. Errors are logged, not
// returned.
func (p *Producer) DescriptionGenerated(ctx context.Context, shop, productID string, fallback bool) {
	if p == nil || p.publisher == nil {
		return
	}
	event, err := kafka.NewEvent(TypeDescriptionGenerated, productID, aggregateType, source, DescriptionGenerated{
		Shop:        shop,
		ProductID:   productID,
		Fallback:    fallback,
		GeneratedAt: time.Now().UTC(),
	})
	if err != nil {
		p.logger.Error("build description.generated event", "error", err)
		return
	}
	if err := p.publisher.Publish(ctx, p.topic, event); err != nil {
		p.logger.Error("publish description.generated event", "error", err, "product_id", productID)
	}
}

// DescriptionPublished publishes a published event. Errors are logged, not
// returned.
func (p *Producer) DescriptionPublished(ctx context.Context, shop, productID, onlineStoreURL string) {
	if p == nil || p.publisher == nil {
		return
	}
	event, err := kafka.NewEvent(TypeDescriptionPublished, productID, aggregateType, source, DescriptionPublished{
		Shop:           shop,
		ProductID:      productID,
		OnlineStoreURL: onlineStoreURL,
		PublishedAt:    time.Now().UTC(),
	})
	if err != nil {
		p.logger.Error("build description.published event", "error", err)
		return
	}
	if err := p.publisher.Publish(ctx, p.topic, event); err != nil {
		p.logger.Error("publish description.published event", "error", err, "product_id", productID)
	}
}
