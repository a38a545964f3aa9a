package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	"fb_token_checker/types"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

const SubjectTokensVerified = "tokens.verified"

type Publisher interface {
	PublishBatchVerified(ctx context.Context, summary types.BatchSummary) error
	Close()
}

// natsConnection: подмножество *nats.Conn, которое нужно клиенту
type natsConnection interface {
	Publish(subj string, data []byte) error
	Close()
}

type natsClient struct {
	conn   natsConnection
	logger *zap.Logger
}

func NewNATSClient(url string, logger *zap.Logger) (Publisher, error) {
	conn, err := nats.Connect(url, nats.Name("fb_token_checker"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	logger.Info("connected to NATS", zap.String("url", url))
	return &natsClient{
		conn:   conn,
		logger: logger,
	}, nil
}

func (c *natsClient) PublishBatchVerified(ctx context.Context, summary types.BatchSummary) error {
	data, err := json.Marshal(summary)
	if err != nil {
		c.logger.Error("failed to marshal batch summary", zap.Error(err))
		return fmt.Errorf("failed to marshal batch summary: %w", err)
	}

	err = c.conn.Publish(SubjectTokensVerified, data)
	if err != nil {
		c.logger.Error("failed to publish batch summary", zap.Error(err), zap.String("batch_id", summary.BatchID))
		return fmt.Errorf("failed to publish batch summary: %w", err)
	}

	c.logger.Debug("batch summary published", zap.String("batch_id", summary.BatchID))
	return nil
}

func (c *natsClient) Close() {
	if c.conn != nil {
		c.conn.Close()
		c.logger.Info("NATS connection closed")
	}
}

type noopPublisher struct{}

// NewNoopPublisher используется, когда NATS_URL не задан
func NewNoopPublisher() Publisher {
	return noopPublisher{}
}

func (noopPublisher) PublishBatchVerified(ctx context.Context, summary types.BatchSummary) error {
	return nil
}

func (noopPublisher) Close() {}
