package pubsub

import (
	"context"
	"errors"
	"fmt"
	"strings"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/northwest-community/marketplace-backend/pkg/config"
	"github.com/northwest-community/marketplace-backend/pkg/logger"
)

// Client wraps the Pub/Sub v2 client for the marketplace event stream.
type Client struct {
	client    *pubsub.Client
	projectID string
	cfg       config.PubSubConfig
}

var (
	errProjectIDRequired = errors.New("pubsub project id is required")
	errTopicRequired     = errors.New("pubsub events topic is required")
)

// NewClient creates a Pub/Sub v2 client and verifies the events topic exists.
func NewClient(ctx context.Context, cfg config.PubSubConfig, logg *logger.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.ProjectID) == "" {
		return nil, errProjectIDRequired
	}
	if strings.TrimSpace(cfg.EventsTopic) == "" {
		return nil, errTopicRequired
	}

	psClient, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	c := &Client{
		client:    psClient,
		projectID: cfg.ProjectID,
		cfg:       cfg,
	}

	if err := c.ensureTopicExists(ctx, cfg.EventsTopic); err != nil {
		_ = psClient.Close()
		return nil, err
	}

	if logg != nil {
		logg.Info(logg.WithField(ctx, "topic", cfg.EventsTopic), "pubsub client initialized")
	}

	return c, nil
}

func (c *Client) ensureTopicExists(ctx context.Context, topic string) error {
	name := c.topicName(topic)
	_, err := c.client.TopicAdminClient.GetTopic(ctx, &pubsubpb.GetTopicRequest{Topic: name})
	if err == nil {
		return nil
	}
	if status.Code(err) == codes.NotFound {
		return fmt.Errorf("pubsub topic %s does not exist", name)
	}
	return fmt.Errorf("checking pubsub topic %s: %w", name, err)
}

func (c *Client) topicName(topic string) string {
	return fmt.Sprintf("projects/%s/topics/%s", c.projectID, topic)
}

// EventsPublisher returns the publisher for the configured events topic.
func (c *Client) EventsPublisher() *pubsub.Publisher {
	return c.client.Publisher(c.cfg.EventsTopic)
}

// Publisher returns a publisher for an arbitrary topic id.
func (c *Client) Publisher(topic string) *pubsub.Publisher {
	if strings.TrimSpace(topic) == "" {
		return nil
	}
	return c.client.Publisher(topic)
}

// Ping re-checks the events topic, for readiness probes.
func (c *Client) Ping(ctx context.Context) error {
	return c.ensureTopicExists(ctx, c.cfg.EventsTopic)
}

func (c *Client) Close() error {
	return c.client.Close()
}
