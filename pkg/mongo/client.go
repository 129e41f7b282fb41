package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/meltedmeethas/storefront-backend/pkg/config"
	"github.com/meltedmeethas/storefront-backend/pkg/logger"
)

// ErrNotInitialized is returned when a nil client is used.
var ErrNotInitialized = errors.New("mongo client not initialized")

// Client owns the driver connection and the catalog database handle.
type Client struct {
	client   *mongo.Client
	database *mongo.Database
}

// New connects to the catalog database and verifies connectivity with a ping.
func New(ctx context.Context, cfg config.MongoConfig, logg *logger.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.URI) == "" {
		return nil, errors.New("mongo uri is required")
	}
	if strings.TrimSpace(cfg.Database) == "" {
		return nil, errors.New("mongo database is required")
	}
	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	opts := options.Client().
		ApplyURI(cfg.URI).
		SetConnectTimeout(timeout).
		SetServerSelectionTimeout(timeout)

	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	conn, err := mongo.Connect(connectCtx, opts)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := conn.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = conn.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	if logg != nil {
		logg.Info(logg.WithField(ctx, "database", cfg.Database), "mongo client initialized")
	}

	return &Client{client: conn, database: conn.Database(cfg.Database)}, nil
}

// FromDatabase wraps an existing database handle, used by tests.
func FromDatabase(db *mongo.Database) *Client {
	if db == nil {
		return &Client{}
	}
	return &Client{client: db.Client(), database: db}
}

// Database returns the catalog database.
func (c *Client) Database() *mongo.Database {
	if c == nil {
		return nil
	}
	return c.database
}

// Ping checks the primary is reachable.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.client == nil {
		return ErrNotInitialized
	}
	return c.client.Ping(ctx, readpref.Primary())
}

// Close disconnects the driver.
func (c *Client) Close(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Disconnect(ctx)
}
