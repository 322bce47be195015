package neo4j

import (
	"context"
	"fmt"
	"time"

	neo4jv5 "github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// ClientParams configures the Neo4j driver.
type ClientParams struct {
	URI      string
	User     string
	Password string
	Database string

	Timeout     time.Duration
	MaxPoolSize int
}

// Client bundles a driver with the database it talks to.
type Client struct {
	Driver   neo4jv5.DriverWithContext
	Database string
}

// NewClient creates a driver and verifies connectivity before returning.
func NewClient(ctx context.Context, params ClientParams) (*Client, error) {
	if params.URI == "" {
		return nil, fmt.Errorf("neo4j: uri is empty")
	}
	if params.User == "" {
		params.User = "neo4j"
	}
	if params.Timeout <= 0 {
		params.Timeout = 10 * time.Second
	}
	if params.MaxPoolSize <= 0 {
		params.MaxPoolSize = 50
	}

	auth := neo4jv5.BasicAuth(params.User, params.Password, "")
	driver, err := neo4jv5.NewDriverWithContext(params.URI, auth, func(cfg *neo4jv5.Config) {
		cfg.MaxConnectionPoolSize = params.MaxPoolSize
		cfg.SocketConnectTimeout = params.Timeout
	})
	if err != nil {
		return nil, fmt.Errorf("neo4j: init driver: %w", err)
	}

	vctx, cancel := context.WithTimeout(ctx, params.Timeout)
	defer cancel()
	if err := driver.VerifyConnectivity(vctx); err != nil {
		_ = driver.Close(vctx)
		return nil, fmt.Errorf("neo4j: verify connectivity: %w", err)
	}

	return &Client{Driver: driver, Database: params.Database}, nil
}

func (c *Client) Close(ctx context.Context) error {
	if c == nil || c.Driver == nil {
		return nil
	}
	err := c.Driver.Close(ctx)
	c.Driver = nil
	return err
}

func (c *Client) session(ctx context.Context, mode neo4jv5.AccessMode) neo4jv5.SessionWithContext {
	return c.Driver.NewSession(ctx, neo4jv5.SessionConfig{
		AccessMode:   mode,
		DatabaseName: c.Database,
	})
}
