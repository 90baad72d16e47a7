package neo4jdb

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/yungbote/curricula-backend/internal/platform/envutil"
	"github.com/yungbote/curricula-backend/internal/platform/logger"
)

// Client mirrors committed curriculum graphs into neo4j for inspection.
// Mirroring is best-effort; the relational snapshot stays authoritative.
type Client struct {
	Driver   neo4j.DriverWithContext
	Database string
	log      *logger.Logger
}

// NewFromEnv returns (nil, nil) when NEO4J_URI is unset: mirroring is optional.
func NewFromEnv(log *logger.Logger) (*Client, error) {
	if log == nil {
		return nil, fmt.Errorf("neo4jdb: logger required")
	}

	uri := strings.TrimSpace(os.Getenv("NEO4J_URI"))
	if uri == "" {
		return nil, nil
	}

	user := envutil.String("NEO4J_USER", "neo4j")
	password := strings.TrimSpace(os.Getenv("NEO4J_PASSWORD"))
	database := strings.TrimSpace(os.Getenv("NEO4J_DATABASE"))
	timeout := time.Duration(envutil.Int("NEO4J_TIMEOUT_SECONDS", 10)) * time.Second
	maxPool := envutil.Int("NEO4J_MAX_POOL_SIZE", 25)

	auth := neo4j.BasicAuth(user, password, "")
	driver, err := neo4j.NewDriverWithContext(uri, auth, func(cfg *neo4j.Config) {
		cfg.MaxConnectionPoolSize = maxPool
		cfg.SocketConnectTimeout = timeout
	})
	if err != nil {
		return nil, fmt.Errorf("neo4jdb: init driver: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("neo4jdb: verify connectivity: %w", err)
	}

	return &Client{
		Driver:   driver,
		Database: database,
		log:      log.With("client", "Neo4jDB"),
	}, nil
}

type MirrorNode struct {
	ID     string
	Label  string
	Status string
}

type MirrorEdge struct {
	SourceID string
	TargetID string
}

// MirrorGraph replaces the stored projection of one curriculum session.
// Session scoping keeps concurrent users from clobbering each other.
func (c *Client) MirrorGraph(ctx context.Context, sessionID string, nodes []MirrorNode, edges []MirrorEdge) error {
	if c == nil || c.Driver == nil {
		return nil
	}
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return fmt.Errorf("neo4jdb: session id required")
	}

	sess := c.Driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: c.Database})
	defer func() { _ = sess.Close(ctx) }()

	_, err := sess.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		if _, err := tx.Run(ctx,
			`MATCH (n:CurriculumNode {session_id: $sid}) DETACH DELETE n`,
			map[string]any{"sid": sessionID},
		); err != nil {
			return nil, err
		}

		for _, n := range nodes {
			if _, err := tx.Run(ctx,
				`CREATE (:CurriculumNode {session_id: $sid, node_id: $id, label: $label, status: $status})`,
				map[string]any{"sid": sessionID, "id": n.ID, "label": n.Label, "status": n.Status},
			); err != nil {
				return nil, err
			}
		}

		for _, e := range edges {
			if _, err := tx.Run(ctx,
				`MATCH (a:CurriculumNode {session_id: $sid, node_id: $src}),
				       (b:CurriculumNode {session_id: $sid, node_id: $dst})
				 CREATE (a)-[:PREREQUISITE_OF]->(b)`,
				map[string]any{"sid": sessionID, "src": e.SourceID, "dst": e.TargetID},
			); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("neo4jdb: mirror graph: %w", err)
	}

	c.log.Debug("mirrored curriculum graph", "session_id", sessionID, "nodes", len(nodes), "edges", len(edges))
	return nil
}

func (c *Client) Close(ctx context.Context) error {
	if c == nil || c.Driver == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	err := c.Driver.Close(ctx)
	c.Driver = nil
	return err
}
