package catalog

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gocql/gocql"
	"github.com/sharedcode/storeengine"
	"github.com/sharedcode/storeengine/block"
)

// CassandraConfig configures the cluster connection and keyspace/table layout.
type CassandraConfig struct {
	ClusterHosts      []string
	Keyspace          string
	Consistency       gocql.Consistency
	ConnectionTimeout time.Duration
	Authenticator     gocql.Authenticator
}

// CassandraCatalog is a Cassandra-backed Catalog: one session, one keyspace, plain
// parameterized CQL, every query failing fast with "connection is closed" guidance once Close
// has released the session.
type CassandraCatalog struct {
	mu      sync.Mutex
	session *gocql.Session
	cfg     CassandraConfig
}

// NewCassandraCatalog opens a session against cfg.ClusterHosts/Keyspace.
func NewCassandraCatalog(cfg CassandraConfig) (*CassandraCatalog, error) {
	cluster := gocql.NewCluster(cfg.ClusterHosts...)
	cluster.Keyspace = cfg.Keyspace
	if cfg.Consistency > gocql.Any {
		cluster.Consistency = cfg.Consistency
	}
	if cfg.ConnectionTimeout > 0 {
		cluster.Timeout = cfg.ConnectionTimeout
	}
	if cfg.Authenticator != nil {
		cluster.Authenticator = cfg.Authenticator
	}
	session, err := cluster.CreateSession()
	if err != nil {
		return nil, storeengine.Error{Code: storeengine.IOError, Err: err, UserData: cfg.Keyspace}
	}
	return &CassandraCatalog{session: session, cfg: cfg}, nil
}

// Close releases the underlying Cassandra session.
func (c *CassandraCatalog) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session != nil {
		c.session.Close()
		c.session = nil
	}
}

func (c *CassandraCatalog) MetadataRead(ctx context.Context, name string) (string, error) {
	if c.session == nil {
		return "", fmt.Errorf("cassandra connection is closed, call NewCassandraCatalog to open it")
	}
	qry := fmt.Sprintf("SELECT config FROM %s.table_config WHERE name = ?;", c.cfg.Keyspace)
	var cfg string
	if err := c.session.Query(qry, name).WithContext(ctx).Scan(&cfg); err != nil {
		if err == gocql.ErrNotFound {
			return "", storeengine.Error{Code: storeengine.NotFound, Err: err, UserData: name}
		}
		return "", storeengine.Error{Code: storeengine.IOError, Err: err, UserData: name}
	}
	return cfg, nil
}

func (c *CassandraCatalog) MetaCheckpointAddr(ctx context.Context, name, checkpoint string) (block.Addr, error) {
	if c.session == nil {
		return block.ADDR_INVALID, fmt.Errorf("cassandra connection is closed, call NewCassandraCatalog to open it")
	}
	qry := fmt.Sprintf("SELECT root_addr FROM %s.checkpoints WHERE name = ? AND checkpoint = ?;", c.cfg.Keyspace)
	var addr uint32
	if err := c.session.Query(qry, name, checkpoint).WithContext(ctx).Scan(&addr); err != nil {
		if err == gocql.ErrNotFound {
			return block.ADDR_INVALID, storeengine.Error{Code: storeengine.NotFound, Err: err, UserData: checkpoint}
		}
		return block.ADDR_INVALID, storeengine.Error{Code: storeengine.IOError, Err: err, UserData: checkpoint}
	}
	return block.Addr(addr), nil
}
