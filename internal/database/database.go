// Package database manages the MongoDB and MySQL connections used by GoPurge.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/dbsmedya/gopurge/internal/config"
	"github.com/dbsmedya/gopurge/internal/store"
	"github.com/dbsmedya/gopurge/internal/store/mongostore"
	"github.com/dbsmedya/gopurge/internal/store/mysqlstore"
)

// Manager handles the connection for whichever backend a job targets.
type Manager struct {
	Mongo  *mongo.Client
	MySQL  *sql.DB
	config *config.Config
}

// NewManager creates a new database manager from configuration.
func NewManager(cfg *config.Config) *Manager {
	return &Manager{
		config: cfg,
	}
}

// Connect establishes the connection for backend.
func (m *Manager) Connect(ctx context.Context, backend string) error {
	if m.config == nil {
		return fmt.Errorf("config is nil")
	}
	switch backend {
	case config.BackendMongoDB:
		return m.ConnectMongo(ctx)
	case config.BackendMySQL:
		return m.ConnectMySQL(ctx)
	default:
		return fmt.Errorf("unsupported backend %q", backend)
	}
}

// ConnectMongo connects to MongoDB and verifies the primary is reachable.
func (m *Manager) ConnectMongo(ctx context.Context) error {
	if m.Mongo != nil {
		return nil
	}

	opts := MongoClientOptions(&m.config.MongoDB)
	err := withRetry(ctx, func() error {
		client, err := mongo.Connect(ctx, opts)
		if err != nil {
			return err
		}
		if err := client.Ping(ctx, readpref.Primary()); err != nil {
			_ = client.Disconnect(context.Background())
			return err
		}
		m.Mongo = client
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	return nil
}

// ConnectMySQL opens the MySQL pool and verifies it with a ping.
func (m *Manager) ConnectMySQL(ctx context.Context) error {
	if m.MySQL != nil {
		return nil
	}

	cfg := &m.config.MySQL
	err := withRetry(ctx, func() error {
		db, err := openMySQL(cfg)
		if err != nil {
			return err
		}
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return err
		}
		m.MySQL = db
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to connect to mysql: %w", err)
	}
	return nil
}

// Store returns the store.Store for backend. The matching Connect call
// must have succeeded first.
func (m *Manager) Store(backend string) (store.Store, error) {
	switch backend {
	case config.BackendMongoDB:
		if m.Mongo == nil {
			return nil, fmt.Errorf("mongodb is not connected")
		}
		return mongostore.New(m.Mongo.Database(m.config.MongoDB.Database))
	case config.BackendMySQL:
		if m.MySQL == nil {
			return nil, fmt.Errorf("mysql is not connected")
		}
		return mysqlstore.New(m.MySQL, m.config.MySQL.Database)
	default:
		return nil, fmt.Errorf("unsupported backend %q", backend)
	}
}

// withRetry calls connect up to three times with exponential backoff.
func withRetry(ctx context.Context, connect func() error) error {
	var err error

	maxRetries := 3
	backoff := time.Second

	for i := 0; i < maxRetries; i++ {
		if err = connect(); err == nil {
			return nil
		}

		if i < maxRetries-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
				backoff *= 2
			}
		}
	}

	return fmt.Errorf("failed after %d retries: %w", maxRetries, err)
}

// MongoClientOptions builds driver options from configuration.
func MongoClientOptions(cfg *config.MongoConfig) *options.ClientOptions {
	opts := options.Client().
		ApplyURI(cfg.URI).
		SetAppName("gopurge")

	if cfg.TimeoutMS > 0 {
		timeout := time.Duration(cfg.TimeoutMS) * time.Millisecond
		opts.SetConnectTimeout(timeout)
		opts.SetServerSelectionTimeout(timeout)
	}
	return opts
}

func openMySQL(cfg *config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("mysql", BuildDSN(cfg))
	if err != nil {
		return nil, err
	}

	if cfg.MaxConnections > 0 {
		db.SetMaxOpenConns(cfg.MaxConnections)
	}
	if cfg.MaxIdleConnections > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConnections)
	}
	db.SetConnMaxLifetime(10 * time.Minute)

	return db, nil
}

// BuildDSN constructs a MySQL DSN from configuration.
func BuildDSN(cfg *config.DatabaseConfig) string {
	// Format: user:password@tcp(host:port)/database?params
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
	)

	if cfg.Database != "" {
		dsn += cfg.Database
	}

	params := "?parseTime=true"
	switch cfg.TLS {
	case "disable":
		params += "&tls=false"
	case "required":
		params += "&tls=true"
	case "preferred", "":
		params += "&tls=preferred"
	}

	return dsn + params
}

// Close closes all open connections.
func (m *Manager) Close() error {
	var errs []error

	if m.Mongo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := m.Mongo.Disconnect(ctx); err != nil {
			errs = append(errs, fmt.Errorf("mongodb close: %w", err))
		}
		m.Mongo = nil
	}

	if m.MySQL != nil {
		if err := m.MySQL.Close(); err != nil {
			errs = append(errs, fmt.Errorf("mysql close: %w", err))
		}
		m.MySQL = nil
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors closing connections: %v", errs)
	}
	return nil
}

// Ping verifies open connections are alive.
func (m *Manager) Ping(ctx context.Context) error {
	if m.Mongo != nil {
		if err := m.Mongo.Ping(ctx, readpref.Primary()); err != nil {
			return fmt.Errorf("mongodb ping failed: %w", err)
		}
	}

	if m.MySQL != nil {
		if err := m.MySQL.PingContext(ctx); err != nil {
			return fmt.Errorf("mysql ping failed: %w", err)
		}
	}

	return nil
}
