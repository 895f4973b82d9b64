// Package backend builds the transaction store and event publisher selected
// by configuration.
package backend

import (
	"context"
	"errors"
	"fmt"

	"finansije/internal/amqp"
	"finansije/internal/config"
	applog "finansije/internal/log"
	"finansije/internal/store"
	"finansije/internal/store/elastic"
	"finansije/internal/store/memory"
	"finansije/internal/storage"
)

type Type string

const (
	Memory        Type = config.BackendMemory
	SQLite        Type = config.BackendSQLite
	Elasticsearch Type = config.BackendElasticsearch
)

func (t Type) Valid() bool {
	switch t {
	case Memory, SQLite, Elasticsearch:
		return true
	default:
		return false
	}
}

// Config selects and configures the backend.
type Config struct {
	Type Type

	SeedFile     string
	SQLiteDBPath string

	ElasticsearchURLs  []string
	ElasticsearchIndex string

	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

func FromAppConfig(c *config.Config) (Config, error) {
	if c == nil {
		return Config{}, errors.New("app config is nil")
	}
	t := Type(c.DataBackend)
	if !t.Valid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", c.DataBackend)
	}
	return Config{
		Type:               t,
		SeedFile:           c.SeedFile,
		SQLiteDBPath:       c.SQLiteDBPath,
		ElasticsearchURLs:  c.ElasticsearchURLs,
		ElasticsearchIndex: c.ElasticsearchIndex,
		AMQPURL:            c.AMQPURL,
		AMQPExchange:       c.AMQPExchange,
		AMQPQueue:          c.AMQPQueue,
	}, nil
}

// Result is the built backend. Cleanup releases everything it opened.
type Result struct {
	Store     store.TransactionStore
	Publisher *amqp.Client
	Cleanup   func() error
}

// Build opens the configured store. The AMQP publisher is optional: a
// broker that cannot be reached is logged and the backend runs without
// events.
func Build(ctx context.Context, cfg Config, logger *applog.Logger) (*Result, error) {
	logger = logger.WithComponent(applog.ComponentBackend)

	st, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	logger.Info("Initialized transaction store", applog.FieldBackend, string(cfg.Type))

	res := &Result{Store: st}
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without events", applog.FieldError, err)
		} else {
			logger.Info("Initialized AMQP client", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
			res.Publisher = client
		}
	}

	res.Cleanup = func() error {
		var errs []error
		if res.Publisher != nil {
			errs = append(errs, res.Publisher.Close())
		}
		errs = append(errs, st.Close())
		return errors.Join(errs...)
	}
	return res, nil
}

func openStore(ctx context.Context, cfg Config) (store.TransactionStore, error) {
	switch cfg.Type {
	case SQLite:
		repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		return repo, nil
	case Elasticsearch:
		es, err := elastic.New(ctx, cfg.ElasticsearchURLs, cfg.ElasticsearchIndex)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Elasticsearch store: %w", err)
		}
		return es, nil
	case Memory:
		if cfg.SeedFile == "" {
			return memory.New(), nil
		}
		m, err := memory.NewFromFile(cfg.SeedFile)
		if err != nil {
			return nil, fmt.Errorf("failed to seed memory store: %w", err)
		}
		return m, nil
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", cfg.Type)
	}
}
