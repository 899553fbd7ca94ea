// Package store implements the document storage gateway on Postgres (bun),
// SQLite (modernc) and process memory.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/civic-chat/agent/contract"
)

const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	Driver string `split_words:"true" default:"sqlite"`
	DSN    string `envconfig:"DSN"`
	Path   string `split_words:"true" default:"data/civic.db"`
}

// Gateway is a StorageGateway that owns a connection.
type Gateway interface {
	contractx.StorageGateway
	Close() error
}

// Open selects the backend named by cfg.Driver.
func Open(ctx context.Context, cfg Config) (Gateway, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case DriverMemory:
		return NewMemory(), nil
	case DriverPostgres:
		return OpenPostgres(ctx, cfg.DSN)
	case DriverSQLite, "":
		return OpenSQLite(ctx, cfg.Path)
	default:
		return nil, fmt.Errorf("%w: unknown storage driver %q", contractx.ErrValidation, cfg.Driver)
	}
}

func encode(container string, doc contractx.Document) (string, []byte, error) {
	if strings.TrimSpace(container) == "" {
		return "", nil, fmt.Errorf("%w: container is required", contractx.ErrValidation)
	}
	if doc == nil {
		return "", nil, fmt.Errorf("%w: document is required", contractx.ErrValidation)
	}
	id := strings.TrimSpace(doc.DocumentID())
	if id == "" {
		return "", nil, fmt.Errorf("%w: document id is required", contractx.ErrValidation)
	}
	body, err := json.Marshal(doc)
	if err != nil {
		return "", nil, fmt.Errorf("marshal %s/%s: %w", container, id, err)
	}
	return id, body, nil
}

func decode(container, id string, body []byte, out any) error {
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s/%s: %w", container, id, err)
	}
	return nil
}

func notFound(container, id string) error {
	return fmt.Errorf("%w: %s/%s", contractx.ErrNotFound, container, id)
}
