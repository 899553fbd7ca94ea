package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	contractx "github.com/tanpawarit/civic-chat/agent/contract"
)

type documentRow struct {
	bun.BaseModel `bun:"table:documents"`

	Container    string         `bun:"container,pk"`
	ID           string         `bun:"id,pk"`
	PartitionKey string         `bun:"partition_key,notnull"`
	Body         map[string]any `bun:"body,type:jsonb,notnull"`
	UpdatedAt    time.Time      `bun:"updated_at,notnull"`
}

// Postgres stores documents in a jsonb column through bun.
type Postgres struct {
	db *bun.DB
}

func OpenPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("%w: postgres dsn is required", contractx.ErrValidation)
	}
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}
	if _, err := db.NewCreateTable().Model((*documentRow)(nil)).IfNotExists().Exec(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("create documents table: %w", err)
	}
	if _, err := db.NewCreateIndex().Model((*documentRow)(nil)).
		Index("idx_documents_partition").IfNotExists().
		Column("container", "partition_key").Exec(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("create documents index: %w", err)
	}
	return &Postgres{db: db}, nil
}

func (p *Postgres) Put(ctx context.Context, container string, partitionKey string, doc contractx.Document) (string, error) {
	id, body, err := encode(container, doc)
	if err != nil {
		return "", err
	}
	var fields map[string]any
	if err := json.Unmarshal(body, &fields); err != nil {
		return "", fmt.Errorf("%w: %s/%s is not a json object", contractx.ErrValidation, container, id)
	}

	row := &documentRow{
		Container:    container,
		ID:           id,
		PartitionKey: partitionKey,
		Body:         fields,
		UpdatedAt:    time.Now().UTC(),
	}
	_, err = p.db.NewInsert().Model(row).
		On("CONFLICT (container, id) DO UPDATE").
		Set("partition_key = EXCLUDED.partition_key").
		Set("body = EXCLUDED.body").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return "", fmt.Errorf("upsert %s/%s: %w", container, id, err)
	}
	return id, nil
}

func (p *Postgres) Get(ctx context.Context, container string, id string, out any) error {
	row := new(documentRow)
	err := p.db.NewSelect().Model(row).
		Where("container = ?", container).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return notFound(container, id)
	}
	if err != nil {
		return fmt.Errorf("select %s/%s: %w", container, id, err)
	}

	body, err := json.Marshal(row.Body)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", container, id, err)
	}
	return decode(container, id, body, out)
}

func (p *Postgres) Close() error { return p.db.Close() }
