package state

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
)

type PostgresConfig struct {
	DSN string `envconfig:"DSN" split_words:"true" required:"true"`
}

type workflowRow struct {
	bun.BaseModel `bun:"table:secure_workflows,alias:w"`

	ID             string    `bun:"id,pk"`
	IdempotencyKey string    `bun:"idempotency_key,notnull"`
	Status         string    `bun:"status,notnull"`
	Payload        []byte    `bun:"payload,type:jsonb,notnull"`
	UpdatedAt      time.Time `bun:"updated_at,notnull"`
}

// PostgresStore persists workflow instances in Postgres via bun. One row per
// instance; the full workflow travels as a JSONB payload with the id, status,
// and idempotency key broken out for lookups.
type PostgresStore struct {
	db *bun.DB
}

var _ Store = (*PostgresStore)(nil)

func NewPostgresStore(cfg PostgresConfig) (*PostgresStore, error) {
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, errors.New("postgres dsn is required")
	}
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	return &PostgresStore{db: db}, nil
}

// Init creates the secure_workflows table and the idempotency-key index.
func (s *PostgresStore) Init(ctx context.Context) error {
	if _, err := s.db.NewCreateTable().
		Model((*workflowRow)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("create secure_workflows table: %w", err)
	}
	if _, err := s.db.NewCreateIndex().
		Model((*workflowRow)(nil)).
		Index("secure_workflows_idempotency_key_idx").
		Column("idempotency_key").
		Unique().
		IfNotExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("create idempotency key index: %w", err)
	}
	return nil
}

func (s *PostgresStore) Load(ctx context.Context, id string) (*Workflow, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ErrInvalidWorkflowID
	}

	var row workflowRow
	err := s.db.NewSelect().Model(&row).Where("id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: id=%s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("load workflow %s: %w", id, err)
	}
	return decodeRow(&row)
}

func (s *PostgresStore) FindByIdempotencyKey(ctx context.Context, key string) (*Workflow, error) {
	if strings.TrimSpace(key) == "" {
		return nil, errors.New("idempotency key is empty")
	}

	var row workflowRow
	err := s.db.NewSelect().Model(&row).Where("idempotency_key = ?", key).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find workflow by idempotency key: %w", err)
	}
	return decodeRow(&row)
}

func (s *PostgresStore) Save(ctx context.Context, w *Workflow) error {
	if w == nil {
		return ErrNilWorkflow
	}
	if err := w.Validate(); err != nil {
		return err
	}
	if w.UpdatedAt.IsZero() {
		w.UpdatedAt = time.Now().UTC()
	}

	payload, err := json.Marshal(w)
	if err != nil {
		return fmt.Errorf("marshal workflow %s: %w", w.ID, err)
	}

	row := &workflowRow{
		ID:             w.ID,
		IdempotencyKey: w.IdempotencyKey,
		Status:         string(w.Status),
		Payload:        payload,
		UpdatedAt:      w.UpdatedAt,
	}

	_, err = s.db.NewInsert().
		Model(row).
		On("CONFLICT (id) DO UPDATE").
		Set("status = EXCLUDED.status").
		Set("payload = EXCLUDED.payload").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("save workflow %s: %w", w.ID, err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func decodeRow(row *workflowRow) (*Workflow, error) {
	var w Workflow
	if err := json.Unmarshal(row.Payload, &w); err != nil {
		return nil, fmt.Errorf("unmarshal workflow %s: %w", row.ID, err)
	}
	if err := w.Validate(); err != nil {
		return nil, fmt.Errorf("invalid workflow loaded from store: %w", err)
	}
	return &w, nil
}
