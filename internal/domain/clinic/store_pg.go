package clinic

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DefaultDocumentID is the row and document key the clinic document lives
// under in the database stores.
const DefaultDocumentID = "clinic"

type querier interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Ping(ctx context.Context) error
}

// PGStore keeps the document as one row of clinic_document. The body column
// is json, not jsonb, so object key order survives a round trip.
type PGStore struct {
	db querier
	id string
}

func NewPGStore(db querier, id string) *PGStore {
	if id == "" {
		id = DefaultDocumentID
	}
	return &PGStore{db: db, id: id}
}

func (s *PGStore) Load(ctx context.Context) (*Document, error) {
	var body string
	err := s.db.QueryRow(ctx,
		`SELECT body::text FROM clinic_document WHERE id = $1`, s.id,
	).Scan(&body)
	if errors.Is(err, pgx.ErrNoRows) {
		return NewDocument(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("select clinic document: %w", err)
	}
	return Decode([]byte(body))
}

func (s *PGStore) Save(ctx context.Context, doc *Document) error {
	data, err := Encode(doc)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx, `
		INSERT INTO clinic_document (id, body, updated_at)
		VALUES ($1, $2::json, NOW())
		ON CONFLICT (id) DO UPDATE SET body = EXCLUDED.body, updated_at = NOW()`,
		s.id, string(data),
	)
	if err != nil {
		return fmt.Errorf("upsert clinic document: %w", err)
	}
	return nil
}

func (s *PGStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}
