package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"story-shorts/internal/infra"
	"story-shorts/internal/types"
)

// PostgresStore keeps records in the content_records table.
type PostgresStore struct {
	sql infra.SQLExecutor
	now func() time.Time
}

func NewPostgresStore(sql infra.SQLExecutor) *PostgresStore {
	return &PostgresStore{sql: sql, now: time.Now}
}

// EnsureSchema creates the table and index when missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	for _, q := range []string{qEnsureSchema, qEnsureIndex} {
		if _, err := s.sql.Exec(ctx, q); err != nil {
			return fmt.Errorf("%w: ensure schema: %w", ErrStore, err)
		}
	}
	return nil
}

func (s *PostgresStore) Create(ctx context.Context, rec *types.ContentRecord) error {
	rec.UpdatedAt = s.now()
	cols, err := encodeColumns(rec)
	if err != nil {
		return err
	}
	_, err = s.sql.Exec(ctx, qInsertRecord,
		rec.ID, rec.Title, rec.Niche, rec.Excerpt, rec.FullStory, rec.AudioURL, rec.VideoURL,
		cols.images, cols.tags, string(rec.Status), rec.Progress, rec.Error, rec.ErrorCode,
		cols.providers, cols.publishResults, rec.CreatedAt, rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("%w: insert %s: %w", ErrStore, rec.ID, err)
	}
	return nil
}

func (s *PostgresStore) Update(ctx context.Context, rec *types.ContentRecord) error {
	rec.UpdatedAt = s.now()
	cols, err := encodeColumns(rec)
	if err != nil {
		return err
	}
	tag, err := s.sql.Exec(ctx, qUpdateRecord,
		rec.ID, rec.Title, rec.Niche, rec.Excerpt, rec.FullStory, rec.AudioURL, rec.VideoURL,
		cols.images, cols.tags, string(rec.Status), rec.Progress, rec.Error, rec.ErrorCode,
		cols.providers, cols.publishResults, rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("%w: update %s: %w", ErrStore, rec.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context) ([]*types.ContentRecord, error) {
	rows, err := s.sql.Query(ctx, qSelectRecords)
	if err != nil {
		return nil, fmt.Errorf("%w: list: %w", ErrStore, err)
	}
	defer rows.Close()

	var out []*types.ContentRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan: %w", ErrStore, err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list: %w", ErrStore, err)
	}
	return out, nil
}

func (s *PostgresStore) GetByID(ctx context.Context, id string) (*types.ContentRecord, error) {
	rec, err := scanRecord(s.sql.QueryRow(ctx, qSelectRecordByID, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get %s: %w", ErrStore, id, err)
	}
	return rec, nil
}

// UpdateStatus only moves a record forward; the allowed source statuses are
// part of the update so concurrent writers cannot move it back.
func (s *PostgresStore) UpdateStatus(ctx context.Context, id string, status types.Status) error {
	if !status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, status)
	}
	sources := types.SourcesOf(status)
	from := make([]string, len(sources))
	for i, st := range sources {
		from[i] = string(st)
	}
	tag, err := s.sql.Exec(ctx, qUpdateStatus, id, string(status), s.now(), from)
	if err != nil {
		return fmt.Errorf("%w: update status %s: %w", ErrStore, id, err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var current string
	err = s.sql.QueryRow(ctx, qRecordStatus, id).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("%w: update status %s: %w", ErrStore, id, err)
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current, status)
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	tag, err := s.sql.Exec(ctx, qDeleteRecord, id)
	if err != nil {
		return fmt.Errorf("%w: delete %s: %w", ErrStore, id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

type jsonColumns struct {
	images, tags, providers, publishResults []byte
}

func encodeColumns(rec *types.ContentRecord) (jsonColumns, error) {
	var cols jsonColumns
	var err error
	images := rec.Images
	if images == nil {
		images = []types.Image{}
	}
	tags := rec.Tags
	if tags == nil {
		tags = []string{}
	}
	providers := rec.Providers
	if providers == nil {
		providers = map[string]string{}
	}
	if cols.images, err = json.Marshal(images); err != nil {
		return cols, fmt.Errorf("%w: encode images: %w", ErrStore, err)
	}
	if cols.tags, err = json.Marshal(tags); err != nil {
		return cols, fmt.Errorf("%w: encode tags: %w", ErrStore, err)
	}
	if cols.providers, err = json.Marshal(providers); err != nil {
		return cols, fmt.Errorf("%w: encode providers: %w", ErrStore, err)
	}
	if rec.PublishResults != nil {
		if cols.publishResults, err = json.Marshal(rec.PublishResults); err != nil {
			return cols, fmt.Errorf("%w: encode publish results: %w", ErrStore, err)
		}
	}
	return cols, nil
}

func scanRecord(row pgx.Row) (*types.ContentRecord, error) {
	var (
		rec                                     types.ContentRecord
		status                                  string
		images, tags, providers, publishResults []byte
	)
	err := row.Scan(&rec.ID, &rec.Title, &rec.Niche, &rec.Excerpt, &rec.FullStory, &rec.AudioURL, &rec.VideoURL,
		&images, &tags, &status, &rec.Progress, &rec.Error, &rec.ErrorCode, &providers, &publishResults,
		&rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return nil, err
	}
	rec.Status = types.Status(status)
	if len(images) > 0 {
		if err := json.Unmarshal(images, &rec.Images); err != nil {
			return nil, fmt.Errorf("decode images: %w", err)
		}
	}
	if len(tags) > 0 {
		if err := json.Unmarshal(tags, &rec.Tags); err != nil {
			return nil, fmt.Errorf("decode tags: %w", err)
		}
	}
	if len(providers) > 0 && string(providers) != "{}" {
		if err := json.Unmarshal(providers, &rec.Providers); err != nil {
			return nil, fmt.Errorf("decode providers: %w", err)
		}
	}
	if len(publishResults) > 0 {
		if err := json.Unmarshal(publishResults, &rec.PublishResults); err != nil {
			return nil, fmt.Errorf("decode publish results: %w", err)
		}
	}
	return &rec, nil
}

var _ Store = (*PostgresStore)(nil)
