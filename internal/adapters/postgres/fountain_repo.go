package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/samirrijal/tapmap/internal/core/domain"
	"github.com/samirrijal/tapmap/internal/core/ports"
)

const findFountainsSQL = `
	SELECT id, name, latitude, longitude, COALESCE(geohash, ''),
	       COALESCE(status, ''), COALESCE(water_quality, ''),
	       COALESCE(accessibility, ''), COALESCE(type, '')
	FROM fountains
	WHERE latitude BETWEEN $1 AND $2
	  AND longitude BETWEEN $3 AND $4
	  AND status = ANY($5)
	  AND ($6::text[] IS NULL OR water_quality = ANY($6))
	  AND ($7::text[] IS NULL OR accessibility = ANY($7))
	  AND ($8::text[] IS NULL OR type = ANY($8))
	ORDER BY latitude, longitude, id
	LIMIT NULLIF($9::int, 0)
`

const getFountainSQL = `
	SELECT id, name, COALESCE(description, ''), latitude, longitude, COALESCE(geohash, ''),
	       COALESCE(status, ''), COALESCE(water_quality, ''),
	       COALESCE(accessibility, ''), COALESCE(type, ''), COALESCE(tags, '{}')
	FROM fountains WHERE id = $1
`

const upsertFountainSQL = `
	INSERT INTO fountains (id, name, description, latitude, longitude, geohash,
	                       status, water_quality, accessibility, type, tags, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, now())
	ON CONFLICT (id) DO UPDATE
	SET name = EXCLUDED.name, description = EXCLUDED.description,
	    latitude = EXCLUDED.latitude, longitude = EXCLUDED.longitude,
	    geohash = EXCLUDED.geohash, status = EXCLUDED.status,
	    water_quality = EXCLUDED.water_quality, accessibility = EXCLUDED.accessibility,
	    type = EXCLUDED.type, tags = EXCLUDED.tags, updated_at = now()
`

// FountainRepo implements ports.FountainRepository with pgx.
type FountainRepo struct {
	db Querier
}

// NewFountainRepo creates a new FountainRepo.
func NewFountainRepo(db Querier) *FountainRepo {
	return &FountainRepo{db: db}
}

var _ ports.FountainRepository = (*FountainRepo)(nil)

// Find returns fountains inside q.BBox ordered by latitude, longitude and id.
func (r *FountainRepo) Find(ctx context.Context, q ports.FountainQuery) ([]domain.FountainRecord, error) {
	rows, err := r.db.Query(ctx, findFountainsSQL,
		q.BBox.South, q.BBox.North, q.BBox.West, q.BBox.East,
		q.Filters.EffectiveStatuses(),
		nullable(q.Filters.WaterQualities),
		nullable(q.Filters.Accessibilities),
		nullable(q.Filters.Types),
		q.Limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query fountains: %w", err)
	}
	defer rows.Close()

	var out []domain.FountainRecord
	for rows.Next() {
		var f domain.FountainRecord
		if err := rows.Scan(
			&f.ID, &f.Name, &f.Location.Lat, &f.Location.Lon, &f.Geohash,
			&f.Status, &f.WaterQuality, &f.Accessibility, &f.Type,
		); err != nil {
			return nil, fmt.Errorf("scan fountain: %w", err)
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read fountains: %w", err)
	}
	return out, nil
}

// GetByID returns a fountain or domain.ErrNotFound.
func (r *FountainRepo) GetByID(ctx context.Context, id string) (*domain.FountainRecord, error) {
	var f domain.FountainRecord
	err := r.db.QueryRow(ctx, getFountainSQL, id).Scan(
		&f.ID, &f.Name, &f.Description, &f.Location.Lat, &f.Location.Lon, &f.Geohash,
		&f.Status, &f.WaterQuality, &f.Accessibility, &f.Type, &f.Tags,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get fountain %s: %w", id, err)
	}
	return &f, nil
}

// UpsertBatch inserts or updates many fountains using pgx.Batch.
func (r *FountainRepo) UpsertBatch(ctx context.Context, records []domain.FountainRecord) error {
	if len(records) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, f := range records {
		batch.Queue(upsertFountainSQL,
			f.ID, f.Name, f.Description, f.Location.Lat, f.Location.Lon, f.Geohash,
			f.Status, f.WaterQuality, f.Accessibility, f.Type, nullable(f.Tags),
		)
	}
	br := r.db.SendBatch(ctx, batch)
	defer br.Close()
	for range records {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("batch exec: %w", err)
		}
	}
	return nil
}

// nullable maps an empty filter to SQL NULL.
func nullable(v []string) []string {
	if len(v) == 0 {
		return nil
	}
	return v
}
