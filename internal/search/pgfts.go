package search

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// PgFTS implements Searcher using PostgreSQL full-text search as a fallback
// when Meilisearch is unavailable.
type PgFTS struct {
	db *sql.DB
}

// NewPgFTS creates a PostgreSQL FTS searcher.
func NewPgFTS(db *sql.DB) *PgFTS {
	return &PgFTS{db: db}
}

// Healthy always returns true; if Postgres is down, the whole app is down.
func (p *PgFTS) Healthy() bool {
	return true
}

// Search matches the tags fts column with plainto_tsquery and ranks with
// ts_rank, highlighting the location name for the snippet.
func (p *PgFTS) Search(q Query) ([]Result, int, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, 0, nil
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	where := "fts @@ plainto_tsquery('simple', $1)"
	args := []any{q.Text}
	if q.MissionType != "" {
		args = append(args, q.MissionType)
		where += fmt.Sprintf(" AND mission_type = $%d", len(args))
	}
	if !q.IncludeArchived {
		where += " AND archived = FALSE"
	}

	countQuery := `SELECT COUNT(*) FROM tags WHERE ` + where
	var total int
	if err := p.db.QueryRowContext(context.Background(), countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pgfts count: %w", err)
	}

	args = append(args, limit, offset)
	query := fmt.Sprintf(`
		SELECT id, location_name, mission_type, COALESCE(floor, ''), archived,
			ts_headline('simple', location_name, plainto_tsquery('simple', $1), 'MaxFragments=1,MaxWords=30') AS snippet
		FROM tags
		WHERE %s
		ORDER BY ts_rank(fts, plainto_tsquery('simple', $1)) DESC, updated_at DESC
		LIMIT $%d OFFSET $%d`, where, len(args)-1, len(args))

	rows, err := p.db.QueryContext(context.Background(), query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("pgfts search: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		if err := rows.Scan(&r.ID, &r.LocationName, &r.MissionType, &r.Floor, &r.Archived, &r.Snippet); err != nil {
			return nil, 0, fmt.Errorf("pgfts scan: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("pgfts iterate: %w", err)
	}
	return results, total, nil
}

// LoadAllRecords reads every tag for reindexing into Meilisearch.
func (p *PgFTS) LoadAllRecords(ctx context.Context) ([]TagRecord, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, location_name, mission_type, mission_subtype, COALESCE(floor, ''), archived
		FROM tags ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("pgfts load tags: %w", err)
	}
	defer rows.Close()

	var records []TagRecord
	for rows.Next() {
		var r TagRecord
		if err := rows.Scan(&r.ID, &r.LocationName, &r.MissionType, &r.MissionSubtype, &r.Floor, &r.Archived); err != nil {
			return nil, fmt.Errorf("pgfts scan tag: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pgfts iterate tags: %w", err)
	}
	return records, nil
}
