package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/stvreumi/CAMPUSbackend-sub000/internal/page"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// ---- users ----

func (s *PostgresStore) CreateUser(ctx context.Context, user User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, email, display_name, password_hash, role)
		VALUES ($1, LOWER($2), $3, $4, $5)
	`, user.ID, user.Email, user.DisplayName, user.PasswordHash, user.Role)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (User, error) {
	var user User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, email, display_name, password_hash, role, created_at
		FROM users WHERE email = LOWER($1)
	`, email).Scan(&user.ID, &user.Email, &user.DisplayName, &user.PasswordHash, &user.Role, &user.CreatedAt)
	if err != nil {
		return User{}, err
	}
	return user, nil
}

func (s *PostgresStore) GetUserByID(ctx context.Context, userID string) (User, error) {
	var user User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, email, display_name, password_hash, role, created_at
		FROM users WHERE id = $1
	`, userID).Scan(&user.ID, &user.Email, &user.DisplayName, &user.PasswordHash, &user.Role, &user.CreatedAt)
	if err != nil {
		return User{}, err
	}
	return user, nil
}

// ---- tags ----

const tagColumns = `id, location_name, mission_type, mission_subtype, mission_target,
	latitude, longitude, geohash, floor, archived, view_count, created_by, created_at, updated_at`

func scanTag(row interface{ Scan(...any) error }) (Tag, error) {
	var tag Tag
	err := row.Scan(
		&tag.ID, &tag.LocationName, &tag.MissionType, &tag.MissionSubtype, &tag.MissionTarget,
		&tag.Latitude, &tag.Longitude, &tag.Geohash, &tag.Floor, &tag.Archived,
		&tag.ViewCount, &tag.CreatedBy, &tag.CreatedAt, &tag.UpdatedAt,
	)
	return tag, err
}

func (s *PostgresStore) InsertTag(ctx context.Context, tag Tag) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tags (id, location_name, mission_type, mission_subtype, mission_target,
			latitude, longitude, geohash, floor, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, tag.ID, tag.LocationName, tag.MissionType, tag.MissionSubtype, tag.MissionTarget,
		tag.Latitude, tag.Longitude, tag.Geohash, tag.Floor, tag.CreatedBy)
	if err != nil {
		return fmt.Errorf("insert tag: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetTag(ctx context.Context, tagID string) (Tag, error) {
	return scanTag(s.db.QueryRowContext(ctx,
		`SELECT `+tagColumns+` FROM tags WHERE id = $1`, tagID))
}

// UpdateTag rewrites the mutable descriptive fields and bumps updated_at.
// Archival and view counting have their own narrower writes.
func (s *PostgresStore) UpdateTag(ctx context.Context, tag Tag) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE tags
		SET location_name=$2, mission_type=$3, mission_subtype=$4, mission_target=$5,
			latitude=$6, longitude=$7, geohash=$8, floor=$9, updated_at=NOW()
		WHERE id=$1
	`, tag.ID, tag.LocationName, tag.MissionType, tag.MissionSubtype, tag.MissionTarget,
		tag.Latitude, tag.Longitude, tag.Geohash, tag.Floor)
	if err != nil {
		return fmt.Errorf("update tag: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (s *PostgresStore) DeleteTag(ctx context.Context, tagID string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM tags WHERE id=$1`, tagID)
	if err != nil {
		return fmt.Errorf("delete tag: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ArchiveTag flips archived to true. The WHERE clause makes the transition
// one-way and idempotent: a tag already archived reports transitioned=false
// so callers never publish a duplicate archive event.
func (s *PostgresStore) ArchiveTag(ctx context.Context, tagID string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE tags SET archived=TRUE, updated_at=NOW()
		WHERE id=$1 AND archived=FALSE
	`, tagID)
	if err != nil {
		return false, fmt.Errorf("archive tag: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("archive tag rows: %w", err)
	}
	return affected > 0, nil
}

func (s *PostgresStore) IncrementViewCount(ctx context.Context, tagID string) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `
		UPDATE tags SET view_count = view_count + 1 WHERE id=$1
		RETURNING view_count
	`, tagID).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

// ListTags fetches one page of tags ordered by last update, newest first.
// The (updated_at, id) tuple comparison resumes strictly after the cursor
// position; a cursor whose tag has since been deleted still orders correctly.
func (s *PostgresStore) ListTags(ctx context.Context, filter TagFilter, limit int, after *page.Token) ([]Tag, error) {
	var (
		conditions []string
		args       []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if !filter.IncludeArchived {
		conditions = append(conditions, "archived = FALSE")
	}
	if filter.MissionType != "" {
		conditions = append(conditions, "mission_type = "+arg(filter.MissionType))
	}
	if filter.CreatedBy != "" {
		conditions = append(conditions, "created_by = "+arg(filter.CreatedBy))
	}
	if filter.GeohashPrefix != "" {
		conditions = append(conditions, "geohash LIKE "+arg(filter.GeohashPrefix+"%"))
	}
	if after != nil {
		conditions = append(conditions, fmt.Sprintf("(updated_at, id) < (%s, %s)", arg(after.At), arg(after.ID)))
	}

	query := `SELECT ` + tagColumns + ` FROM tags`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY updated_at DESC, id DESC LIMIT " + arg(limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	defer rows.Close()

	items := make([]Tag, 0, limit)
	for rows.Next() {
		tag, err := scanTag(rows)
		if err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		items = append(items, tag)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tags: %w", err)
	}
	return items, nil
}

// ListTagsByID enumerates every tag, archived included, in ascending id order.
// Used for stable full enumeration (admin listing, search reindex).
func (s *PostgresStore) ListTagsByID(ctx context.Context, limit int, afterID string) ([]Tag, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+tagColumns+` FROM tags
		WHERE id > $1
		ORDER BY id ASC
		LIMIT $2
	`, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("list tags by id: %w", err)
	}
	defer rows.Close()

	items := make([]Tag, 0, limit)
	for rows.Next() {
		tag, err := scanTag(rows)
		if err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		items = append(items, tag)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tags: %w", err)
	}
	return items, nil
}

// ---- statuses ----

const statusColumns = `id, tag_id, status_name, description, upvote_count, created_by, created_at`

func scanStatus(row interface{ Scan(...any) error }) (Status, error) {
	var (
		status Status
		count  sql.NullInt64
	)
	err := row.Scan(&status.ID, &status.TagID, &status.Name, &status.Description,
		&count, &status.CreatedBy, &status.CreatedAt)
	if err != nil {
		return Status{}, err
	}
	if count.Valid {
		status.UpvoteCount = &count.Int64
	}
	return status, nil
}

// InsertStatus appends a history entry and touches the parent tag so
// update-ordered listings surface it.
func (s *PostgresStore) InsertStatus(ctx context.Context, status Status) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin insert status: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var count sql.NullInt64
	if status.UpvoteCount != nil {
		count = sql.NullInt64{Int64: *status.UpvoteCount, Valid: true}
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO statuses (id, tag_id, status_name, description, upvote_count, created_by)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, status.ID, status.TagID, status.Name, status.Description, count, status.CreatedBy); err != nil {
		return fmt.Errorf("insert status: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE tags SET updated_at=NOW() WHERE id=$1`, status.TagID); err != nil {
		return fmt.Errorf("touch tag: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit insert status: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetStatus(ctx context.Context, statusID string) (Status, error) {
	return scanStatus(s.db.QueryRowContext(ctx,
		`SELECT `+statusColumns+` FROM statuses WHERE id = $1`, statusID))
}

// LatestStatus returns the newest history entry for a tag.
func (s *PostgresStore) LatestStatus(ctx context.Context, tagID string) (Status, error) {
	return scanStatus(s.db.QueryRowContext(ctx, `
		SELECT `+statusColumns+` FROM statuses
		WHERE tag_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`, tagID))
}

// ListStatuses pages through a tag's history, newest first, with the same
// keyset scheme as ListTags.
func (s *PostgresStore) ListStatuses(ctx context.Context, tagID string, limit int, after *page.Token) ([]Status, error) {
	query := `SELECT ` + statusColumns + ` FROM statuses WHERE tag_id = $1`
	args := []any{tagID}
	if after != nil {
		args = append(args, after.At, after.ID)
		query += fmt.Sprintf(" AND (created_at, id) < ($%d, $%d)", len(args)-1, len(args))
	}
	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d", len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list statuses: %w", err)
	}
	defer rows.Close()

	items := make([]Status, 0, limit)
	for rows.Next() {
		status, err := scanStatus(rows)
		if err != nil {
			return nil, fmt.Errorf("scan status: %w", err)
		}
		items = append(items, status)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate statuses: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) HasVoted(ctx context.Context, statusID, userID string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM votes WHERE status_id=$1 AND user_id=$2)`,
		statusID, userID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check vote: %w", err)
	}
	return exists, nil
}

// ---- settings ----

func (s *PostgresStore) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key=$1`, key).Scan(&value)
	if err != nil {
		return "", err
	}
	return value, nil
}

func (s *PostgresStore) PutSetting(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO settings (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value=EXCLUDED.value, updated_at=NOW()
	`, key, value)
	if err != nil {
		return fmt.Errorf("put setting: %w", err)
	}
	return nil
}
