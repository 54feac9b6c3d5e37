package scenes

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dmitrijs2005/scenesync/internal/common"
	"github.com/dmitrijs2005/scenesync/internal/dbx"
	"github.com/dmitrijs2005/scenesync/internal/scene"
)

const uniqueViolation = "23505"

const sceneColumns = `id, name, description, published, owner_id, data, origin_tag, created_at, updated_at`

// PostgresRepository implements Repository over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanScene(row rowScanner) (*scene.Scene, error) {
	var (
		s    scene.Scene
		data []byte
	)
	if err := row.Scan(&s.ID, &s.Name, &s.Description, &s.Published, &s.OwnerID,
		&data, &s.OriginTag, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, &s.Data); err != nil {
		return nil, fmt.Errorf("decode scene %d data: %w", s.ID, err)
	}
	if s.Data.Elements == nil {
		s.Data.Elements = []scene.Element{}
	}
	if s.Data.AppState == nil {
		s.Data.AppState = scene.AppState{}
	}
	return &s, nil
}

// mapError translates driver errors into common sentinels.
func mapError(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return common.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return common.ErrDuplicateName
	}
	return fmt.Errorf("db error: %w", err)
}

func (r *PostgresRepository) Get(ctx context.Context, id int64) (*scene.Scene, error) {
	query := `SELECT ` + sceneColumns + ` FROM scenes WHERE id = $1`
	s, err := scanScene(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, mapError(err)
	}
	return s, nil
}

func (r *PostgresRepository) GetByName(ctx context.Context, name string) (*scene.Scene, error) {
	query := `SELECT ` + sceneColumns + ` FROM scenes WHERE name = $1`
	s, err := scanScene(r.db.QueryRowContext(ctx, query, name))
	if err != nil {
		return nil, mapError(err)
	}
	return s, nil
}

func (r *PostgresRepository) List(ctx context.Context, ownerID string) ([]*scene.Scene, error) {
	query := `SELECT id, name, description, published, owner_id, origin_tag, created_at, updated_at
		FROM scenes WHERE owner_id = $1 ORDER BY updated_at DESC, id`
	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to select scenes: %w", err)
	}
	defer rows.Close()

	var result []*scene.Scene
	for rows.Next() {
		var s scene.Scene
		if err := rows.Scan(&s.ID, &s.Name, &s.Description, &s.Published, &s.OwnerID,
			&s.OriginTag, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Insert creates a row. The database assigns id and timestamps.
func (r *PostgresRepository) Insert(ctx context.Context, s *scene.Scene) (*scene.Scene, error) {
	data, err := json.Marshal(s.Data.Sanitized())
	if err != nil {
		return nil, fmt.Errorf("encode scene data: %w", err)
	}
	query := `INSERT INTO scenes (name, description, published, owner_id, data, origin_tag)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + sceneColumns
	created, err := scanScene(r.db.QueryRowContext(ctx, query,
		s.Name, s.Description, s.Published, s.OwnerID, data, s.OriginTag))
	if err != nil {
		return nil, mapError(err)
	}
	return created, nil
}

// Update applies the non-nil fields of patch to the row with id owned by
// ownerID and returns the updated row.
func (r *PostgresRepository) Update(ctx context.Context, id int64, ownerID string, patch scene.ScenePatch) (*scene.Scene, error) {
	var (
		sets []string
		args []any
	)
	add := func(column string, v any) {
		args = append(args, v)
		sets = append(sets, column+" = $"+strconv.Itoa(len(args)))
	}

	if patch.Name != nil {
		add("name", *patch.Name)
	}
	if patch.Description != nil {
		add("description", *patch.Description)
	}
	if patch.Published != nil {
		add("published", *patch.Published)
	}
	if patch.Data != nil {
		data, err := json.Marshal(patch.Data.Sanitized())
		if err != nil {
			return nil, fmt.Errorf("encode scene data: %w", err)
		}
		add("data", data)
	}
	if patch.OriginTag != nil {
		add("origin_tag", *patch.OriginTag)
	}
	if patch.UpdatedAt != nil {
		add("updated_at", *patch.UpdatedAt)
	}

	if len(sets) == 0 {
		query := `SELECT ` + sceneColumns + ` FROM scenes WHERE id = $1 AND owner_id = $2`
		s, err := scanScene(r.db.QueryRowContext(ctx, query, id, ownerID))
		if err != nil {
			return nil, mapError(err)
		}
		return s, nil
	}

	args = append(args, id, ownerID)
	query := `UPDATE scenes SET ` + strings.Join(sets, ", ") +
		` WHERE id = $` + strconv.Itoa(len(args)-1) + ` AND owner_id = $` + strconv.Itoa(len(args)) +
		` RETURNING ` + sceneColumns

	s, err := scanScene(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, mapError(err)
	}
	return s, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id int64, ownerID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM scenes WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if err := dbx.ExpectOne(res); err != nil {
		if errors.Is(err, dbx.ErrNoRowsAffected) {
			return common.ErrNotFound
		}
		return err
	}
	return nil
}
