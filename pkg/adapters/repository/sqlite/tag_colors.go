package sqlite

import (
	"context"
	"database/sql"

	"github.com/wadjakorntonsri/shortlink-admin/pkg/core/colors"
)

// TagColorStore keeps the tag color table in the tag_colors table.
type TagColorStore struct {
	db *sql.DB
}

func (r *SQLiteRepository) TagColors() *TagColorStore {
	return &TagColorStore{db: r.db}
}

func (s *TagColorStore) Load() (map[string]string, error) {
	rows, err := s.db.QueryContext(context.Background(), `SELECT tag, color FROM tag_colors`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]string{}
	for rows.Next() {
		var tag, color string
		if err := rows.Scan(&tag, &color); err != nil {
			return nil, err
		}
		out[tag] = color
	}
	return out, rows.Err()
}

// Save replaces the stored table with c.
func (s *TagColorStore) Save(c map[string]string) error {
	ctx := context.Background()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM tag_colors`); err != nil {
		return err
	}
	for tag, color := range c {
		if _, err := tx.ExecContext(ctx, `INSERT INTO tag_colors (tag, color) VALUES (?, ?)`, tag, color); err != nil {
			return err
		}
	}
	return tx.Commit()
}

var _ colors.Storage = (*TagColorStore)(nil)
