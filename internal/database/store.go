package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Baalavignesh/DiggerMan/internal/store"
)

var (
	_ store.Store             = (*DB)(nil)
	_ store.ConditionalSetter = (*DB)(nil)
	_ store.MaxUpserter       = (*DB)(nil)
)

// Get returns the value stored at key.
func (db *DB) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := db.QueryRowContext(ctx, db.rebind(`SELECT value FROM kv_entries WHERE entry_key = ?`), key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get %s: %w", key, err)
	}
	return value, true, nil
}

// Set stores value at key, replacing any previous value.
func (db *DB) Set(ctx context.Context, key, value string) error {
	query := `
		INSERT INTO kv_entries (entry_key, value)
		VALUES (?, ?)
		ON CONFLICT (entry_key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
	`
	if _, err := db.ExecContext(ctx, db.rebind(query), key, value); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}

// SetNX stores value only when key does not exist yet.
func (db *DB) SetNX(ctx context.Context, key, value string) (bool, error) {
	query := `
		INSERT INTO kv_entries (entry_key, value)
		VALUES (?, ?)
		ON CONFLICT (entry_key) DO NOTHING
	`
	res, err := db.ExecContext(ctx, db.rebind(query), key, value)
	if err != nil {
		return false, fmt.Errorf("failed to claim %s: %w", key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to claim %s: %w", key, err)
	}
	return n == 1, nil
}

// Delete removes key from both the scalar and the sorted-set tables.
func (db *DB) Delete(ctx context.Context, key string) error {
	if _, err := db.ExecContext(ctx, db.rebind(`DELETE FROM kv_entries WHERE entry_key = ?`), key); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	if _, err := db.ExecContext(ctx, db.rebind(`DELETE FROM zset_members WHERE set_key = ?`), key); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// RangeTop returns up to count members ordered by score, then member name.
func (db *DB) RangeTop(ctx context.Context, key string, count int64, dir store.Direction) ([]store.Member, error) {
	if count <= 0 {
		return []store.Member{}, nil
	}

	query := `SELECT member, score FROM zset_members WHERE set_key = ? ORDER BY score DESC, member DESC LIMIT ?`
	if dir == store.Ascending {
		query = `SELECT member, score FROM zset_members WHERE set_key = ? ORDER BY score ASC, member ASC LIMIT ?`
	}

	rows, err := db.QueryContext(ctx, db.rebind(query), key, count)
	if err != nil {
		return nil, fmt.Errorf("failed to range %s: %w", key, err)
	}
	defer rows.Close()

	members := make([]store.Member, 0, count)
	for rows.Next() {
		var m store.Member
		if err := rows.Scan(&m.Name, &m.Score); err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", key, err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to range %s: %w", key, err)
	}
	return members, nil
}

// RankAscending counts the members ordered before member.
func (db *DB) RankAscending(ctx context.Context, key, member string) (int64, bool, error) {
	score, ok, err := db.Score(ctx, key, member)
	if err != nil || !ok {
		return 0, false, err
	}

	query := `
		SELECT COUNT(*) FROM zset_members
		WHERE set_key = ? AND (score < ? OR (score = ? AND member < ?))
	`
	var index int64
	if err := db.QueryRowContext(ctx, db.rebind(query), key, score, score, member).Scan(&index); err != nil {
		return 0, false, fmt.Errorf("failed to get rank in %s: %w", key, err)
	}
	return index, true, nil
}

// Score returns the score of member.
func (db *DB) Score(ctx context.Context, key, member string) (float64, bool, error) {
	var score float64
	query := `SELECT score FROM zset_members WHERE set_key = ? AND member = ?`
	err := db.QueryRowContext(ctx, db.rebind(query), key, member).Scan(&score)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to get score in %s: %w", key, err)
	}
	return score, true, nil
}

// Cardinality returns the number of members in the set.
func (db *DB) Cardinality(ctx context.Context, key string) (int64, error) {
	var count int64
	err := db.QueryRowContext(ctx, db.rebind(`SELECT COUNT(*) FROM zset_members WHERE set_key = ?`), key).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get size of %s: %w", key, err)
	}
	return count, nil
}

// Upsert sets the score of member unconditionally.
func (db *DB) Upsert(ctx context.Context, key, member string, score float64) error {
	query := `
		INSERT INTO zset_members (set_key, member, score)
		VALUES (?, ?, ?)
		ON CONFLICT (set_key, member) DO UPDATE SET score = excluded.score, updated_at = CURRENT_TIMESTAMP
	`
	if _, err := db.ExecContext(ctx, db.rebind(query), key, member, score); err != nil {
		return fmt.Errorf("failed to upsert %s: %w", key, err)
	}
	return nil
}

// UpsertMax raises the score of member in a single statement and returns the
// stored score.
func (db *DB) UpsertMax(ctx context.Context, key, member string, score float64) (float64, error) {
	query := `
		INSERT INTO zset_members (set_key, member, score)
		VALUES (?, ?, ?)
		ON CONFLICT (set_key, member) DO UPDATE SET
			score = CASE WHEN excluded.score > zset_members.score THEN excluded.score ELSE zset_members.score END,
			updated_at = CURRENT_TIMESTAMP
	`
	if _, err := db.ExecContext(ctx, db.rebind(query), key, member, score); err != nil {
		return 0, fmt.Errorf("failed to ratchet %s: %w", key, err)
	}
	stored, _, err := db.Score(ctx, key, member)
	return stored, err
}
