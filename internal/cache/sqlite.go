package cache

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/gisquick/tilecache/internal/tile"
)

// SQLite is the mbtiles-style backend of spec §4.3's "sqlite3" cache: one
// database file, a flat (key, data, mtime) table keyed by the tile's cache
// key alone, grounded on
// original_source's lib/cache_sqlite.c schema (CREATE TABLE tiles ...) and
// the mbtilego/LaPingvino-recuerdo database/sql + go-sqlite3 usage pattern.
type SQLite struct {
	Path        string
	UseSentinel bool
	TileSX      int
	TileSY      int
	log         *zap.SugaredLogger

	mu       sync.Mutex
	db       *sql.DB
	readOnly bool
}

func NewSQLite(log *zap.SugaredLogger, path string, tileSX, tileSY int) *SQLite {
	return &SQLite{
		Path:        path,
		UseSentinel: true,
		TileSX:      tileSX,
		TileSY:      tileSY,
		log:         log,
	}
}

func (s *SQLite) ConfigurationCheck() error {
	db, err := sql.Open("sqlite3", s.Path)
	if err != nil {
		return fmt.Errorf("opening sqlite cache %s: %w", s.Path, err)
	}
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS tiles (
			key TEXT PRIMARY KEY,
			data BLOB,
			mtime INTEGER
		)`); err != nil {
		db.Close()
		return fmt.Errorf("creating tiles table: %w", err)
	}
	s.db = db
	return nil
}

func (s *SQLite) ChildInit(ctx context.Context) error {
	if s.db != nil {
		return nil
	}
	return s.ConfigurationCheck()
}

func (s *SQLite) Exists(ctx context.Context, t *tile.Tile) (bool, error) {
	var n int
	row := s.db.QueryRowContext(ctx, `SELECT 1 FROM tiles WHERE key = ?`, t.CacheKey())
	err := row.Scan(&n)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *SQLite) Get(ctx context.Context, t *tile.Tile) (bool, error) {
	var raw []byte
	var mtime int64
	row := s.db.QueryRowContext(ctx, `SELECT data, mtime FROM tiles WHERE key = ?`, t.CacheKey())
	if err := row.Scan(&raw, &mtime); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, err
	}
	data, err := decodeFromStore(raw, s.TileSX, s.TileSY)
	if err != nil {
		return false, fmt.Errorf("expanding sentinel: %w", err)
	}
	t.EncodedData = data
	t.MTime = time.Unix(mtime, 0)
	return true, nil
}

func (s *SQLite) Set(ctx context.Context, t *tile.Tile) error {
	if s.readOnly {
		return nil
	}
	data, err := encodeForStore(t, s.TileSX, s.TileSY, s.UseSentinel)
	if err != nil {
		return err
	}
	if data == nil {
		return nil
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO tiles (key, data, mtime) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET data = excluded.data, mtime = excluded.mtime`,
		t.CacheKey(), data, time.Now().Unix())
	return err
}

func (s *SQLite) MultiSet(ctx context.Context, tiles []*tile.Tile) error {
	if s.readOnly {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO tiles (key, data, mtime) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET data = excluded.data, mtime = excluded.mtime`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()
	now := time.Now().Unix()
	for _, t := range tiles {
		data, err := encodeForStore(t, s.TileSX, s.TileSY, s.UseSentinel)
		if err != nil {
			tx.Rollback()
			return err
		}
		if data == nil {
			continue
		}
		if _, err := stmt.ExecContext(ctx, t.CacheKey(), data, now); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLite) Delete(ctx context.Context, t *tile.Tile) error {
	if s.readOnly {
		return nil
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM tiles WHERE key = ?`, t.CacheKey())
	return err
}

func (s *SQLite) SetReadOnly(ro bool) {
	s.readOnly = ro
}

func (s *SQLite) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
