package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/bobby-s-dev/weather-refresh/internal/models"
	"go.uber.org/zap"

	_ "modernc.org/sqlite"
)

// SQLiteStore persists fixes with the pure Go modernc.org/sqlite driver so
// the last known position survives a restart.
type SQLiteStore struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewSQLite(path string, logger *zap.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		logger.Warn("Could not set WAL mode", zap.Error(err))
	}

	schema := `CREATE TABLE IF NOT EXISTS fixes (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        latitude REAL NOT NULL,
        longitude REAL NOT NULL,
        accuracy REAL NOT NULL,
        source TEXT NOT NULL,
        recorded_at TEXT NOT NULL
    );`

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteStore{db: db, logger: logger}, nil
}

func (s *SQLiteStore) SaveFix(ctx context.Context, fix models.Fix) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO fixes(latitude, longitude, accuracy, source, recorded_at) VALUES(?,?,?,?,?)`,
		fix.Latitude, fix.Longitude, fix.Accuracy, fix.Source, fix.RecordedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return err
	}

	s.logger.Debug("Location fix stored",
		zap.Float64("latitude", fix.Latitude),
		zap.Float64("longitude", fix.Longitude),
		zap.String("source", fix.Source))
	return nil
}

func (s *SQLiteStore) LastFix(ctx context.Context) (models.Fix, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT latitude, longitude, accuracy, source, recorded_at FROM fixes ORDER BY id DESC LIMIT 1`)

	var fix models.Fix
	var ts string
	if err := row.Scan(&fix.Latitude, &fix.Longitude, &fix.Accuracy, &fix.Source, &ts); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Fix{}, ErrNoFix
		}
		return models.Fix{}, err
	}

	if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
		fix.RecordedAt = t
	}
	return fix, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
