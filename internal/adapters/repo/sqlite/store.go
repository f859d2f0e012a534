// Package sqlite provides a SQLite-backed session store.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bnema/ambient-narrator/internal/adapters/repo/sqlite/migrations"
	"github.com/bnema/ambient-narrator/internal/domain"
	"github.com/bnema/ambient-narrator/internal/ports"
	_ "modernc.org/sqlite"
)

// Store persists the awareness subset of each conversation in SQLite.
type Store struct {
	sqlDB *sql.DB
}

var (
	_ ports.SessionRepository = (*Store)(nil)
	_ ports.SessionCatalog    = (*Store)(nil)
)

func toMillis(value time.Time) int64 {
	if value.IsZero() {
		return 0
	}
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	if value == 0 {
		return time.Time{}
	}
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite session store and applies embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	if err := os.MkdirAll(filepath.Dir(cleanPath), 0o700); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}

	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(context.Background(), sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Save inserts or replaces the row for the conversation.
func (s *Store) Save(ctx context.Context, awareness domain.PersistedAwareness) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	conversationID := strings.TrimSpace(awareness.ConversationID)
	if conversationID == "" {
		return fmt.Errorf("conversation id is required")
	}
	updatedAt := awareness.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}

	var openCases, vitalsCurrent, vitalsMax, fortuneDrawnAt sql.NullInt64
	var fortuneText sql.NullString
	if awareness.OpenCases != nil {
		openCases = sql.NullInt64{Int64: int64(*awareness.OpenCases), Valid: true}
	}
	if awareness.Vitals != nil {
		vitalsCurrent = sql.NullInt64{Int64: int64(awareness.Vitals.Current), Valid: true}
		vitalsMax = sql.NullInt64{Int64: int64(awareness.Vitals.Max), Valid: true}
	}
	if awareness.PendingFortune != nil {
		fortuneText = sql.NullString{String: awareness.PendingFortune.Text, Valid: true}
		fortuneDrawnAt = sql.NullInt64{Int64: toMillis(awareness.PendingFortune.DrawnAt), Valid: true}
	}

	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO narrator_sessions (
		   conversation_id,
		   last_interaction,
		   last_period,
		   location,
		   open_cases,
		   vitals_current,
		   vitals_max,
		   fortune_text,
		   fortune_drawn_at,
		   updated_at
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (conversation_id) DO UPDATE SET
		   last_interaction = excluded.last_interaction,
		   last_period = excluded.last_period,
		   location = excluded.location,
		   open_cases = excluded.open_cases,
		   vitals_current = excluded.vitals_current,
		   vitals_max = excluded.vitals_max,
		   fortune_text = excluded.fortune_text,
		   fortune_drawn_at = excluded.fortune_drawn_at,
		   updated_at = excluded.updated_at`,
		conversationID,
		toMillis(awareness.LastInteraction),
		string(awareness.LastPeriod),
		awareness.Location,
		openCases,
		vitalsCurrent,
		vitalsMax,
		fortuneText,
		fortuneDrawnAt,
		toMillis(updatedAt),
	)
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

const selectSessionColumns = `SELECT conversation_id, last_interaction, last_period, location, open_cases,
	       vitals_current, vitals_max, fortune_text, fortune_drawn_at, updated_at
	  FROM narrator_sessions`

// Load returns one conversation's persisted subset.
func (s *Store) Load(ctx context.Context, conversationID string) (domain.PersistedAwareness, error) {
	if err := ctx.Err(); err != nil {
		return domain.PersistedAwareness{}, err
	}
	if s == nil || s.sqlDB == nil {
		return domain.PersistedAwareness{}, fmt.Errorf("storage is not configured")
	}

	row := s.sqlDB.QueryRowContext(ctx, selectSessionColumns+` WHERE conversation_id = ?`, strings.TrimSpace(conversationID))
	awareness, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.PersistedAwareness{}, domain.ErrSessionNotFound
	}
	if err != nil {
		return domain.PersistedAwareness{}, fmt.Errorf("load session: %w", err)
	}
	return awareness, nil
}

// List returns every stored session, most recently updated first.
func (s *Store) List(ctx context.Context) ([]domain.PersistedAwareness, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	rows, err := s.sqlDB.QueryContext(ctx, selectSessionColumns+` ORDER BY updated_at DESC, conversation_id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []domain.PersistedAwareness
	for rows.Next() {
		awareness, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, awareness)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (domain.PersistedAwareness, error) {
	var (
		awareness       domain.PersistedAwareness
		lastInteraction int64
		lastPeriod      string
		updatedAt       int64
		openCases       sql.NullInt64
		vitalsCurrent   sql.NullInt64
		vitalsMax       sql.NullInt64
		fortuneText     sql.NullString
		fortuneDrawnAt  sql.NullInt64
	)
	if err := row.Scan(
		&awareness.ConversationID,
		&lastInteraction,
		&lastPeriod,
		&awareness.Location,
		&openCases,
		&vitalsCurrent,
		&vitalsMax,
		&fortuneText,
		&fortuneDrawnAt,
		&updatedAt,
	); err != nil {
		return domain.PersistedAwareness{}, err
	}

	awareness.LastInteraction = fromMillis(lastInteraction)
	awareness.LastPeriod = domain.Period(lastPeriod)
	awareness.UpdatedAt = fromMillis(updatedAt)
	if openCases.Valid {
		cases := int(openCases.Int64)
		awareness.OpenCases = &cases
	}
	if vitalsCurrent.Valid && vitalsMax.Valid {
		awareness.Vitals = &domain.VitalsSnapshot{Current: int(vitalsCurrent.Int64), Max: int(vitalsMax.Int64)}
	}
	if fortuneText.Valid && fortuneText.String != "" {
		awareness.PendingFortune = &domain.Fortune{Text: fortuneText.String, DrawnAt: fromMillis(fortuneDrawnAt.Int64)}
	}
	return awareness, nil
}
