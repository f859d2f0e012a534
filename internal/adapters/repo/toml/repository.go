package toml

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bnema/ambient-narrator/internal/domain"
	"github.com/bnema/ambient-narrator/internal/ports"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
)

const (
	// SessionsPathKey points at the sessions file inside the narrator config.
	SessionsPathKey    = "sessions.path"
	sessionsFileMode   = 0o600
	sessionsDirMode    = 0o700
	sessionsConfigDir  = ".narrator"
	sessionsConfigFile = "sessions.toml"
	tempFilePattern    = ".sessions-*.toml.tmp"
)

// Repository keeps the persisted awareness subset of every conversation in a
// single TOML file.
type Repository struct {
	sessionsPath string
	mu           *sync.RWMutex
}

var (
	lockRegistryMu sync.Mutex
	pathLockMap    = map[string]*sync.RWMutex{}
)

var (
	_ ports.SessionRepository = (*Repository)(nil)
	_ ports.SessionCatalog    = (*Repository)(nil)
)

func NewRepository(cfg *viper.Viper) (*Repository, error) {
	if cfg == nil {
		cfg = viper.New()
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home directory: %w", err)
	}
	cfg.SetDefault(SessionsPathKey, filepath.Join(homeDir, sessionsConfigDir, sessionsConfigFile))

	sessionsPath := cfg.GetString(SessionsPathKey)
	if strings.TrimSpace(sessionsPath) == "" {
		return nil, errors.New("sessions path is empty")
	}
	sessionsPath, err = normalizeSessionsPath(sessionsPath)
	if err != nil {
		return nil, err
	}

	return &Repository{sessionsPath: sessionsPath, mu: lockForPath(sessionsPath)}, nil
}

func (r *Repository) Path() string {
	return r.sessionsPath
}

func (r *Repository) Save(ctx context.Context, awareness domain.PersistedAwareness) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(awareness.ConversationID) == "" {
		return errors.New("save session: conversation id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	file, err := r.readSchema()
	if err != nil {
		return err
	}

	encoded := toSchema(awareness)
	updated := false
	for i := range file.Sessions {
		if file.Sessions[i].ConversationID == encoded.ConversationID {
			file.Sessions[i] = encoded
			updated = true
			break
		}
	}
	if !updated {
		file.Sessions = append(file.Sessions, encoded)
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	return r.writeSchema(file)
}

func (r *Repository) Load(ctx context.Context, conversationID string) (domain.PersistedAwareness, error) {
	if err := ctx.Err(); err != nil {
		return domain.PersistedAwareness{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	file, err := r.readSchema()
	if err != nil {
		return domain.PersistedAwareness{}, err
	}

	for _, entry := range file.Sessions {
		if entry.ConversationID == conversationID {
			return fromSchema(entry), nil
		}
	}

	return domain.PersistedAwareness{}, domain.ErrSessionNotFound
}

// List returns every stored session, most recently updated first.
func (r *Repository) List(ctx context.Context) ([]domain.PersistedAwareness, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	file, err := r.readSchema()
	if err != nil {
		return nil, err
	}

	sessions := make([]domain.PersistedAwareness, 0, len(file.Sessions))
	for _, entry := range file.Sessions {
		sessions = append(sessions, fromSchema(entry))
	}
	sort.SliceStable(sessions, func(i, j int) bool {
		return sessions[i].UpdatedAt.After(sessions[j].UpdatedAt)
	})

	return sessions, nil
}

func (r *Repository) readSchema() (fileSchema, error) {
	data, err := os.ReadFile(r.sessionsPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fileSchema{Version: currentSchemaVersion}, nil
		}
		return fileSchema{}, fmt.Errorf("read sessions file: %w", err)
	}

	var file fileSchema
	if err := toml.Unmarshal(data, &file); err != nil {
		return fileSchema{}, fmt.Errorf("decode sessions file: %w", err)
	}
	if err := file.validateVersion(); err != nil {
		return fileSchema{}, err
	}
	file.applyDefaults()

	return file, nil
}

func normalizeSessionsPath(path string) (string, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve sessions path: %w", err)
	}

	return filepath.Clean(absPath), nil
}

func lockForPath(path string) *sync.RWMutex {
	lockRegistryMu.Lock()
	defer lockRegistryMu.Unlock()

	if mu, ok := pathLockMap[path]; ok {
		return mu
	}

	mu := &sync.RWMutex{}
	pathLockMap[path] = mu
	return mu
}

func (r *Repository) writeSchema(file fileSchema) error {
	file.applyDefaults()

	if err := os.MkdirAll(filepath.Dir(r.sessionsPath), sessionsDirMode); err != nil {
		return fmt.Errorf("create sessions directory: %w", err)
	}

	data, err := toml.Marshal(file)
	if err != nil {
		return fmt.Errorf("encode sessions file: %w", err)
	}

	tempFile, err := os.CreateTemp(filepath.Dir(r.sessionsPath), tempFilePattern)
	if err != nil {
		return fmt.Errorf("create temp sessions file: %w", err)
	}

	tempName := tempFile.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = os.Remove(tempName)
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("write temp sessions file: %w", err)
	}
	if err := tempFile.Chmod(sessionsFileMode); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("chmod temp sessions file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("close temp sessions file: %w", err)
	}

	if err := os.Rename(tempName, r.sessionsPath); err != nil {
		return fmt.Errorf("replace sessions file: %w", err)
	}
	cleanup = false

	return nil
}

func toSchema(awareness domain.PersistedAwareness) sessionSchema {
	entry := sessionSchema{
		ConversationID:  awareness.ConversationID,
		LastInteraction: formatTime(awareness.LastInteraction),
		LastPeriod:      string(awareness.LastPeriod),
		Location:        awareness.Location,
		UpdatedAt:       formatTime(awareness.UpdatedAt),
	}
	if awareness.OpenCases != nil {
		cases := *awareness.OpenCases
		entry.OpenCases = &cases
	}
	if awareness.Vitals != nil {
		entry.Vitals = &vitalsSchema{Current: awareness.Vitals.Current, Max: awareness.Vitals.Max}
	}
	if awareness.PendingFortune != nil {
		entry.Fortune = &fortuneSchema{Text: awareness.PendingFortune.Text, DrawnAt: formatTime(awareness.PendingFortune.DrawnAt)}
	}

	return entry
}

func fromSchema(entry sessionSchema) domain.PersistedAwareness {
	awareness := domain.PersistedAwareness{
		ConversationID:  entry.ConversationID,
		LastInteraction: parseTime(entry.LastInteraction),
		LastPeriod:      domain.Period(entry.LastPeriod),
		Location:        entry.Location,
		UpdatedAt:       parseTime(entry.UpdatedAt),
	}
	if entry.OpenCases != nil {
		cases := *entry.OpenCases
		awareness.OpenCases = &cases
	}
	if entry.Vitals != nil {
		awareness.Vitals = &domain.VitalsSnapshot{Current: entry.Vitals.Current, Max: entry.Vitals.Max}
	}
	if entry.Fortune != nil && entry.Fortune.Text != "" {
		awareness.PendingFortune = &domain.Fortune{Text: entry.Fortune.Text, DrawnAt: parseTime(entry.Fortune.DrawnAt)}
	}

	return awareness
}

func parseTime(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}

	parsed, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}

	return parsed
}

func formatTime(value time.Time) string {
	if value.IsZero() {
		return ""
	}

	return value.UTC().Format(time.RFC3339Nano)
}
