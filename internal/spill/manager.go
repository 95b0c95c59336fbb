package spill

import (
	"encoding/json"
	"os"
	"sync"

	"github.com/rs/zerolog/log"

	"streampay-audit-backend/internal/model"
)

// Manager persists entries that survive the final shutdown flush, so a
// restart can pick them up instead of losing them. Strictly best-effort:
// the pipeline's durability contract does not depend on it.
type Manager interface {
	Load() ([]model.AuditEntry, error)
	Save(entries []model.AuditEntry) error
	Discard() error
	Path() string
}

type fileManager struct {
	filePath string
	mu       sync.Mutex
}

func NewManager(filePath string) Manager {
	return &fileManager{
		filePath: filePath,
	}
}

func (m *fileManager) Load() ([]model.AuditEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := os.ReadFile(m.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		log.Error().Err(err).Str("file", m.filePath).Msg("Failed to read spill file")
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}

	var entries []model.AuditEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		log.Error().Err(err).Str("file", m.filePath).Msg("Failed to unmarshal spill file")
		return nil, err
	}

	log.Info().Str("file", m.filePath).Int("entries", len(entries)).Msg("Loaded spilled audit entries")
	return entries, nil
}

func (m *fileManager) Save(entries []model.AuditEntry) error {
	if len(entries) == 0 {
		return m.Discard()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal spill entries")
		return err
	}

	tempFilePath := m.filePath + ".tmp"
	if err := os.WriteFile(tempFilePath, data, 0600); err != nil {
		log.Error().Err(err).Str("file", tempFilePath).Msg("Failed to write temporary spill file")
		return err
	}

	if err := os.Rename(tempFilePath, m.filePath); err != nil {
		log.Error().Err(err).Str("from", tempFilePath).Str("to", m.filePath).Msg("Failed to rename spill file")
		_ = os.Remove(tempFilePath)
		return err
	}

	log.Info().Str("file", m.filePath).Int("entries", len(entries)).Msg("Spilled unflushed audit entries")
	return nil
}

func (m *fileManager) Discard() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := os.Remove(m.filePath); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (m *fileManager) Path() string {
	return m.filePath
}
