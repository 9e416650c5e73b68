package models

import (
	"encoding/json"
	"time"

	"github.com/b2bportal/backend/internal/domain/integration"
	"github.com/google/uuid"
)

// SyncRunModel is the persistence model for the SyncRun entity.
type SyncRunModel struct {
	ID           uuid.UUID              `gorm:"type:uuid;primary_key"`
	Kind         integration.SyncKind   `gorm:"type:varchar(20);not null;index:idx_sync_runs_kind_started,priority:1"`
	Status       integration.SyncStatus `gorm:"type:varchar(20);not null"`
	StartedAt    time.Time              `gorm:"not null;index:idx_sync_runs_kind_started,priority:2"`
	FinishedAt   *time.Time
	ErrorMessage string `gorm:"type:text"`
	Stats        string `gorm:"type:jsonb"`
}

// TableName returns the table name for GORM
func (SyncRunModel) TableName() string {
	return "sync_runs"
}

// ToDomain converts the persistence model to a domain SyncRun.
// Stats that fail to decode are returned empty.
func (m *SyncRunModel) ToDomain() *integration.SyncRun {
	run := &integration.SyncRun{
		ID:           m.ID,
		Kind:         m.Kind,
		Status:       m.Status,
		StartedAt:    m.StartedAt,
		FinishedAt:   m.FinishedAt,
		ErrorMessage: m.ErrorMessage,
		Stats:        map[string]any{},
	}
	if m.Stats != "" {
		_ = json.Unmarshal([]byte(m.Stats), &run.Stats)
	}
	return run
}

// SyncRunFromDomain creates a new SyncRunModel from a domain SyncRun.
func SyncRunFromDomain(r *integration.SyncRun) (*SyncRunModel, error) {
	m := &SyncRunModel{
		ID:           r.ID,
		Kind:         r.Kind,
		Status:       r.Status,
		StartedAt:    r.StartedAt,
		FinishedAt:   r.FinishedAt,
		ErrorMessage: r.ErrorMessage,
		Stats:        "{}",
	}
	if len(r.Stats) > 0 {
		data, err := json.Marshal(r.Stats)
		if err != nil {
			return nil, err
		}
		m.Stats = string(data)
	}
	return m, nil
}
