// Package auditlog writes and pages the administrative audit trail.
package auditlog

import (
	"fmt"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/nita-portal/nita/internal/db/controller"
	"github.com/nita-portal/nita/internal/db/models"
)

const (
	// DefaultPerPage is used when no page size is requested.
	DefaultPerPage = 50
	// MaxPerPage caps the page size.
	MaxPerPage = 200
)

// Entry is one administrative action to record.
type Entry struct {
	UserID    uint64
	Action    string
	Target    string
	Details   any
	IPAddress string
}

// Write stores an audit entry.
func Write(db *gorm.DB, e Entry) error {
	if db == nil {
		return controller.ErrDBNil
	}

	details := ""

	if e.Details != nil {
		b, err := json.Marshal(e.Details)
		if err != nil {
			return fmt.Errorf("failed to encode audit details: %w", err)
		}

		details = string(b)
	}

	row := models.AuditLog{
		UserID:    e.UserID,
		Action:    e.Action,
		Target:    e.Target,
		Details:   details,
		IPAddress: e.IPAddress,
	}

	if err := db.Create(&row).Error; err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}

	return nil
}

// Record writes an audit entry and only logs a failure.
// A lost audit line must not fail the action it describes.
func Record(db *gorm.DB, e Entry) {
	if err := Write(db, e); err != nil {
		log.Error().Err(err).Str("action", e.Action).Str("target", e.Target).Msg("audit log write failed")
	}
}

// Page is one page of audit entries, most recent first.
type Page struct {
	CurrentPage int               `json:"current_page"`
	PerPage     int               `json:"per_page"`
	Total       int64             `json:"total"`
	LastPage    int               `json:"last_page"`
	Data        []models.AuditLog `json:"data"`
}

// List returns the requested page. Page numbers start at 1.
func List(db *gorm.DB, page, perPage int) (*Page, error) {
	if db == nil {
		return nil, controller.ErrDBNil
	}

	if page < 1 {
		page = 1
	}

	if perPage < 1 {
		perPage = DefaultPerPage
	}

	perPage = min(perPage, MaxPerPage)

	p := &Page{CurrentPage: page, PerPage: perPage, Data: []models.AuditLog{}}

	if err := db.Model(&models.AuditLog{}).Count(&p.Total).Error; err != nil {
		return nil, fmt.Errorf("failed to count audit logs: %w", err)
	}

	p.LastPage = max(1, int((p.Total+int64(perPage)-1)/int64(perPage)))

	err := db.Order("created_at DESC").Order("id DESC").
		Limit(perPage).Offset((page - 1) * perPage).
		Find(&p.Data).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list audit logs: %w", err)
	}

	if err = attachActors(db, p.Data); err != nil {
		return nil, err
	}

	return p, nil
}

func attachActors(db *gorm.DB, entries []models.AuditLog) error {
	if len(entries) == 0 {
		return nil
	}

	ids := make([]uint64, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.UserID)
	}

	var actors []models.AuditActor
	if err := db.Where("id IN ?", ids).Find(&actors).Error; err != nil {
		return fmt.Errorf("failed to load audit actors: %w", err)
	}

	byID := make(map[uint64]*models.AuditActor, len(actors))
	for i := range actors {
		byID[actors[i].ID] = &actors[i]
	}

	for i := range entries {
		entries[i].User = byID[entries[i].UserID]
	}

	return nil
}
