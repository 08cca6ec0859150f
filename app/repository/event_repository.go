package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/trackgram/trackgram/app/models"
)

type eventRepository struct {
	db *gorm.DB
}

// NewEventRepository creates a new event repository instance
func NewEventRepository(db *gorm.DB) EventRepository {
	return &eventRepository{db: db}
}

func (r *eventRepository) Create(event *models.Event) error {
	return r.db.Create(event).Error
}

// RecentByVisitor returns the visitor's newest events of the given types,
// newest first, bounded by limit.
func (r *eventRepository) RecentByVisitor(visitorID string, eventTypes []string, limit int) ([]models.Event, error) {
	var events []models.Event
	err := r.db.
		Where("visitor_id = ?", visitorID).
		Where("event_type IN ?", eventTypes).
		Order("created_at DESC").
		Limit(limit).
		Find(&events).Error
	return events, err
}

func (r *eventRepository) HasEventSince(visitorID, eventType string, since time.Time) (bool, error) {
	var count int64
	err := r.db.Model(&models.Event{}).
		Where("visitor_id = ? AND event_type = ? AND created_at >= ?", visitorID, eventType, since).
		Count(&count).Error
	return count > 0, err
}

func (r *eventRepository) HasEvent(visitorID, eventType string) (bool, error) {
	var count int64
	err := r.db.Model(&models.Event{}).
		Where("visitor_id = ? AND event_type = ?", visitorID, eventType).
		Count(&count).Error
	return count > 0, err
}

// RecentClicks returns click events created at or after since, newest first.
func (r *eventRepository) RecentClicks(since time.Time, limit int) ([]models.Event, error) {
	var events []models.Event
	err := r.db.
		Where("event_type = ? AND created_at >= ?", models.EVENT_CLICK, since).
		Order("created_at DESC").
		Limit(limit).
		Find(&events).Error
	return events, err
}
