package models

import (
	"context"
	stderrors "errors"
	"time"

	"CompanionGuard/pkg/crisis"
	"CompanionGuard/pkg/errors"

	"gorm.io/gorm"
)

// CrisisAlert 危机警报记录，Status 为冗余列，用于筛选和条件更新
type CrisisAlert struct {
	ID              string     `json:"id" gorm:"primaryKey;size:64"`
	SubjectCode     string     `json:"subjectCode" gorm:"size:128;index"`
	ConversationID  string     `json:"conversationId" gorm:"size:128;index"`
	Severity        string     `json:"severity" gorm:"size:16"`
	TriggerReason   string     `json:"triggerReason" gorm:"size:512"`
	Status          string     `json:"status" gorm:"size:16;index"`
	CreatedAt       time.Time  `json:"createdAt"`
	NotifiedAt      *time.Time `json:"notifiedAt" gorm:"index"`
	ViewedAt        *time.Time `json:"viewedAt"`
	ResolvedAt      *time.Time `json:"resolvedAt"`
	ResolutionNotes *string    `json:"resolutionNotes" gorm:"size:2048"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

func (CrisisAlert) TableName() string { return "crisis_alerts" }

// AlertAction 警报状态变更记录（created、notified、viewed、resolved）
type AlertAction struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	AlertID    string    `json:"alertId" gorm:"size:64;index"`
	Action     string    `json:"action" gorm:"size:16"`
	ActionTime time.Time `json:"actionTime"`
	CreatedAt  time.Time `json:"createdAt"`
}

func (AlertAction) TableName() string { return "crisis_alert_actions" }

func fromDomain(a crisis.CrisisAlert) CrisisAlert {
	return CrisisAlert{
		ID:              a.ID,
		SubjectCode:     a.SubjectCode,
		ConversationID:  a.ConversationID,
		Severity:        a.Severity.String(),
		TriggerReason:   a.TriggerReason,
		Status:          string(a.Status()),
		CreatedAt:       a.CreatedAt,
		NotifiedAt:      a.NotifiedAt,
		ViewedAt:        a.ViewedAt,
		ResolvedAt:      a.ResolvedAt,
		ResolutionNotes: a.ResolutionNotes,
	}
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

func (m CrisisAlert) toDomain() (crisis.CrisisAlert, error) {
	sev, err := crisis.ParseSeverity(m.Severity)
	if err != nil {
		return crisis.CrisisAlert{}, errors.Wrapf(err, "alert %s", m.ID)
	}
	return crisis.CrisisAlert{
		ID:              m.ID,
		SubjectCode:     m.SubjectCode,
		ConversationID:  m.ConversationID,
		Severity:        sev,
		TriggerReason:   m.TriggerReason,
		CreatedAt:       m.CreatedAt.UTC(),
		NotifiedAt:      utcPtr(m.NotifiedAt),
		ViewedAt:        utcPtr(m.ViewedAt),
		ResolvedAt:      utcPtr(m.ResolvedAt),
		ResolutionNotes: m.ResolutionNotes,
	}, nil
}

// actionTime returns the timestamp of the status the alert just entered.
func actionTime(a crisis.CrisisAlert) time.Time {
	switch a.Status() {
	case crisis.StatusResolved:
		return *a.ResolvedAt
	case crisis.StatusViewed:
		return *a.ViewedAt
	case crisis.StatusNotified:
		return *a.NotifiedAt
	default:
		return a.CreatedAt
	}
}

// AlertStore is a gorm-backed crisis.AlertStore.
type AlertStore struct {
	db *gorm.DB
}

var _ crisis.AlertStore = (*AlertStore)(nil)

func NewAlertStore(db *gorm.DB) *AlertStore {
	return &AlertStore{db: db}
}

// Migrate creates or updates the crisis tables.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&CrisisAlert{}, &AlertAction{})
}

func (s *AlertStore) Insert(ctx context.Context, alert crisis.CrisisAlert) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&CrisisAlert{}).Where("id = ?", alert.ID).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return crisis.ErrConcurrentUpdate.WithContext("alert_id", alert.ID)
		}
		row := fromDomain(alert)
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
		return tx.Create(&AlertAction{AlertID: alert.ID, Action: row.Status, ActionTime: actionTime(alert)}).Error
	})
}

func (s *AlertStore) Get(ctx context.Context, id string) (crisis.CrisisAlert, error) {
	var row CrisisAlert
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return crisis.CrisisAlert{}, crisis.ErrAlertNotFound.WithContext("alert_id", id)
	}
	if err != nil {
		return crisis.CrisisAlert{}, err
	}
	return row.toDomain()
}

// CompareAndSwap updates the row only while its status column still holds
// expected.
func (s *AlertStore) CompareAndSwap(ctx context.Context, expected crisis.AlertStatus, next crisis.CrisisAlert) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := fromDomain(next)
		res := tx.Model(&CrisisAlert{}).
			Where("id = ? AND status = ?", next.ID, string(expected)).
			Updates(map[string]interface{}{
				"status":           row.Status,
				"notified_at":      row.NotifiedAt,
				"viewed_at":        row.ViewedAt,
				"resolved_at":      row.ResolvedAt,
				"resolution_notes": row.ResolutionNotes,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var n int64
			if err := tx.Model(&CrisisAlert{}).Where("id = ?", next.ID).Count(&n).Error; err != nil {
				return err
			}
			if n == 0 {
				return crisis.ErrAlertNotFound.WithContext("alert_id", next.ID)
			}
			return crisis.ErrConcurrentUpdate.WithContext("alert_id", next.ID)
		}
		return tx.Create(&AlertAction{AlertID: next.ID, Action: row.Status, ActionTime: actionTime(next)}).Error
	})
}

func (s *AlertStore) List(ctx context.Context, filter crisis.AlertFilter) ([]crisis.CrisisAlert, error) {
	q := s.db.WithContext(ctx).Model(&CrisisAlert{})
	if filter.Status != "" {
		q = q.Where("status = ?", string(filter.Status))
	}
	if filter.SubjectCode != "" {
		q = q.Where("subject_code = ?", filter.SubjectCode)
	}
	if !filter.NotifiedBefore.IsZero() {
		q = q.Where("notified_at IS NOT NULL AND notified_at < ?", filter.NotifiedBefore.UTC())
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	var rows []CrisisAlert
	if err := q.Order("created_at ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]crisis.CrisisAlert, 0, len(rows))
	for _, r := range rows {
		a, err := r.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

// History returns the recorded transitions of one alert, oldest first.
func (s *AlertStore) History(ctx context.Context, alertID string) ([]AlertAction, error) {
	var actions []AlertAction
	err := s.db.WithContext(ctx).Where("alert_id = ?", alertID).Order("id ASC").Find(&actions).Error
	return actions, err
}
