package practice

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type sessionRecord struct {
	ID         uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	UserID     string           `gorm:"column:user_id;not null;index"`
	Type       string           `gorm:"column:type;not null"`
	Difficulty string           `gorm:"column:difficulty;not null"`
	Role       *string          `gorm:"column:role"`
	Questions  []Question       `gorm:"column:questions;type:text;serializer:json"`
	Status     string           `gorm:"column:status;not null;index"`
	StartTime  time.Time        `gorm:"column:start_time;not null"`
	EndTime    *time.Time       `gorm:"column:end_time"`
	CreatedAt  time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time        `gorm:"column:updated_at;autoUpdateTime"`
	Responses  []responseRecord `gorm:"foreignKey:SessionID;references:ID"`
}

func (sessionRecord) TableName() string { return "practice_sessions" }

type responseRecord struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	SessionID   uuid.UUID `gorm:"column:session_id;type:uuid;not null;index"`
	QuestionID  string    `gorm:"column:question_id;not null"`
	Answer      string    `gorm:"column:answer;not null"`
	SubmittedAt time.Time `gorm:"column:submitted_at;not null"`
}

func (responseRecord) TableName() string { return "practice_responses" }

// AutoMigrate creates the practice tables. Used for sqlite, where the goose
// migrations do not apply.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&sessionRecord{}, &responseRecord{})
}

// Repository persists practice sessions and their responses.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a practice repository bound to the provided gorm DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// CreateSession inserts a session. The id is assigned by the caller.
func (r *Repository) CreateSession(ctx context.Context, session *Session) error {
	record, err := toSessionRecord(session)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Omit("Responses").Create(&record).Error
}

// FindSession loads a session with its responses in submission order.
// Returns gorm.ErrRecordNotFound when missing.
func (r *Repository) FindSession(ctx context.Context, id uuid.UUID) (*Session, error) {
	var record sessionRecord
	err := r.db.WithContext(ctx).
		Preload("Responses", func(db *gorm.DB) *gorm.DB {
			return db.Order("submitted_at ASC").Order("id ASC")
		}).
		Where("id = ?", id).
		First(&record).Error
	if err != nil {
		return nil, err
	}
	session := record.toDomain()
	return &session, nil
}

// ErrSessionNotActive reports a write against a session that is no longer
// active.
var ErrSessionNotActive = errors.New("practice session is not active")

// AddResponse records an answer. The session row is touched with a conditional
// update in the same transaction, which locks it against a concurrent
// CompleteSession; ErrSessionNotActive is returned when nothing matched.
func (r *Repository) AddResponse(ctx context.Context, response *Response) error {
	sessionID, err := uuid.Parse(response.SessionID)
	if err != nil {
		return err
	}
	id := uuid.New()
	record := responseRecord{
		ID:          id,
		SessionID:   sessionID,
		QuestionID:  response.QuestionID,
		Answer:      response.Answer,
		SubmittedAt: response.SubmittedAt,
	}
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&sessionRecord{}).
			Where("id = ? AND status = ?", sessionID, string(SessionStatusActive)).
			Update("updated_at", response.SubmittedAt)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrSessionNotActive
		}
		return tx.Create(&record).Error
	})
	if err != nil {
		return err
	}
	response.ID = id.String()
	return nil
}

// SessionState reports the status and response count of a session. Both only
// move forward, so together they identify a session revision.
func (r *Repository) SessionState(ctx context.Context, id uuid.UUID) (SessionStatus, int, error) {
	var row struct {
		Status    string
		Responses int
	}
	err := r.db.WithContext(ctx).
		Raw(`SELECT s.status AS status,
			(SELECT COUNT(*) FROM practice_responses r WHERE r.session_id = s.id) AS responses
			FROM practice_sessions s WHERE s.id = ?`, id).
		Scan(&row).Error
	if err != nil {
		return "", 0, err
	}
	if row.Status == "" {
		return "", 0, gorm.ErrRecordNotFound
	}
	return SessionStatus(row.Status), row.Responses, nil
}

// CompleteSession flips an active session to completed. It reports false when
// the session was not active, so concurrent callers cannot both end it.
func (r *Repository) CompleteSession(ctx context.Context, id uuid.UUID, endTime time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&sessionRecord{}).
		Where("id = ? AND status = ?", id, string(SessionStatusActive)).
		Updates(map[string]any{
			"status":     string(SessionStatusCompleted),
			"end_time":   endTime,
			"updated_at": endTime,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// ListByUser returns a page of the user's sessions, newest first, and the total.
func (r *Repository) ListByUser(ctx context.Context, userID string, offset, limit int) ([]Session, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).
		Model(&sessionRecord{}).
		Where("user_id = ?", userID).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var records []sessionRecord
	if err := r.db.WithContext(ctx).
		Preload("Responses", func(db *gorm.DB) *gorm.DB {
			return db.Order("submitted_at ASC").Order("id ASC")
		}).
		Where("user_id = ?", userID).
		Order("start_time DESC").
		Order("id DESC").
		Offset(offset).
		Limit(limit).
		Find(&records).Error; err != nil {
		return nil, 0, err
	}

	sessions := make([]Session, 0, len(records))
	for _, record := range records {
		sessions = append(sessions, record.toDomain())
	}
	return sessions, total, nil
}

// ListStaleActive returns ids of active sessions started before cutoff.
func (r *Repository) ListStaleActive(ctx context.Context, cutoff time.Time, limit int) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&sessionRecord{}).
		Where("status = ? AND start_time < ?", string(SessionStatusActive), cutoff).
		Order("start_time ASC").
		Limit(limit).
		Pluck("id", &ids).Error
	return ids, err
}

func toSessionRecord(session *Session) (sessionRecord, error) {
	id, err := uuid.Parse(session.SessionID)
	if err != nil {
		return sessionRecord{}, err
	}
	return sessionRecord{
		ID:         id,
		UserID:     session.UserID,
		Type:       string(session.Type),
		Difficulty: string(session.Difficulty),
		Role:       session.Role,
		Questions:  session.Questions,
		Status:     string(session.Status),
		StartTime:  session.StartTime,
		EndTime:    session.EndTime,
	}, nil
}

func (r sessionRecord) toDomain() Session {
	questions := r.Questions
	if questions == nil {
		questions = []Question{}
	}
	responses := make([]Response, 0, len(r.Responses))
	for _, resp := range r.Responses {
		responses = append(responses, Response{
			ID:          resp.ID.String(),
			SessionID:   resp.SessionID.String(),
			QuestionID:  resp.QuestionID,
			Answer:      resp.Answer,
			SubmittedAt: resp.SubmittedAt.UTC(),
		})
	}
	var endTime *time.Time
	if r.EndTime != nil {
		t := r.EndTime.UTC()
		endTime = &t
	}
	return Session{
		SessionID:  r.ID.String(),
		UserID:     r.UserID,
		Type:       QuestionType(r.Type),
		Difficulty: Difficulty(r.Difficulty),
		Role:       r.Role,
		Questions:  questions,
		Responses:  responses,
		StartTime:  r.StartTime.UTC(),
		EndTime:    endTime,
		Status:     SessionStatus(r.Status),
	}
}
