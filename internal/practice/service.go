package practice

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	pkgerrors "github.com/angelmondragon/interviewprep-backend/pkg/errors"
	"github.com/angelmondragon/interviewprep-backend/pkg/logger"
	"github.com/angelmondragon/interviewprep-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	DefaultMaxQuestions = 20
	MaxAnswerLength     = 20000
	expireBatchSize     = 500
)

// ServiceParams groups dependencies for the practice service.
type ServiceParams struct {
	Repo         *Repository
	Cache        SessionCache
	Generator    Generator
	Logger       *logger.Logger
	MaxQuestions int
	Now          func() time.Time
}

// Service exposes the practice session lifecycle.
type Service interface {
	GenerateQuestions(ctx context.Context, userID string, params GenerateParams) (*Session, error)
	SubmitResponse(ctx context.Context, userID string, params SubmitParams) (*Response, error)
	GetSession(ctx context.Context, userID, sessionID string) (*Session, error)
	EndSession(ctx context.Context, userID, sessionID string) (*Session, error)
	History(ctx context.Context, userID string, page pagination.Params) (HistoryPage, error)
	ExpireStale(ctx context.Context, cutoff time.Time) (int, error)
}

type service struct {
	repo         *Repository
	cache        SessionCache
	generator    Generator
	logg         *logger.Logger
	maxQuestions int
	now          func() time.Time
}

// NewService builds a practice service with the required dependencies.
// Cache is optional; without it every read hits the database.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "practice repo is required")
	}
	generator := params.Generator
	if generator == nil {
		generator = NewBankGenerator(uint64(time.Now().UnixNano()))
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	maxQuestions := params.MaxQuestions
	if maxQuestions <= 0 {
		maxQuestions = DefaultMaxQuestions
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:         params.Repo,
		cache:        params.Cache,
		generator:    generator,
		logg:         logg,
		maxQuestions: maxQuestions,
		now:          now,
	}, nil
}

// GenerateQuestions starts an active session for the user.
func (s *service) GenerateQuestions(ctx context.Context, userID string, params GenerateParams) (*Session, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user id is required")
	}
	qType, ok := ParseQuestionType(params.Type)
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Invalid question type")
	}
	difficulty, ok := ParseDifficulty(params.Difficulty)
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Invalid difficulty")
	}
	if params.Count < 1 || params.Count > s.maxQuestions {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "count must be between 1 and %d", s.maxQuestions)
	}

	var role *string
	if trimmed := strings.TrimSpace(params.Role); trimmed != "" {
		role = &trimmed
	}

	session := &Session{
		SessionID:  uuid.NewString(),
		UserID:     userID,
		Type:       qType,
		Difficulty: difficulty,
		Role:       role,
		Questions:  s.generator.Generate(qType, difficulty, params.Count, params.Role),
		Responses:  []Response{},
		StartTime:  s.now().UTC(),
		Status:     SessionStatusActive,
	}
	if err := s.repo.CreateSession(ctx, session); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create practice session")
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"session_id": session.SessionID,
		"type":       qType,
		"difficulty": difficulty,
		"count":      len(session.Questions),
	}), "practice.session.created")
	return session, nil
}

// SubmitResponse records an answer to a question issued in an active session.
func (s *service) SubmitResponse(ctx context.Context, userID string, params SubmitParams) (*Response, error) {
	answer := strings.TrimSpace(params.Answer)
	if answer == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "answer is required")
	}
	if utf8.RuneCountInString(answer) > MaxAnswerLength {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "answer exceeds %d characters", MaxAnswerLength)
	}
	if strings.TrimSpace(params.QuestionID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "questionId is required")
	}

	session, err := s.loadOwned(ctx, userID, params.SessionID)
	if err != nil {
		return nil, err
	}
	if session.Status != SessionStatusActive {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "session is not active")
	}
	if !session.HasQuestion(params.QuestionID) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "question does not belong to session")
	}

	response := &Response{
		SessionID:   session.SessionID,
		QuestionID:  params.QuestionID,
		Answer:      answer,
		SubmittedAt: s.now().UTC(),
	}
	if err := s.repo.AddResponse(ctx, response); err != nil {
		if errors.Is(err, ErrSessionNotActive) {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "session is not active")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store practice response")
	}
	s.invalidate(ctx, session.SessionID)
	return response, nil
}

// GetSession returns a session owned by the user, served from cache when warm.
// A loaded session is only cached if its state still matches the database, so
// a mutation racing the read cannot leave a stale entry behind. The remaining
// window is the gap between that check and the cache write.
func (s *service) GetSession(ctx context.Context, userID, sessionID string) (*Session, error) {
	if s.cache != nil {
		cached, ok, err := s.cache.Get(ctx, sessionID)
		if err != nil {
			s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "practice.cache.read_failed")
		}
		if ok && cached.UserID == userID {
			return cached, nil
		}
	}

	session, err := s.loadOwned(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if s.cache != nil && s.unchangedSince(ctx, session) {
		if err := s.cache.Set(ctx, session); err != nil {
			s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "practice.cache.write_failed")
		}
	}
	return session, nil
}

func (s *service) unchangedSince(ctx context.Context, session *Session) bool {
	id, err := uuid.Parse(session.SessionID)
	if err != nil {
		return false
	}
	status, responses, err := s.repo.SessionState(ctx, id)
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "practice.cache.state_check_failed")
		return false
	}
	return status == session.Status && responses == len(session.Responses)
}

// EndSession completes an active session. Ending twice is a state conflict.
func (s *service) EndSession(ctx context.Context, userID, sessionID string) (*Session, error) {
	session, err := s.loadOwned(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status != SessionStatusActive {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "session already completed")
	}

	id, _ := uuid.Parse(session.SessionID)
	ended, err := s.repo.CompleteSession(ctx, id, s.now().UTC())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "complete practice session")
	}
	if !ended {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "session already completed")
	}
	s.invalidate(ctx, session.SessionID)

	updated, err := s.repo.FindSession(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload practice session")
	}
	s.logg.Info(s.logg.WithSessionID(ctx, updated.SessionID), "practice.session.completed")
	return updated, nil
}

// History lists the user's sessions, newest first.
func (s *service) History(ctx context.Context, userID string, page pagination.Params) (HistoryPage, error) {
	if strings.TrimSpace(userID) == "" {
		return HistoryPage{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "user id is required")
	}
	page = page.Normalize()
	sessions, total, err := s.repo.ListByUser(ctx, userID, page.Offset(), page.Limit)
	if err != nil {
		return HistoryPage{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list practice sessions")
	}
	return HistoryPage{
		Sessions: sessions,
		Page:     page.Page,
		Limit:    page.Limit,
		Total:    int(total),
	}, nil
}

// ExpireStale completes active sessions started before cutoff and returns
// how many were closed.
func (s *service) ExpireStale(ctx context.Context, cutoff time.Time) (int, error) {
	ids, err := s.repo.ListStaleActive(ctx, cutoff, expireBatchSize)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list stale sessions")
	}
	now := s.now().UTC()
	expired := 0
	for _, id := range ids {
		ended, err := s.repo.CompleteSession(ctx, id, now)
		if err != nil {
			return expired, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "expire practice session")
		}
		if ended {
			expired++
			s.invalidate(ctx, id.String())
		}
	}
	return expired, nil
}

func (s *service) loadOwned(ctx context.Context, userID, sessionID string) (*Session, error) {
	id, err := uuid.Parse(strings.TrimSpace(sessionID))
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "session not found")
	}
	session, err := s.repo.FindSession(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "session not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load practice session")
	}
	// sessions owned by someone else look missing
	if session.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "session not found")
	}
	return session, nil
}

func (s *service) invalidate(ctx context.Context, sessionID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, sessionID); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "practice.cache.invalidate_failed")
	}
}
