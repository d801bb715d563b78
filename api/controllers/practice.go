package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/interviewprep-backend/api/middleware"
	"github.com/angelmondragon/interviewprep-backend/api/responses"
	"github.com/angelmondragon/interviewprep-backend/api/validators"
	"github.com/angelmondragon/interviewprep-backend/internal/practice"
	pkgerrors "github.com/angelmondragon/interviewprep-backend/pkg/errors"
	"github.com/angelmondragon/interviewprep-backend/pkg/logger"
	"github.com/angelmondragon/interviewprep-backend/pkg/pagination"
)

const maxRoleLength = 120

var (
	historyPageRange  = validators.IntRange{Default: 1, Min: 1, Max: 100000}
	historyLimitRange = validators.IntRange{Default: pagination.DefaultLimit, Min: 1, Max: pagination.MaxLimit}
)

type generateQuestionsPayload struct {
	Type       string `json:"type" validate:"required"`
	Difficulty string `json:"difficulty" validate:"required"`
	Count      int    `json:"count" validate:"min=1"`
	Role       string `json:"role,omitempty"`
}

type submitResponsePayload struct {
	SessionID  string `json:"sessionId" validate:"required"`
	QuestionID string `json:"questionId" validate:"required"`
	Answer     string `json:"answer" validate:"required"`
}

// PracticeGenerateQuestions starts a session and returns it with its questions.
func PracticeGenerateQuestions(svc practice.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID, ok := requireUser(w, r, svc, logg)
		if !ok {
			return
		}

		var payload generateQuestionsPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		session, err := svc.GenerateQuestions(ctx, userID, practice.GenerateParams{
			Type:       payload.Type,
			Difficulty: payload.Difficulty,
			Count:      payload.Count,
			Role:       validators.SanitizeString(payload.Role, maxRoleLength),
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.SendSuccess(w, http.StatusCreated, session, nil)
	}
}

// PracticeSubmitResponse records an answer for a question in an active session.
func PracticeSubmitResponse(svc practice.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID, ok := requireUser(w, r, svc, logg)
		if !ok {
			return
		}

		var payload submitResponsePayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if logg != nil {
			ctx = logg.WithSessionID(ctx, payload.SessionID)
		}
		resp, err := svc.SubmitResponse(ctx, userID, practice.SubmitParams{
			SessionID:  payload.SessionID,
			QuestionID: payload.QuestionID,
			Answer:     payload.Answer,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.SendSuccess(w, http.StatusCreated, resp, nil)
	}
}

// PracticeGetSession returns one of the caller's sessions.
func PracticeGetSession(svc practice.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID, ok := requireUser(w, r, svc, logg)
		if !ok {
			return
		}

		session, err := svc.GetSession(ctx, userID, chi.URLParam(r, "sessionId"))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, session)
	}
}

// PracticeEndSession completes the session.
func PracticeEndSession(svc practice.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID, ok := requireUser(w, r, svc, logg)
		if !ok {
			return
		}

		sessionID := chi.URLParam(r, "sessionId")
		if logg != nil {
			ctx = logg.WithSessionID(ctx, sessionID)
		}
		session, err := svc.EndSession(ctx, userID, sessionID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, session)
	}
}

// PracticeHistory lists the caller's sessions with pagination metadata.
func PracticeHistory(svc practice.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID, ok := requireUser(w, r, svc, logg)
		if !ok {
			return
		}

		page, err := validators.ParseQueryInt(r, "page", historyPageRange)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", historyLimitRange)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		result, err := svc.History(ctx, userID, pagination.Params{Page: page, Limit: limit})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WritePaginated(w, result.Sessions, result.Page, result.Limit, result.Total)
	}
}

func requireUser(w http.ResponseWriter, r *http.Request, svc practice.Service, logg *logger.Logger) (string, bool) {
	ctx := r.Context()
	if svc == nil {
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "practice service unavailable"))
		return "", false
	}
	userID := middleware.UserIDFromContext(ctx)
	if userID == "" {
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
		return "", false
	}
	return userID, true
}
