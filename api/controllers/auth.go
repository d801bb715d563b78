package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/angelmondragon/interviewprep-backend/api/responses"
	"github.com/angelmondragon/interviewprep-backend/api/validators"
	"github.com/angelmondragon/interviewprep-backend/pkg/auth"
	"github.com/angelmondragon/interviewprep-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/interviewprep-backend/pkg/errors"
	"github.com/angelmondragon/interviewprep-backend/pkg/logger"
)

type devTokenPayload struct {
	UserID string `json:"userId" validate:"required,max=128"`
}

type devTokenResponse struct {
	AccessToken string    `json:"accessToken"`
	TokenType   string    `json:"tokenType"`
	ExpiresAt   time.Time `json:"expiresAt"`
	UserID      string    `json:"userId"`
}

// AuthDevToken mints an access token for any user id. The router only mounts
// it outside production.
func AuthDevToken(cfg config.JWTConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var payload devTokenPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		userID := strings.TrimSpace(payload.UserID)
		if userID == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "userId is required"))
			return
		}

		now := time.Now().UTC()
		token, err := auth.MintAccessToken(cfg, now, auth.AccessTokenPayload{UserID: userID})
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint token"))
			return
		}

		if logg != nil {
			logg.Info(logg.WithUserID(ctx, userID), "auth.dev_token.issued")
		}
		responses.SendSuccess(w, http.StatusCreated, devTokenResponse{
			AccessToken: token,
			TokenType:   "Bearer",
			ExpiresAt:   now.Add(cfg.TTL()),
			UserID:      userID,
		}, nil)
	}
}
