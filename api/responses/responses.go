package responses

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	pkgerrors "github.com/angelmondragon/interviewprep-backend/pkg/errors"
	"github.com/angelmondragon/interviewprep-backend/pkg/logger"
	"github.com/angelmondragon/interviewprep-backend/pkg/types"
)

// SendSuccess writes {success:true} plus data and pagination when they are
// non-nil. A nil data leaves the field out of the body entirely.
func SendSuccess(w http.ResponseWriter, status int, data any, pagination *types.Pagination) {
	writeJSON(w, status, types.Envelope{
		Success:    true,
		Data:       data,
		Pagination: pagination,
	})
}

// WriteSuccess is SendSuccess with status 200 and no pagination.
func WriteSuccess(w http.ResponseWriter, data any) {
	SendSuccess(w, http.StatusOK, data, nil)
}

// SendError writes exactly {success:false, error:message}.
func SendError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, types.Envelope{
		Success: false,
		Error:   &message,
	})
}

// WriteBadRequest is SendError with status 400.
func WriteBadRequest(w http.ResponseWriter, message string) {
	SendError(w, http.StatusBadRequest, message)
}

// SendPaginated attaches {page, limit, total, pages} with pages = ceil(total/limit).
// limit is not validated here; callers guard against limit <= 0.
func SendPaginated(w http.ResponseWriter, status int, data any, page, limit, total int) {
	pagination := types.NewPagination(page, limit, total)
	SendSuccess(w, status, data, &pagination)
}

// WritePaginated is SendPaginated with status 200.
func WritePaginated(w http.ResponseWriter, data any, page, limit, total int) {
	SendPaginated(w, http.StatusOK, data, page, limit, total)
}

// WriteError maps err onto an error envelope. Typed errors choose the status
// and public message; anything else is reported as an internal error.
func WriteError(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, err error) {
	if err == nil {
		err = errors.New("unknown error")
	}

	typed := pkgerrors.As(err)
	if typed == nil {
		typed = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "unexpected error")
	}
	meta := pkgerrors.MetadataFor(typed.Code())

	if logg != nil {
		ctx = logg.WithFields(ctx, pkgerrors.Dump(err).Fields())
		if meta.HTTPStatus >= http.StatusInternalServerError {
			logg.Error(ctx, "request.error", err)
		} else {
			logg.Warn(ctx, "request.rejected")
		}
	}

	SendError(w, meta.HTTPStatus, typed.PublicMessage())
}

func writeJSON(w http.ResponseWriter, status int, payload types.Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf(`{"level":"error","msg":"failed to encode response","err":"%v"}`, err)
	}
}
