package validators

import (
	"net/http"
	"strconv"
	"strings"

	pkgerrors "github.com/angelmondragon/interviewprep-backend/pkg/errors"
)

// IntRange bounds a query parameter and supplies its default when absent.
type IntRange struct {
	Default int
	Min     int
	Max     int
}

// ParseQueryInt reads key from the query string. Blank values fall back to
// the default; anything non-numeric or out of range is a validation error.
func ParseQueryInt(r *http.Request, key string, bounds IntRange) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return bounds.Default, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, pkgerrors.Newf(pkgerrors.CodeValidation, "%s must be numeric", key)
	}
	if value < bounds.Min || value > bounds.Max {
		return 0, pkgerrors.Newf(pkgerrors.CodeValidation, "%s must be between %d and %d", key, bounds.Min, bounds.Max)
	}
	return value, nil
}
