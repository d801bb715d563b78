package responses

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	pkgerrors "github.com/angelmondragon/interviewprep-backend/pkg/errors"
	"github.com/angelmondragon/interviewprep-backend/pkg/logger"
	"github.com/angelmondragon/interviewprep-backend/pkg/types"
)

func decodeKeys(t *testing.T, body []byte) map[string]json.RawMessage {
	t.Helper()
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		t.Fatalf("decode body: %v (%s)", err, body)
	}
	return raw
}

func TestSendSuccessWithData(t *testing.T) {
	w := httptest.NewRecorder()
	SendSuccess(w, http.StatusCreated, map[string]string{"hello": "world"}, nil)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201 but got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("unexpected content type %q", ct)
	}
	keys := decodeKeys(t, w.Body.Bytes())
	if string(keys["success"]) != "true" {
		t.Fatalf("expected success true, got %s", keys["success"])
	}
	if string(keys["data"]) != `{"hello":"world"}` {
		t.Fatalf("unexpected data %s", keys["data"])
	}
	if _, ok := keys["pagination"]; ok {
		t.Fatal("pagination should be absent")
	}
	if _, ok := keys["error"]; ok {
		t.Fatal("error should be absent")
	}
}

func TestSendSuccessWithoutDataOmitsField(t *testing.T) {
	w := httptest.NewRecorder()
	SendSuccess(w, http.StatusOK, nil, nil)

	keys := decodeKeys(t, w.Body.Bytes())
	if _, ok := keys["data"]; ok {
		t.Fatalf("data must be absent, body=%s", w.Body.String())
	}
	if len(keys) != 1 {
		t.Fatalf("expected only success key, got %v", keys)
	}
}

func TestSendSuccessKeepsEmptyPayloads(t *testing.T) {
	w := httptest.NewRecorder()
	WriteSuccess(w, []string{})

	keys := decodeKeys(t, w.Body.Bytes())
	if string(keys["data"]) != "[]" {
		t.Fatalf("expected empty array payload, got %s", keys["data"])
	}
	if w.Code != http.StatusOK {
		t.Fatalf("expected default 200, got %d", w.Code)
	}
}

func TestSendErrorShape(t *testing.T) {
	w := httptest.NewRecorder()
	SendError(w, http.StatusUnprocessableEntity, "Invalid difficulty")

	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", w.Code)
	}
	if got := w.Body.String(); got != "{\"success\":false,\"error\":\"Invalid difficulty\"}\n" {
		t.Fatalf("unexpected body %q", got)
	}
}

func TestSendErrorKeepsEmptyMessage(t *testing.T) {
	w := httptest.NewRecorder()
	WriteBadRequest(w, "")

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected default 400, got %d", w.Code)
	}
	keys := decodeKeys(t, w.Body.Bytes())
	if string(keys["error"]) != `""` {
		t.Fatalf("expected empty error string, got %s", keys["error"])
	}
	if len(keys) != 2 {
		t.Fatalf("expected success and error only, got %v", keys)
	}
}

func TestSendPaginatedEmptyCollection(t *testing.T) {
	w := httptest.NewRecorder()
	WritePaginated(w, []int{}, 1, 10, 0)

	var body types.APIResponse[[]int]
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !body.Success {
		t.Fatal("expected success")
	}
	want := types.Pagination{Page: 1, Limit: 10, Total: 0, Pages: 0}
	if body.Pagination == nil || *body.Pagination != want {
		t.Fatalf("unexpected pagination %+v", body.Pagination)
	}
}

func TestSendPaginatedPageCount(t *testing.T) {
	cases := []struct {
		limit, total, pages int
	}{
		{limit: 10, total: 1, pages: 1},
		{limit: 10, total: 10, pages: 1},
		{limit: 10, total: 11, pages: 2},
		{limit: 3, total: 100, pages: 34},
		{limit: 1, total: 7, pages: 7},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		SendPaginated(w, http.StatusOK, []int{1}, 2, tc.limit, tc.total)

		var body types.APIResponse[[]int]
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if body.Pagination.Pages != tc.pages {
			t.Fatalf("limit=%d total=%d expected %d pages, got %d", tc.limit, tc.total, tc.pages, body.Pagination.Pages)
		}
		if body.Pagination.Page != 2 {
			t.Fatalf("page should pass through, got %d", body.Pagination.Page)
		}
	}
}

func TestSendPaginatedZeroLimitDoesNotPanic(t *testing.T) {
	w := httptest.NewRecorder()
	SendPaginated(w, http.StatusOK, []int{}, 1, 0, 5)

	var body types.APIResponse[[]int]
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Pagination.Pages != 0 {
		t.Fatalf("expected 0 pages for zero limit, got %d", body.Pagination.Pages)
	}
}

func TestFormatterIsDeterministic(t *testing.T) {
	payload := map[string]any{"b": 2, "a": []string{"x", "y"}}
	first := httptest.NewRecorder()
	second := httptest.NewRecorder()
	WritePaginated(first, payload, 1, 5, 12)
	WritePaginated(second, payload, 1, 5, 12)

	if !bytes.Equal(first.Body.Bytes(), second.Body.Bytes()) {
		t.Fatalf("bodies differ:\n%s\n%s", first.Body.String(), second.Body.String())
	}
}

func TestWriteErrorMapsTypedError(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(t.Context(), logger.New(logger.Options{ServiceName: "test", Output: io.Discard}), w,
		pkgerrors.New(pkgerrors.CodeValidation, "count must be positive"))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 but got %d", w.Code)
	}
	if got := w.Body.String(); got != "{\"success\":false,\"error\":\"count must be positive\"}\n" {
		t.Fatalf("unexpected body %q", got)
	}
}

func TestWriteErrorStateConflict(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(t.Context(), nil, w, pkgerrors.New(pkgerrors.CodeStateConflict, "session already completed"))

	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", w.Code)
	}
}

func TestWriteErrorDefaultsToInternalForUntrustedErrors(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(t.Context(), nil, w, errors.New("pq: connection refused"))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500 but got %d", w.Code)
	}
	keys := decodeKeys(t, w.Body.Bytes())
	if string(keys["error"]) != `"internal server error"` {
		t.Fatalf("internal details leaked: %s", keys["error"])
	}
	if _, ok := keys["data"]; ok {
		t.Fatal("error envelope must not carry data")
	}
}
