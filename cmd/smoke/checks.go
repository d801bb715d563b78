package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"

	"github.com/angelmondragon/interviewprep-backend/pkg/practiceclient"
	"github.com/angelmondragon/interviewprep-backend/pkg/types"
)

func healthChecks(r *smokeRun) {
	r.check("health live", func() error {
		return r.expectOK(http.MethodGet, "/health/live", nil, nil)
	})
	r.check("health ready", func() error {
		return r.expectOK(http.MethodGet, "/health/ready", nil, nil)
	})
}

func cacheChecks(r *smokeRun) {
	r.check("cache probe", func() error {
		return r.expectOK(http.MethodGet, "/health/cache", nil, nil)
	})

	var session *practiceclient.Session
	ok := r.check("cache seed session", func() error {
		c, err := r.practiceClient()
		if err != nil {
			return err
		}
		resp, err := c.GenerateQuestions(r.ctx, practiceclient.GenerateQuestionsRequest{Type: "behavioral", Difficulty: "easy", Count: 1})
		if err != nil {
			return err
		}
		session, err = requireData(resp)
		return err
	})
	if !ok {
		return
	}
	r.check("cache repeated read", func() error {
		first, err := r.client.GetSession(r.ctx, session.SessionID)
		if err != nil {
			return err
		}
		second, err := r.client.GetSession(r.ctx, session.SessionID)
		if err != nil {
			return err
		}
		if !reflect.DeepEqual(first.Data, second.Data) {
			return errors.New("cached read differs from first read")
		}
		return nil
	})
}

func practiceChecks(r *smokeRun) {
	var session *practiceclient.Session
	ok := r.check("practice generate questions", func() error {
		c, err := r.practiceClient()
		if err != nil {
			return err
		}
		resp, err := c.GenerateQuestions(r.ctx, practiceclient.GenerateQuestionsRequest{
			Type:       "technical",
			Difficulty: "medium",
			Count:      2,
			Role:       "backend engineer",
		})
		if err != nil {
			return err
		}
		if session, err = requireData(resp); err != nil {
			return err
		}
		if len(session.Questions) != 2 {
			return fmt.Errorf("expected 2 questions, got %d", len(session.Questions))
		}
		return nil
	})
	if !ok {
		return
	}

	r.check("practice submit response", func() error {
		resp, err := r.client.SubmitResponse(r.ctx, practiceclient.SubmitResponseRequest{
			SessionID:  session.SessionID,
			QuestionID: session.Questions[0].ID,
			Answer:     "Smoke test answer.",
		})
		if err != nil {
			return err
		}
		_, err = requireData(resp)
		return err
	})

	r.check("practice get session", func() error {
		resp, err := r.client.GetSession(r.ctx, session.SessionID)
		if err != nil {
			return err
		}
		got, err := requireData(resp)
		if err != nil {
			return err
		}
		if len(got.Responses) != 1 {
			return fmt.Errorf("expected 1 response, got %d", len(got.Responses))
		}
		return nil
	})

	r.check("practice end session", func() error {
		resp, err := r.client.EndSession(r.ctx, session.SessionID)
		if err != nil {
			return err
		}
		got, err := requireData(resp)
		if err != nil {
			return err
		}
		if got.Status != "completed" {
			return fmt.Errorf("expected completed status, got %q", got.Status)
		}
		return nil
	})

	r.check("practice history", func() error {
		resp, err := r.client.GetHistoryPage(r.ctx, 1, 50)
		if err != nil {
			return err
		}
		sessions, err := requireData(resp)
		if err != nil {
			return err
		}
		for _, s := range *sessions {
			if s.SessionID == session.SessionID {
				return nil
			}
		}
		return fmt.Errorf("session %s missing from history", session.SessionID)
	})
}

func requireData[T any](resp *types.APIResponse[T]) (*T, error) {
	if resp == nil || !resp.Success {
		return nil, errors.New("response not successful")
	}
	if resp.Data == nil {
		return nil, errors.New("response has no data")
	}
	return resp.Data, nil
}

func (r *smokeRun) mintToken() (string, error) {
	var out struct {
		AccessToken string `json:"accessToken"`
	}
	payload := map[string]string{"userId": r.opts.userID}
	if err := r.expectOK(http.MethodPost, "/api/auth/token", payload, &out); err != nil {
		return "", fmt.Errorf("mint dev token: %w", err)
	}
	if out.AccessToken == "" {
		return "", errors.New("mint dev token: empty access token")
	}
	return out.AccessToken, nil
}

// expectOK issues a raw request and requires a 2xx success envelope. When
// data is non-nil the envelope's data field is decoded into it.
func (r *smokeRun) expectOK(method, path string, body any, data any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(r.ctx, method, r.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := r.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	var env types.APIResponse[json.RawMessage]
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("status %d: invalid envelope: %w", resp.StatusCode, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 || !env.Success {
		msg := "no error message"
		if env.Error != nil {
			msg = *env.Error
		}
		return fmt.Errorf("status %d: %s", resp.StatusCode, msg)
	}
	if data != nil && env.Data != nil {
		if err := json.Unmarshal(*env.Data, data); err != nil {
			return fmt.Errorf("decode data: %w", err)
		}
	}
	return nil
}
