// Package reststore is a store that lives on another Codewords server,
// reached through its HTTP sync API. The far side's version check backs the
// conditional-write contract: writes carry the expected version in If-Match,
// and a 412 from the server is a version conflict here.
package reststore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bcspragu/Codewords"
)

type Store struct {
	baseURL string
	http    *http.Client
}

// New points a store at a server's base URL, e.g. "https://games.example.com".
func New(baseURL string) *Store {
	return &Store{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

func (s *Store) CreateRoom(ctx context.Context, rm *codewords.Room) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/api/sync/rooms", toBody(rm))
	if err != nil {
		return fmt.Errorf("failed to form request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusCreated:
		return nil
	case http.StatusConflict:
		return fmt.Errorf("%w: %s", codewords.ErrRoomExists, rm.Code)
	}
	return statusErr(resp)
}

func (s *Store) Room(ctx context.Context, code string) (*codewords.Room, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.roomURL(code), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to form request: %w", err)
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var rm codewords.Room
		if err := json.NewDecoder(resp.Body).Decode(&rm); err != nil {
			return nil, fmt.Errorf("failed to decode room: %w", err)
		}
		return &rm, nil
	case http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", codewords.ErrRoomNotFound, code)
	}
	return nil, statusErr(resp)
}

func (s *Store) UpdateRoom(ctx context.Context, rm *codewords.Room, fromVersion int64) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, s.roomURL(rm.Code), toBody(rm))
	if err != nil {
		return fmt.Errorf("failed to form request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("If-Match", `"`+strconv.FormatInt(fromVersion, 10)+`"`)

	resp, err := s.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNoContent:
		return nil
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", codewords.ErrRoomNotFound, rm.Code)
	case http.StatusPreconditionFailed:
		return fmt.Errorf("%w: room %s moved past version %d", codewords.ErrVersionConflict, rm.Code, fromVersion)
	}
	return statusErr(resp)
}

func (s *Store) roomURL(code string) string {
	return s.baseURL + "/api/sync/rooms/" + url.PathEscape(code)
}

func statusErr(resp *http.Response) error {
	dat, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return fmt.Errorf("[%d] failed to read error response body: %w", resp.StatusCode, err)
	}
	return fmt.Errorf("[%d] error from server: %s", resp.StatusCode, strings.TrimSpace(string(dat)))
}

func toBody(v interface{}) io.Reader {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		return &errReader{err: err}
	}
	return &buf
}

type errReader struct {
	err error
}

func (e *errReader) Read(_ []byte) (int, error) {
	return 0, e.err
}
