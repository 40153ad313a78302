// Package client talks to a Codewords server over its HTTP API. It holds
// the identity cookie the server mints, so one Client is one player.
package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"

	codewords "github.com/bcspragu/Codewords"
	"github.com/bcspragu/Codewords/web"
)

type Client struct {
	scheme string
	addr   string
	http   *http.Client
}

func New(scheme, addr string) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %v", err)
	}

	return &Client{
		scheme: scheme,
		addr:   addr,
		http:   &http.Client{Jar: jar},
	}, nil
}

// Identity returns the opaque identity token the server handed us, or the
// empty string if CreatePlayer hasn't been called yet. Callers can write it
// to disk and feed it back with SetIdentity to stay the same player across
// runs.
func (c *Client) Identity() string {
	u, err := url.Parse(c.url("/"))
	if err != nil {
		return ""
	}

	for _, ck := range c.http.Jar.Cookies(u) {
		if ck.Name == web.AuthCookie {
			return ck.Value
		}
	}
	return ""
}

// SetIdentity installs a previously saved identity token.
func (c *Client) SetIdentity(v string) error {
	u, err := url.Parse(c.url("/"))
	if err != nil {
		return fmt.Errorf("failed to parse server URL: %w", err)
	}

	c.http.Jar.SetCookies(u, []*http.Cookie{{
		Name:  web.AuthCookie,
		Value: v,
	}})
	return nil
}

// CreatePlayer mints an identity on the server and stashes the cookie for
// every later call. Calling it again returns the same ID.
func (c *Client) CreatePlayer() (codewords.PlayerID, error) {
	req, err := http.NewRequest(http.MethodPost, c.url("/api/player"), nil)
	if err != nil {
		return "", fmt.Errorf("failed to form request: %w", err)
	}

	var resp struct {
		PlayerID codewords.PlayerID `json:"player_id"`
	}
	if err := c.do(req, &resp); err != nil {
		return "", fmt.Errorf("failed to create player: %w", err)
	}
	return resp.PlayerID, nil
}

func (c *Client) CreateRoom(name string) (*codewords.Room, *codewords.Player, error) {
	body := struct {
		Name string `json:"name"`
	}{name}

	req, err := http.NewRequest(http.MethodPost, c.url("/api/room"), toBody(body))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to form request: %w", err)
	}

	var resp struct {
		Room   *codewords.Room   `json:"room"`
		Player *codewords.Player `json:"player"`
	}
	if err := c.do(req, &resp); err != nil {
		return nil, nil, fmt.Errorf("failed to create room: %w", err)
	}
	return resp.Room, resp.Player, nil
}

func (c *Client) JoinRoom(code, name string) (*codewords.Room, *codewords.Player, error) {
	body := struct {
		Name string `json:"name"`
	}{name}

	req, err := http.NewRequest(http.MethodPost, c.roomURL(code, "join"), toBody(body))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to form request: %w", err)
	}

	var resp struct {
		Room   *codewords.Room   `json:"room"`
		Player *codewords.Player `json:"player"`
	}
	if err := c.do(req, &resp); err != nil {
		return nil, nil, fmt.Errorf("failed to join room: %w", err)
	}
	return resp.Room, resp.Player, nil
}

// RoomState loads the board as this player is allowed to see it.
func (c *Client) RoomState(code string) (*codewords.Room, error) {
	req, err := http.NewRequest(http.MethodGet, c.url("/api/room/"+code), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to form request: %w", err)
	}

	var resp struct {
		Room *codewords.Room `json:"room"`
	}
	if err := c.do(req, &resp); err != nil {
		return nil, fmt.Errorf("failed to load room: %w", err)
	}
	return resp.Room, nil
}

func (c *Client) SelectTeam(code string, team codewords.Team) (*codewords.Room, error) {
	body := struct {
		Team codewords.Team `json:"team"`
	}{team}
	return c.roomOp(code, "team", toBody(body), "failed to select team")
}

// SetRole reports whether taking the spymaster seat demoted somebody.
func (c *Client) SetRole(code string, role codewords.Role) (*codewords.Room, bool, error) {
	body := struct {
		Role codewords.Role `json:"role"`
	}{role}

	req, err := http.NewRequest(http.MethodPost, c.roomURL(code, "role"), toBody(body))
	if err != nil {
		return nil, false, fmt.Errorf("failed to form request: %w", err)
	}

	var resp struct {
		Room              *codewords.Room `json:"room"`
		ReplacedSpymaster bool            `json:"replaced_spymaster"`
	}
	if err := c.do(req, &resp); err != nil {
		return nil, false, fmt.Errorf("failed to set role: %w", err)
	}
	return resp.Room, resp.ReplacedSpymaster, nil
}

func (c *Client) GiveHint(code, word string, count int) (*codewords.Room, error) {
	body := struct {
		Word  string `json:"word"`
		Count int    `json:"count"`
	}{word, count}
	return c.roomOp(code, "hint", toBody(body), "failed to give hint")
}

func (c *Client) RevealCard(code string, cardID int) (*codewords.Room, error) {
	body := struct {
		CardID int `json:"card_id"`
	}{cardID}
	return c.roomOp(code, "guess", toBody(body), "failed to guess")
}

// VoteCard signals which card this player wants revealed. It returns the
// tally for that card and whether it now holds a strict majority of the
// team's guessers.
func (c *Client) VoteCard(code string, cardID int) (int, bool, error) {
	body := struct {
		CardID int `json:"card_id"`
	}{cardID}

	req, err := http.NewRequest(http.MethodPost, c.roomURL(code, "vote"), toBody(body))
	if err != nil {
		return 0, false, fmt.Errorf("failed to form request: %w", err)
	}

	var resp struct {
		Votes    int  `json:"votes"`
		Majority bool `json:"majority"`
	}
	if err := c.do(req, &resp); err != nil {
		return 0, false, fmt.Errorf("failed to vote: %w", err)
	}
	return resp.Votes, resp.Majority, nil
}

func (c *Client) EndTurn(code string) (*codewords.Room, error) {
	return c.roomOp(code, "endTurn", nil, "failed to end turn")
}

func (c *Client) NewGame(code string) (*codewords.Room, error) {
	return c.roomOp(code, "newGame", nil, "failed to start new game")
}

func (c *Client) ToggleMic(code string) (*codewords.Room, error) {
	return c.roomOp(code, "mic", nil, "failed to toggle mic")
}

func (c *Client) LeaveRoom(code string) (*codewords.Room, error) {
	return c.roomOp(code, "leave", nil, "failed to leave room")
}

// roomOp covers the operations that just POST to a room and get the updated
// room back.
func (c *Client) roomOp(code, op string, body io.Reader, errMsg string) (*codewords.Room, error) {
	req, err := http.NewRequest(http.MethodPost, c.roomURL(code, op), body)
	if err != nil {
		return nil, fmt.Errorf("failed to form request: %w", err)
	}

	var resp struct {
		Room *codewords.Room `json:"room"`
	}
	if err := c.do(req, &resp); err != nil {
		return nil, fmt.Errorf("%s: %w", errMsg, err)
	}
	return resp.Room, nil
}

func (c *Client) url(path string) string {
	return c.scheme + "://" + c.addr + path
}

func (c *Client) roomURL(code, op string) string {
	return c.url("/api/room/" + code + "/" + op)
}

func (c *Client) do(req *http.Request, resp interface{}) error {
	if req.Body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	httpResp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer httpResp.Body.Close()
	if httpResp.StatusCode != http.StatusOK {
		return handleError(httpResp)
	}

	if resp != nil {
		if err := json.NewDecoder(httpResp.Body).Decode(resp); err != nil {
			return fmt.Errorf("failed to decode response body: %w", err)
		}
	}

	return nil
}

type httpError struct {
	statusCode int
	body       string
	err        error
}

func (h *httpError) Error() string {
	if h.err != nil {
		return fmt.Sprintf("[%d] failed to handle error: %v", h.statusCode, h.err)
	}
	return fmt.Sprintf("[%d] error from server: %s", h.statusCode, h.body)
}

func handleError(resp *http.Response) error {
	dat, err := io.ReadAll(resp.Body)
	if err != nil {
		return &httpError{
			statusCode: resp.StatusCode,
			err:        fmt.Errorf("failed to read error response body: %w", err),
		}
	}

	return &httpError{
		statusCode: resp.StatusCode,
		body:       string(dat),
	}
}

func toBody(req interface{}) io.Reader {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(req); err != nil {
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
