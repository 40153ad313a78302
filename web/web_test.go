package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bcspragu/Codewords"
	"github.com/bcspragu/Codewords/memstore"
	"github.com/bcspragu/Codewords/rooms"
	"github.com/google/go-cmp/cmp"
	"github.com/gorilla/mux"
	"github.com/gorilla/securecookie"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

func TestGameFlow(t *testing.T) {
	// Walks a whole game through the API end to end. The rules themselves
	// have modular coverage in the rooms package; this exercises the HTTP
	// plumbing around them.
	env := setup(t)

	for i := 0; i < 5; i++ {
		env.createPlayer(t)
	}

	code := env.createRoom(t, 0, "Alice")
	for i, name := range []string{"Bob", "Carol", "Dave", "Eve"} {
		env.joinRoom(t, code, i+1, name)
	}

	// Deal a known board so the rest of the flow is deterministic.
	env.fixBoard(t, code)

	env.selectTeam(t, code, 0, codewords.RedTeam)
	env.selectTeam(t, code, 1, codewords.RedTeam)
	env.selectTeam(t, code, 2, codewords.BlueTeam)
	env.selectTeam(t, code, 3, codewords.BlueTeam)

	if replaced := env.setRole(t, code, 0, codewords.SpymasterRole); replaced {
		t.Error("promoting into an empty slot reported a replacement")
	}
	env.setRole(t, code, 2, codewords.SpymasterRole)

	// A guesser's view hides unrevealed card types, a spymaster's doesn't.
	if got := env.room(t, code, 1).Card(0).Type; got != codewords.UnknownCard {
		t.Errorf("guesser saw card type %q, want hidden", got)
	}
	if got := env.room(t, code, 0).Card(0).Type; got != codewords.RedCard {
		t.Errorf("spymaster saw card type %q, want %q", got, codewords.RedCard)
	}

	rm := env.hint(t, code, 0, "ocean", 2)
	wantTurn := codewords.TurnState{
		Team:        codewords.RedTeam,
		Status:      codewords.Guessing,
		HintWord:    "ocean",
		HintCount:   2,
		GuessesLeft: 3,
	}
	if diff := cmp.Diff(wantTurn, rm.Turn); diff != "" {
		t.Errorf("unexpected turn after hint (-want +got)\n%s", diff)
	}

	// The lone red guesser's vote is instantly a majority.
	votes, majority := env.vote(t, code, 1, 0)
	if votes != 1 || !majority {
		t.Errorf("vote = (%d, %t), want (1, true)", votes, majority)
	}

	rm = env.guess(t, code, 1, 0)
	if !rm.Card(0).Revealed || rm.Card(0).RevealedBy != codewords.RedTeam {
		t.Errorf("card 0 after guess = %+v, want revealed by RED", rm.Card(0))
	}
	if rm.RedLeft != 8 || rm.Turn.GuessesLeft != 2 {
		t.Errorf("after own-color guess, RedLeft = %d, GuessesLeft = %d, want 8 and 2", rm.RedLeft, rm.Turn.GuessesLeft)
	}

	// Revealing a blue card on red's turn hands play over.
	rm = env.guess(t, code, 1, 9)
	if rm.Turn.Team != codewords.BlueTeam || rm.Turn.Status != codewords.WaitingHint {
		t.Errorf("turn after wrong-color guess = %+v, want blue waiting on a hint", rm.Turn)
	}
	if rm.BlueLeft != 7 {
		t.Errorf("BlueLeft = %d, want 7", rm.BlueLeft)
	}

	// Blue's guesser can pass even before their spymaster hints.
	rm = env.endTurn(t, code, 3)
	if rm.Turn.Team != codewords.RedTeam {
		t.Errorf("turn team after pass = %q, want %q", rm.Turn.Team, codewords.RedTeam)
	}

	rm = env.toggleMic(t, code, 4)
	if !rm.Player(env.ids[4]).MicMuted {
		t.Error("mic toggle didn't mute")
	}

	// Precondition errors surface as wrapped sentinels.
	if err := env.hintErr(code, 1, "ocean", 2); !errors.Is(err, codewords.ErrForbidden) {
		t.Errorf("hint from a guesser = %v, want ErrForbidden", err)
	}
	if err := env.setRoleErr(code, 4, codewords.SpymasterRole); !errors.Is(err, codewords.ErrTeamRequired) {
		t.Errorf("role without a team = %v, want ErrTeamRequired", err)
	}
	if err := env.joinErr("ZZZZZZ", 4, "Eve"); !errors.Is(err, codewords.ErrRoomNotFound) {
		t.Errorf("join of unknown room = %v, want ErrRoomNotFound", err)
	}

	rm = env.leave(t, code, 4)
	if rm.Player(env.ids[4]).Active {
		t.Error("player still active after leaving")
	}

	before := env.room(t, code, 0)
	rm = env.newGame(t, code, 0)
	if rm.Winner != codewords.NoTeam || len(rm.Hints) != 0 {
		t.Errorf("new game kept winner %q / %d hints", rm.Winner, len(rm.Hints))
	}
	if rm.Turn.Status != codewords.WaitingHint {
		t.Errorf("new game status = %q, want %q", rm.Turn.Status, codewords.WaitingHint)
	}
	if rm.RedLeft+rm.BlueLeft != 17 {
		t.Errorf("new game counters = %d+%d, want 17 total", rm.RedLeft, rm.BlueLeft)
	}
	if rm.Version <= before.Version {
		t.Errorf("version didn't move forward: %d -> %d", before.Version, rm.Version)
	}
	if len(rm.Players) != 5 {
		t.Errorf("new game has %d players, want the same 5", len(rm.Players))
	}
}

func TestErrStatus(t *testing.T) {
	tests := []struct {
		err        error
		wantStatus int
		wantCode   string
	}{
		{fmt.Errorf("%w: nope", codewords.ErrInvalidInput), http.StatusBadRequest, "INVALID_INPUT"},
		{fmt.Errorf("%w: GONE22", codewords.ErrRoomNotFound), http.StatusNotFound, "ROOM_NOT_FOUND"},
		{fmt.Errorf("%w: p9", codewords.ErrPlayerNotFound), http.StatusNotFound, "PLAYER_NOT_FOUND"},
		{codewords.ErrRoomExists, http.StatusConflict, "ROOM_EXISTS"},
		{codewords.ErrTeamRequired, http.StatusConflict, "TEAM_REQUIRED"},
		{codewords.ErrVersionConflict, http.StatusConflict, "VERSION_CONFLICT"},
		{codewords.ErrForbidden, http.StatusForbidden, "FORBIDDEN"},
		{errNoPlayer, http.StatusUnauthorized, "NO_PLAYER"},
		{errors.New("disk on fire"), http.StatusInternalServerError, "INTERNAL"},
	}

	for _, test := range tests {
		status, muxCode := errStatus(test.err)
		if status != test.wantStatus || muxCode != test.wantCode {
			t.Errorf("errStatus(%v) = (%d, %s), want (%d, %s)", test.err, status, muxCode, test.wantStatus, test.wantCode)
		}
	}
}

func TestSyncAPI(t *testing.T) {
	env := setup(t)

	rm := &codewords.Room{
		Code:    "SYNCAA",
		Version: 1,
		Cards: []codewords.Card{
			{ID: 0, Word: "apple", Type: codewords.RedCard},
		},
		Turn:      codewords.TurnState{Team: codewords.RedTeam, Status: codewords.WaitingHint},
		RedLeft:   1,
		CreatedAt: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
	}

	// Create.
	w := env.serve(t, http.MethodPost, "/api/sync/rooms", toBody(t, rm), nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("sync create = %d, want 201: %s", w.Code, w.Body.String())
	}
	if loc := w.Header().Get("Location"); loc != "/api/sync/rooms/SYNCAA" {
		t.Errorf("Location = %q", loc)
	}

	// Creating the same code again conflicts.
	w = env.serve(t, http.MethodPost, "/api/sync/rooms", toBody(t, rm), nil)
	if w.Code != http.StatusConflict {
		t.Errorf("duplicate sync create = %d, want 409", w.Code)
	}

	// Read it back, version rides in the ETag.
	w = env.serve(t, http.MethodGet, "/api/sync/rooms/SYNCAA", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("sync read = %d, want 200", w.Code)
	}
	if etag := w.Header().Get("ETag"); etag != `"1"` {
		t.Errorf("ETag = %q, want %q", etag, `"1"`)
	}
	var got codewords.Room
	fromBody(t, w, &got)
	if got.Code != "SYNCAA" || got.Version != 1 {
		t.Errorf("sync read returned %q v%d", got.Code, got.Version)
	}

	// Conditional write.
	rm.Version = 2
	rm.Turn.Status = codewords.Guessing
	w = env.serve(t, http.MethodPut, "/api/sync/rooms/SYNCAA", toBody(t, rm), map[string]string{"If-Match": `"1"`})
	if w.Code != http.StatusNoContent {
		t.Fatalf("sync update = %d, want 204: %s", w.Code, w.Body.String())
	}
	if etag := w.Header().Get("ETag"); etag != `"2"` {
		t.Errorf("ETag after update = %q, want %q", etag, `"2"`)
	}

	// A stale If-Match loses.
	rm.Version = 3
	w = env.serve(t, http.MethodPut, "/api/sync/rooms/SYNCAA", toBody(t, rm), map[string]string{"If-Match": `"1"`})
	if w.Code != http.StatusPreconditionFailed {
		t.Errorf("stale sync update = %d, want 412", w.Code)
	}

	// No If-Match at all is refused, not treated as unconditional.
	w = env.serve(t, http.MethodPut, "/api/sync/rooms/SYNCAA", toBody(t, rm), nil)
	if w.Code != http.StatusPreconditionRequired {
		t.Errorf("unconditional sync update = %d, want 428", w.Code)
	}

	// Body and URL must agree on the room.
	other := *rm
	other.Code = "OTHER2"
	w = env.serve(t, http.MethodPut, "/api/sync/rooms/SYNCAA", toBody(t, &other), map[string]string{"If-Match": `"2"`})
	if w.Code != http.StatusBadRequest {
		t.Errorf("mismatched sync update = %d, want 400", w.Code)
	}

	w = env.serve(t, http.MethodGet, "/api/sync/rooms/NOSUCH", nil, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("missing sync read = %d, want 404", w.Code)
	}
}

func TestRateLimit(t *testing.T) {
	env := setup(t)

	// With the default budget the request sails through the limiter and
	// fails on auth instead.
	w := env.serve(t, http.MethodPost, "/api/room", strings.NewReader(`{"name":"Al"}`), nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("request under the limit = %d, want 401", w.Code)
	}

	// With no budget it never reaches the handler.
	drained := setup(t)
	drained.srv.limit = 0
	drained.srv.burst = 0
	w = drained.serve(t, http.MethodPost, "/api/room", strings.NewReader(`{"name":"Al"}`), nil)
	if w.Code != http.StatusTooManyRequests {
		t.Errorf("request over the limit = %d, want 429", w.Code)
	}
}

func TestWSFeed(t *testing.T) {
	env := setup(t)
	env.createPlayer(t)
	code := env.createRoom(t, 0, "Alice")

	ts := httptest.NewServer(env.srv)
	defer ts.Close()

	// Anonymous subscriber.
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(ts, code), nil)
	if err != nil {
		t.Fatalf("failed to dial feed: %v", err)
	}
	defer conn.Close()

	frame := readFrame(t, conn)
	if frame.Action != ActionRoomState || frame.Event != EventSnapshot {
		t.Fatalf("first frame = %s/%s, want %s/%s", frame.Action, frame.Event, ActionRoomState, EventSnapshot)
	}
	if frame.Room.Code != code {
		t.Errorf("snapshot for room %q, want %q", frame.Room.Code, code)
	}
	for _, c := range frame.Room.Cards {
		if c.Type != codewords.UnknownCard {
			t.Fatalf("anonymous snapshot leaked card type %q", c.Type)
		}
	}

	// Give registration a beat to land before mutating.
	time.Sleep(100 * time.Millisecond)

	env.toggleMic(t, code, 0)

	frame = readFrame(t, conn)
	if frame.Event != EventMicToggled {
		t.Errorf("update event = %q, want %q", frame.Event, EventMicToggled)
	}
	if !frame.Room.Player(env.ids[0]).MicMuted {
		t.Error("update frame doesn't show the mute")
	}
}

func TestWSFeed_SpymasterView(t *testing.T) {
	env := setup(t)
	env.createPlayer(t)
	code := env.createRoom(t, 0, "Alice")
	env.selectTeam(t, code, 0, codewords.RedTeam)
	env.setRole(t, code, 0, codewords.SpymasterRole)

	ts := httptest.NewServer(env.srv)
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(ts, code), nil)
	if err != nil {
		t.Fatalf("failed to dial feed: %v", err)
	}
	defer conn.Close()
	if frame := readFrame(t, conn); frame.Event != EventSnapshot {
		t.Fatalf("first frame event = %q, want snapshot", frame.Event)
	}

	// The spymaster's own subscription carries their identity.
	spyConn, _, err := websocket.DefaultDialer.Dial(wsURL(ts, code), http.Header{
		"Cookie": []string{AuthCookie + "=" + env.auth[0]},
	})
	if err != nil {
		t.Fatalf("failed to dial feed as spymaster: %v", err)
	}
	defer spyConn.Close()

	frame := readFrame(t, spyConn)
	if frame.Event != EventSnapshot {
		t.Fatalf("spymaster first frame event = %q, want snapshot", frame.Event)
	}
	if frame.Room.Card(0).Type == codewords.UnknownCard {
		t.Error("spymaster snapshot hides card types")
	}

	time.Sleep(100 * time.Millisecond)

	env.toggleMic(t, code, 0)

	// Everyone gets the redacted broadcast; the spymaster gets a second
	// frame with the board visible.
	redacted := readFrame(t, spyConn)
	if redacted.Event != EventMicToggled {
		t.Fatalf("broadcast event = %q, want %q", redacted.Event, EventMicToggled)
	}
	if got := redacted.Room.Card(0).Type; got != codewords.UnknownCard {
		t.Errorf("broadcast frame shows card type %q, want hidden", got)
	}
	full := readFrame(t, spyConn)
	if full.Event != EventMicToggled {
		t.Fatalf("targeted event = %q, want %q", full.Event, EventMicToggled)
	}
	if full.Room.Card(0).Type == codewords.UnknownCard {
		t.Error("targeted spymaster frame hides card types")
	}

	// The anonymous subscriber only ever sees the redacted broadcast.
	anon := readFrame(t, conn)
	if got := anon.Room.Card(0).Type; got != codewords.UnknownCard {
		t.Errorf("anonymous frame shows card type %q, want hidden", got)
	}
}

type wsFrame struct {
	Action string          `json:"action"`
	Event  string          `json:"event"`
	Room   *codewords.Room `json:"room"`
}

func readFrame(t *testing.T, conn *websocket.Conn) *wsFrame {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("failed to read feed frame: %v", err)
	}
	var frame wsFrame
	if err := json.Unmarshal(msg, &frame); err != nil {
		t.Fatalf("failed to decode feed frame: %v", err)
	}
	return &frame
}

func wsURL(ts *httptest.Server, code string) string {
	return "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/room/" + code + "/ws"
}

type testEnv struct {
	store *memstore.Store
	srv   *Srv
	auth  []string
	ids   []codewords.PlayerID
}

func setup(t *testing.T) *testEnv {
	t.Helper()

	store := memstore.New()
	mgr, err := rooms.New(store, codewords.Words, rand.New(rand.NewSource(0)))
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}

	return &testEnv{
		store: store,
		srv:   New(mgr, store, setupCookies(), zerolog.Nop()),
	}
}

func setupCookies() *securecookie.SecureCookie {
	return securecookie.New(
		[]byte{
			1, 2, 3, 4, 5, 6, 7, 8,
			9, 10, 11, 12, 13, 14, 15, 16,
			17, 18, 19, 20, 21, 22, 23, 24,
			25, 26, 27, 28, 29, 30, 31, 32,
		},
		[]byte{
			33, 34, 35, 36, 37, 38, 39, 40,
			41, 42, 43, 44, 45, 46, 47, 48,
			49, 50, 51, 52, 53, 54, 55, 56,
			57, 58, 59, 60, 61, 62, 63, 64,
		})
}

// serve runs a request through the full router, limiter and all.
func (env *testEnv) serve(t *testing.T, method, path string, body io.Reader, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	r := httptest.NewRequest(method, path, body)
	for k, v := range headers {
		r.Header.Set(k, v)
	}
	env.srv.ServeHTTP(w, r)
	return w
}

func (env *testEnv) createPlayer(t *testing.T) {
	t.Helper()

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/api/player", nil)
	if err := env.srv.serveCreatePlayer(w, r); err != nil {
		t.Fatalf("failed to create player: %v", err)
	}

	set := w.Header().Get("Set-Cookie")
	if !strings.HasPrefix(set, AuthCookie+"=") {
		t.Fatalf("malformed identity cookie %q", set)
	}
	val := strings.TrimPrefix(strings.SplitN(set, ";", 2)[0], AuthCookie+"=")
	env.auth = append(env.auth, val)

	var resp struct {
		PlayerID codewords.PlayerID `json:"player_id"`
	}
	fromBody(t, w, &resp)
	if resp.PlayerID == "" {
		t.Fatal("create player minted an empty id")
	}
	env.ids = append(env.ids, resp.PlayerID)
}

type roomResp struct {
	Room              *codewords.Room   `json:"room"`
	Player            *codewords.Player `json:"player"`
	ReplacedSpymaster bool              `json:"replaced_spymaster"`
}

// op invokes a mutating room handler the way the router would, identity
// decoded from the given player's cookie.
func (env *testEnv) op(code string, authIdx int, body interface{}, fn func(http.ResponseWriter, *http.Request, codewords.PlayerID) error) (*roomResp, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, err
		}
	}

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/", &buf)
	r = mux.SetURLVars(r, map[string]string{"code": code})
	env.addAuth(r, authIdx)

	if err := env.srv.withPlayer(fn)(w, r); err != nil {
		return nil, err
	}

	var resp roomResp
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (env *testEnv) createRoom(t *testing.T, authIdx int, name string) string {
	t.Helper()
	resp, err := env.op("", authIdx, struct {
		Name string `json:"name"`
	}{name}, env.srv.serveCreateRoom)
	if err != nil {
		t.Fatalf("failed to create room: %v", err)
	}
	if resp.Player == nil || resp.Player.ID != env.ids[authIdx] {
		t.Fatalf("room creator = %+v, want player %q", resp.Player, env.ids[authIdx])
	}
	return resp.Room.Code
}

func (env *testEnv) joinRoom(t *testing.T, code string, authIdx int, name string) {
	t.Helper()
	if _, err := env.op(code, authIdx, struct {
		Name string `json:"name"`
	}{name}, env.srv.serveJoinRoom); err != nil {
		t.Fatalf("failed to join room: %v", err)
	}
}

func (env *testEnv) joinErr(code string, authIdx int, name string) error {
	_, err := env.op(code, authIdx, struct {
		Name string `json:"name"`
	}{name}, env.srv.serveJoinRoom)
	return err
}

func (env *testEnv) selectTeam(t *testing.T, code string, authIdx int, team codewords.Team) {
	t.Helper()
	if _, err := env.op(code, authIdx, struct {
		Team codewords.Team `json:"team"`
	}{team}, env.srv.serveSelectTeam); err != nil {
		t.Fatalf("failed to select team: %v", err)
	}
}

func (env *testEnv) setRole(t *testing.T, code string, authIdx int, role codewords.Role) bool {
	t.Helper()
	resp, err := env.op(code, authIdx, struct {
		Role codewords.Role `json:"role"`
	}{role}, env.srv.serveSetRole)
	if err != nil {
		t.Fatalf("failed to set role: %v", err)
	}
	return resp.ReplacedSpymaster
}

func (env *testEnv) setRoleErr(code string, authIdx int, role codewords.Role) error {
	_, err := env.op(code, authIdx, struct {
		Role codewords.Role `json:"role"`
	}{role}, env.srv.serveSetRole)
	return err
}

func (env *testEnv) hint(t *testing.T, code string, authIdx int, word string, count int) *codewords.Room {
	t.Helper()
	resp, err := env.op(code, authIdx, struct {
		Word  string `json:"word"`
		Count int    `json:"count"`
	}{word, count}, env.srv.serveHint)
	if err != nil {
		t.Fatalf("failed to send hint: %v", err)
	}
	return resp.Room
}

func (env *testEnv) hintErr(code string, authIdx int, word string, count int) error {
	_, err := env.op(code, authIdx, struct {
		Word  string `json:"word"`
		Count int    `json:"count"`
	}{word, count}, env.srv.serveHint)
	return err
}

func (env *testEnv) guess(t *testing.T, code string, authIdx int, cardID int) *codewords.Room {
	t.Helper()
	resp, err := env.op(code, authIdx, struct {
		CardID int `json:"card_id"`
	}{cardID}, env.srv.serveGuess)
	if err != nil {
		t.Fatalf("failed to guess: %v", err)
	}
	return resp.Room
}

func (env *testEnv) vote(t *testing.T, code string, authIdx int, cardID int) (int, bool) {
	t.Helper()

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(struct {
		CardID int `json:"card_id"`
	}{cardID}); err != nil {
		t.Fatalf("failed to encode vote: %v", err)
	}

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/", &buf)
	r = mux.SetURLVars(r, map[string]string{"code": code})
	env.addAuth(r, authIdx)

	if err := env.srv.withPlayer(env.srv.serveVote)(w, r); err != nil {
		t.Fatalf("failed to vote: %v", err)
	}

	var resp struct {
		Votes    int  `json:"votes"`
		Majority bool `json:"majority"`
	}
	fromBody(t, w, &resp)
	return resp.Votes, resp.Majority
}

func (env *testEnv) endTurn(t *testing.T, code string, authIdx int) *codewords.Room {
	t.Helper()
	resp, err := env.op(code, authIdx, nil, env.srv.serveEndTurn)
	if err != nil {
		t.Fatalf("failed to end turn: %v", err)
	}
	return resp.Room
}

func (env *testEnv) newGame(t *testing.T, code string, authIdx int) *codewords.Room {
	t.Helper()
	resp, err := env.op(code, authIdx, nil, env.srv.serveNewGame)
	if err != nil {
		t.Fatalf("failed to start a new game: %v", err)
	}
	return resp.Room
}

func (env *testEnv) toggleMic(t *testing.T, code string, authIdx int) *codewords.Room {
	t.Helper()
	resp, err := env.op(code, authIdx, nil, env.srv.serveToggleMic)
	if err != nil {
		t.Fatalf("failed to toggle mic: %v", err)
	}
	return resp.Room
}

func (env *testEnv) leave(t *testing.T, code string, authIdx int) *codewords.Room {
	t.Helper()
	resp, err := env.op(code, authIdx, nil, env.srv.serveLeaveRoom)
	if err != nil {
		t.Fatalf("failed to leave room: %v", err)
	}
	return resp.Room
}

func (env *testEnv) room(t *testing.T, code string, authIdx int) *codewords.Room {
	t.Helper()

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r = mux.SetURLVars(r, map[string]string{"code": code})
	env.addAuth(r, authIdx)

	if err := env.srv.serveRoom(w, r); err != nil {
		t.Fatalf("failed to get room: %v", err)
	}

	var resp roomResp
	fromBody(t, w, &resp)
	return resp.Room
}

// fixBoard overwrites the room's deck with a known layout: cards 0-8 red,
// 9-16 blue, 17-23 neutral, 24 the assassin, red to move.
func (env *testEnv) fixBoard(t *testing.T, code string) {
	t.Helper()
	ctx := context.Background()

	rm, err := env.store.Room(ctx, code)
	if err != nil {
		t.Fatalf("failed to load room: %v", err)
	}

	from := rm.Version
	rm.Cards = rm.Cards[:0]
	for i := 0; i < codewords.DeckSize; i++ {
		ct := codewords.NeutralCard
		switch {
		case i < 9:
			ct = codewords.RedCard
		case i < 17:
			ct = codewords.BlueCard
		case i == 24:
			ct = codewords.AssassinCard
		}
		rm.Cards = append(rm.Cards, codewords.Card{ID: i, Word: fmt.Sprintf("word%02d", i), Type: ct})
	}
	rm.StartingTeam = codewords.RedTeam
	rm.Turn = codewords.TurnState{Team: codewords.RedTeam, Status: codewords.WaitingHint}
	rm.RedLeft, rm.BlueLeft = 9, 8
	rm.Version++

	if err := env.store.UpdateRoom(ctx, rm, from); err != nil {
		t.Fatalf("failed to fix board: %v", err)
	}
}

func (env *testEnv) addAuth(r *http.Request, authIdx int) {
	r.AddCookie(&http.Cookie{
		Name:  AuthCookie,
		Value: env.auth[authIdx],
	})
}

func toBody(t *testing.T, body interface{}) io.Reader {
	t.Helper()
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		t.Fatalf("failed to encode body: %v", err)
	}
	return &buf
}

func fromBody(t *testing.T, w *httptest.ResponseRecorder, resp interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(resp); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
}
