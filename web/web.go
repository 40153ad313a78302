// Package web is the HTTP surface of a Codewords server: the JSON game API,
// the websocket room feed, QR join links, and the key-value sync API that
// remote stores consume.
package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"

	"github.com/bcspragu/Codewords"
	"github.com/bcspragu/Codewords/consensus"
	"github.com/bcspragu/Codewords/hub"
	"github.com/bcspragu/Codewords/rooms"
	"github.com/bcspragu/Codewords/wsrpc"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/securecookie"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/skip2/go-qrcode"
	"golang.org/x/time/rate"
)

// AuthCookie is the name of the identity cookie minted by the player
// endpoint. Clients that persist identities store its value.
const AuthCookie = "Authorization"

const (
	qrSize = 320

	// Per-IP budget for mutating requests. Generous for humans clicking
	// cards, tight enough to blunt scripted spam.
	defaultRateLimit = rate.Limit(25)
	defaultRateBurst = 50
)

// errNoPlayer means the request carried no usable identity cookie.
var errNoPlayer = errors.New("web: no player identity")

type Srv struct {
	sc    *securecookie.SecureCookie
	h     *hub.Hub
	mux   *mux.Router
	mgr   *rooms.Manager
	store codewords.Store
	votes *consensus.Tracker
	log   zerolog.Logger

	upgrader websocket.Upgrader

	limit rate.Limit
	burst int

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// New returns an initialized server over the given manager. store backs the
// sync API for remote-store clients; pass nil to not expose it.
func New(mgr *rooms.Manager, store codewords.Store, sc *securecookie.SecureCookie, logger zerolog.Logger) *Srv {
	s := &Srv{
		sc:       sc,
		h:        hub.New(),
		mgr:      mgr,
		store:    store,
		votes:    consensus.New(),
		log:      logger,
		limit:    defaultRateLimit,
		burst:    defaultRateBurst,
		limiters: make(map[string]*rate.Limiter),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The room code is the only credential, same as the rest of
			// the API, so any origin may subscribe.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}

	s.mux = s.initMux()

	return s
}

func (s *Srv) initMux() *mux.Router {
	m := mux.NewRouter()
	// Identity.
	m.HandleFunc("/api/player", s.handle(s.serveCreatePlayer)).Methods("POST")
	m.HandleFunc("/api/player", s.handle(s.servePlayer)).Methods("GET")
	// New room.
	m.HandleFunc("/api/room", s.rateLimited(s.handle(s.withPlayer(s.serveCreateRoom)))).Methods("POST")
	// Room snapshot, redacted for the viewer.
	m.HandleFunc("/api/room/{code}", s.handle(s.serveRoom)).Methods("GET")
	// Join link QR code.
	m.HandleFunc("/api/room/{code}/qr.png", s.handle(s.serveQR)).Methods("GET")
	// Game operations.
	s.gameOp(m, "join", s.serveJoinRoom)
	s.gameOp(m, "team", s.serveSelectTeam)
	s.gameOp(m, "role", s.serveSetRole)
	s.gameOp(m, "hint", s.serveHint)
	s.gameOp(m, "guess", s.serveGuess)
	s.gameOp(m, "vote", s.serveVote)
	s.gameOp(m, "endTurn", s.serveEndTurn)
	s.gameOp(m, "newGame", s.serveNewGame)
	s.gameOp(m, "mic", s.serveToggleMic)
	s.gameOp(m, "leave", s.serveLeaveRoom)
	// WebSocket feed for rooms.
	m.HandleFunc("/api/room/{code}/ws", s.handle(s.serveWS)).Methods("GET")

	// Key-value sync API, spoken by reststore and wsrpc clients. It's a
	// raw store passthrough for trusted backends, not part of the game API.
	if s.store != nil {
		m.HandleFunc("/api/sync/rooms", s.serveSyncCreate).Methods("POST")
		m.HandleFunc("/api/sync/rooms/{code}", s.serveSyncRoom).Methods("GET")
		m.HandleFunc("/api/sync/rooms/{code}", s.serveSyncUpdate).Methods("PUT")
		m.Handle("/api/sync/ws", wsrpc.NewServer(s.store, s.log)).Methods("GET")
	}

	return m
}

// gameOp mounts a mutating room operation: rate limited, identity required.
func (s *Srv) gameOp(m *mux.Router, name string, fn func(http.ResponseWriter, *http.Request, codewords.PlayerID) error) {
	m.HandleFunc("/api/room/{code}/"+name, s.rateLimited(s.handle(s.withPlayer(fn)))).Methods("POST")
}

func (s *Srv) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

type handlerFunc func(w http.ResponseWriter, r *http.Request) error

// handle adapts an error-returning handler, mapping sentinel errors to
// status codes and logging everything else as a server fault.
func (s *Srv) handle(fn handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := fn(w, r)
		if err == nil {
			return
		}
		status, code := errStatus(err)
		if status >= http.StatusInternalServerError {
			s.log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if err := json.NewEncoder(w).Encode(struct {
			Error string `json:"error"`
			Code  string `json:"code"`
		}{err.Error(), code}); err != nil {
			s.log.Err(err).Msg("failed to encode error response")
		}
	}
}

func errStatus(err error) (int, string) {
	switch {
	case errors.Is(err, errNoPlayer):
		return http.StatusUnauthorized, "NO_PLAYER"
	case errors.Is(err, codewords.ErrInvalidInput):
		return http.StatusBadRequest, "INVALID_INPUT"
	case errors.Is(err, codewords.ErrRoomNotFound):
		return http.StatusNotFound, "ROOM_NOT_FOUND"
	case errors.Is(err, codewords.ErrPlayerNotFound):
		return http.StatusNotFound, "PLAYER_NOT_FOUND"
	case errors.Is(err, codewords.ErrRoomExists):
		return http.StatusConflict, "ROOM_EXISTS"
	case errors.Is(err, codewords.ErrTeamRequired):
		return http.StatusConflict, "TEAM_REQUIRED"
	case errors.Is(err, codewords.ErrVersionConflict):
		return http.StatusConflict, "VERSION_CONFLICT"
	case errors.Is(err, codewords.ErrForbidden):
		return http.StatusForbidden, "FORBIDDEN"
	}
	return http.StatusInternalServerError, "INTERNAL"
}

// withPlayer decodes the identity cookie and hands the player ID to the
// handler, rejecting requests that don't carry one.
func (s *Srv) withPlayer(fn func(w http.ResponseWriter, r *http.Request, pID codewords.PlayerID) error) handlerFunc {
	return func(w http.ResponseWriter, r *http.Request) error {
		pID, ok := s.playerID(r)
		if !ok {
			return errNoPlayer
		}
		return fn(w, r, pID)
	}
}

func (s *Srv) playerID(r *http.Request) (codewords.PlayerID, bool) {
	c, err := r.Cookie(AuthCookie)
	if err != nil {
		return "", false
	}

	var pID codewords.PlayerID
	if err := s.sc.Decode("player", c.Value, &pID); err != nil {
		// If we can't parse it, assume it's an old cookie and treat the
		// caller as anonymous.
		return "", false
	}
	return pID, pID != ""
}

func (s *Srv) serveCreatePlayer(w http.ResponseWriter, r *http.Request) error {
	if pID, ok := s.playerID(r); ok {
		// Minting is idempotent, the caller keeps their identity.
		s.jsonResp(w, struct {
			PlayerID codewords.PlayerID `json:"player_id"`
		}{pID})
		return nil
	}

	pID := codewords.PlayerID(uuid.NewString())
	encoded, err := s.sc.Encode("player", pID)
	if err != nil {
		return fmt.Errorf("failed to encode player cookie: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     AuthCookie,
		Value:    encoded,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	s.jsonResp(w, struct {
		PlayerID codewords.PlayerID `json:"player_id"`
	}{pID})
	return nil
}

func (s *Srv) servePlayer(w http.ResponseWriter, r *http.Request) error {
	pID, ok := s.playerID(r)
	if !ok {
		return errNoPlayer
	}
	s.jsonResp(w, struct {
		PlayerID codewords.PlayerID `json:"player_id"`
	}{pID})
	return nil
}

func (s *Srv) serveCreateRoom(w http.ResponseWriter, r *http.Request, pID codewords.PlayerID) error {
	var req struct {
		Name string `json:"name"`
	}
	if err := decode(r, &req); err != nil {
		return err
	}

	rm, p, err := s.mgr.CreateRoom(r.Context(), pID, req.Name)
	if err != nil {
		return err
	}

	s.jsonResp(w, struct {
		Room   *codewords.Room   `json:"room"`
		Player *codewords.Player `json:"player"`
	}{rm.Redacted(pID), p})
	return nil
}

func (s *Srv) serveRoom(w http.ResponseWriter, r *http.Request) error {
	// Anonymous viewers are fine, they just get the fully redacted board.
	pID, _ := s.playerID(r)

	rm, err := s.mgr.RoomState(r.Context(), mux.Vars(r)["code"])
	if err != nil {
		return err
	}

	s.jsonResp(w, struct {
		Room *codewords.Room `json:"room"`
	}{rm.Redacted(pID)})
	return nil
}

func (s *Srv) serveJoinRoom(w http.ResponseWriter, r *http.Request, pID codewords.PlayerID) error {
	var req struct {
		Name string `json:"name"`
	}
	if err := decode(r, &req); err != nil {
		return err
	}

	rm, p, err := s.mgr.JoinRoom(r.Context(), mux.Vars(r)["code"], pID, req.Name)
	if err != nil {
		return err
	}
	s.pushRoom(rm, EventPlayerJoined)

	s.jsonResp(w, struct {
		Room   *codewords.Room   `json:"room"`
		Player *codewords.Player `json:"player"`
	}{rm.Redacted(pID), p})
	return nil
}

func (s *Srv) serveSelectTeam(w http.ResponseWriter, r *http.Request, pID codewords.PlayerID) error {
	var req struct {
		Team codewords.Team `json:"team"`
	}
	if err := decode(r, &req); err != nil {
		return err
	}

	rm, err := s.mgr.SelectTeam(r.Context(), mux.Vars(r)["code"], pID, req.Team)
	if err != nil {
		return err
	}
	s.pushRoom(rm, EventTeamSelected)

	s.jsonResp(w, struct {
		Room *codewords.Room `json:"room"`
	}{rm.Redacted(pID)})
	return nil
}

func (s *Srv) serveSetRole(w http.ResponseWriter, r *http.Request, pID codewords.PlayerID) error {
	var req struct {
		Role codewords.Role `json:"role"`
	}
	if err := decode(r, &req); err != nil {
		return err
	}

	rm, replaced, err := s.mgr.SetRole(r.Context(), mux.Vars(r)["code"], pID, req.Role)
	if err != nil {
		return err
	}
	s.pushRoom(rm, EventRoleChanged)

	s.jsonResp(w, struct {
		Room              *codewords.Room `json:"room"`
		ReplacedSpymaster bool            `json:"replaced_spymaster"`
	}{rm.Redacted(pID), replaced})
	return nil
}

func (s *Srv) serveHint(w http.ResponseWriter, r *http.Request, pID codewords.PlayerID) error {
	var req struct {
		Word  string `json:"word"`
		Count int    `json:"count"`
	}
	if err := decode(r, &req); err != nil {
		return err
	}

	rm, err := s.mgr.SendHint(r.Context(), mux.Vars(r)["code"], pID, req.Word, req.Count)
	if err != nil {
		return err
	}
	// A fresh guessing phase, old nominations are moot.
	s.votes.Clear(rm.Code)
	s.pushRoom(rm, EventHintGiven)

	s.jsonResp(w, struct {
		Room *codewords.Room `json:"room"`
	}{rm.Redacted(pID)})
	return nil
}

func (s *Srv) serveGuess(w http.ResponseWriter, r *http.Request, pID codewords.PlayerID) error {
	var req struct {
		CardID int `json:"card_id"`
	}
	if err := decode(r, &req); err != nil {
		return err
	}

	rm, err := s.mgr.RevealCard(r.Context(), mux.Vars(r)["code"], pID, req.CardID)
	if err != nil {
		return err
	}
	s.votes.Clear(rm.Code)
	s.pushRoom(rm, EventCardRevealed)

	s.jsonResp(w, struct {
		Room *codewords.Room `json:"room"`
	}{rm.Redacted(pID)})
	return nil
}

func (s *Srv) serveVote(w http.ResponseWriter, r *http.Request, pID codewords.PlayerID) error {
	var req struct {
		CardID int `json:"card_id"`
	}
	if err := decode(r, &req); err != nil {
		return err
	}

	rm, err := s.mgr.RoomState(r.Context(), mux.Vars(r)["code"])
	if err != nil {
		return err
	}
	p := rm.Player(pID)
	if p == nil {
		return fmt.Errorf("%w: %q in room %s", codewords.ErrPlayerNotFound, pID, rm.Code)
	}
	if p.Team == codewords.NoTeam {
		return fmt.Errorf("%w: pick a team before voting", codewords.ErrTeamRequired)
	}
	if p.Role != codewords.GuesserRole {
		return fmt.Errorf("%w: spymasters don't vote on cards", codewords.ErrForbidden)
	}
	c := rm.Card(req.CardID)
	if c == nil || c.Revealed {
		return fmt.Errorf("%w: card %d isn't on the board to vote for", codewords.ErrInvalidInput, req.CardID)
	}

	s.votes.RecordVote(rm.Code, p.Team, pID, req.CardID)
	n := s.votes.Votes(rm.Code, p.Team, req.CardID)
	winner, ok := s.votes.Consensus(rm.Code, p.Team, activeGuessers(rm, p.Team))
	majority := ok && winner == req.CardID

	if err := s.h.ToRoom(rm.Code, &CardVote{
		PlayerID: pID,
		Name:     p.Name,
		Team:     p.Team,
		CardID:   req.CardID,
		Votes:    n,
		Majority: majority,
	}); err != nil {
		s.log.Err(err).Str("room", rm.Code).Msg("failed to broadcast vote")
	}

	s.jsonResp(w, struct {
		Votes    int  `json:"votes"`
		Majority bool `json:"majority"`
	}{n, majority})
	return nil
}

func (s *Srv) serveEndTurn(w http.ResponseWriter, r *http.Request, pID codewords.PlayerID) error {
	rm, err := s.mgr.EndTurn(r.Context(), mux.Vars(r)["code"], pID)
	if err != nil {
		return err
	}
	s.votes.Clear(rm.Code)
	s.pushRoom(rm, EventTurnEnded)

	s.jsonResp(w, struct {
		Room *codewords.Room `json:"room"`
	}{rm.Redacted(pID)})
	return nil
}

func (s *Srv) serveNewGame(w http.ResponseWriter, r *http.Request, pID codewords.PlayerID) error {
	rm, err := s.mgr.ResetGame(r.Context(), mux.Vars(r)["code"], pID)
	if err != nil {
		return err
	}
	s.votes.Clear(rm.Code)
	s.pushRoom(rm, EventNewGame)

	s.jsonResp(w, struct {
		Room *codewords.Room `json:"room"`
	}{rm.Redacted(pID)})
	return nil
}

func (s *Srv) serveToggleMic(w http.ResponseWriter, r *http.Request, pID codewords.PlayerID) error {
	rm, err := s.mgr.ToggleMic(r.Context(), mux.Vars(r)["code"], pID)
	if err != nil {
		return err
	}
	s.pushRoom(rm, EventMicToggled)

	s.jsonResp(w, struct {
		Room *codewords.Room `json:"room"`
	}{rm.Redacted(pID)})
	return nil
}

func (s *Srv) serveLeaveRoom(w http.ResponseWriter, r *http.Request, pID codewords.PlayerID) error {
	rm, err := s.mgr.LeaveRoom(r.Context(), mux.Vars(r)["code"], pID)
	if err != nil {
		return err
	}
	s.pushRoom(rm, EventPlayerLeft)

	s.jsonResp(w, struct {
		Room *codewords.Room `json:"room"`
	}{rm.Redacted(pID)})
	return nil
}

// serveQR renders the room's join link as a PNG QR code, sized for phones.
func (s *Srv) serveQR(w http.ResponseWriter, r *http.Request) error {
	rm, err := s.mgr.RoomState(r.Context(), mux.Vars(r)["code"])
	if err != nil {
		return err
	}

	// Derive the scheme, respecting TLS and X-Forwarded-Proto if present.
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}

	png, err := qrcode.Encode(scheme+"://"+r.Host+"/room/"+rm.Code, qrcode.Medium, qrSize)
	if err != nil {
		return fmt.Errorf("failed to encode QR code: %w", err)
	}

	w.Header().Set("Content-Type", "image/png")
	if _, err := w.Write(png); err != nil {
		s.log.Err(err).Msg("failed to write QR code")
	}
	return nil
}

func (s *Srv) serveWS(w http.ResponseWriter, r *http.Request) error {
	rm, err := s.mgr.RoomState(r.Context(), mux.Vars(r)["code"])
	if err != nil {
		return err
	}
	pID, _ := s.playerID(r)

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied to the client.
		return nil
	}

	// Hand the subscriber the current state before the hub owns the
	// connection; everything after this write goes through the pumps.
	if err := ws.WriteJSON(&RoomUpdate{Event: EventSnapshot, Room: rm.Redacted(pID)}); err != nil {
		ws.Close()
		return nil
	}
	s.h.Register(ws, rm.Code, pID)
	return nil
}

// pushRoom fans the new state out to the room's feed. Everyone gets the
// redacted board; seated spymasters get a follow-up frame with card types.
func (s *Srv) pushRoom(rm *codewords.Room, event string) {
	if err := s.h.ToRoom(rm.Code, &RoomUpdate{Event: event, Room: rm.Redacted("")}); err != nil {
		s.log.Err(err).Str("room", rm.Code).Msg("failed to broadcast room update")
	}
	for _, pID := range []codewords.PlayerID{rm.RedSpymaster, rm.BlueSpymaster} {
		if pID == "" {
			continue
		}
		if err := s.h.ToPlayer(rm.Code, pID, &RoomUpdate{Event: event, Room: rm.Clone()}); err != nil {
			s.log.Err(err).Str("room", rm.Code).Msg("failed to send spymaster update")
		}
	}
}

func activeGuessers(rm *codewords.Room, team codewords.Team) int {
	n := 0
	for _, p := range rm.Players {
		if p.Active && p.Team == team && p.Role == codewords.GuesserRole {
			n++
		}
	}
	return n
}

// rateLimited rejects callers who burn through their per-IP budget.
func (s *Srv) rateLimited(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter(clientIP(r)).Allow() {
			http.Error(w, "too many requests", http.StatusTooManyRequests)
			return
		}
		next(w, r)
	}
}

func (s *Srv) limiter(ip string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.limiters[ip]
	if !ok {
		l = rate.NewLimiter(s.limit, s.burst)
		s.limiters[ip] = l
	}
	return l
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			fwd = fwd[:i]
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func decode(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: bad request body: %v", codewords.ErrInvalidInput, err)
	}
	return nil
}

func (s *Srv) jsonResp(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Err(err).Msg("failed to encode response")
	}
}
