package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/bcspragu/Codewords"
	"github.com/gorilla/mux"
)

// The sync API exposes the raw store as HTTP: POST creates a room document,
// GET reads one back with its version as the ETag, and PUT is the conditional
// write, requiring If-Match with the version the caller read. A stale
// If-Match fails with 412, which is how remote stores learn they lost a race.

func (s *Srv) serveSyncCreate(w http.ResponseWriter, r *http.Request) {
	var rm codewords.Room
	if err := json.NewDecoder(r.Body).Decode(&rm); err != nil {
		http.Error(w, fmt.Sprintf("bad room document: %v", err), http.StatusBadRequest)
		return
	}

	switch err := s.store.CreateRoom(r.Context(), &rm); {
	case errors.Is(err, codewords.ErrRoomExists):
		http.Error(w, err.Error(), http.StatusConflict)
		return
	case err != nil:
		s.log.Err(err).Str("room", rm.Code).Msg("sync create failed")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Location", "/api/sync/rooms/"+rm.Code)
	w.WriteHeader(http.StatusCreated)
}

func (s *Srv) serveSyncRoom(w http.ResponseWriter, r *http.Request) {
	rm, err := s.store.Room(r.Context(), mux.Vars(r)["code"])
	switch {
	case errors.Is(err, codewords.ErrRoomNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	case err != nil:
		s.log.Err(err).Str("room", mux.Vars(r)["code"]).Msg("sync read failed")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("ETag", versionETag(rm.Version))
	s.jsonResp(w, rm)
}

func (s *Srv) serveSyncUpdate(w http.ResponseWriter, r *http.Request) {
	match := r.Header.Get("If-Match")
	if match == "" {
		http.Error(w, "conditional write requires If-Match", http.StatusPreconditionRequired)
		return
	}
	fromVersion, err := parseVersionETag(match)
	if err != nil {
		http.Error(w, fmt.Sprintf("bad If-Match: %v", err), http.StatusBadRequest)
		return
	}

	var rm codewords.Room
	if err := json.NewDecoder(r.Body).Decode(&rm); err != nil {
		http.Error(w, fmt.Sprintf("bad room document: %v", err), http.StatusBadRequest)
		return
	}
	if rm.Code != mux.Vars(r)["code"] {
		http.Error(w, "room code doesn't match the URL", http.StatusBadRequest)
		return
	}

	switch err := s.store.UpdateRoom(r.Context(), &rm, fromVersion); {
	case errors.Is(err, codewords.ErrRoomNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	case errors.Is(err, codewords.ErrVersionConflict):
		http.Error(w, err.Error(), http.StatusPreconditionFailed)
		return
	case err != nil:
		s.log.Err(err).Str("room", rm.Code).Msg("sync update failed")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("ETag", versionETag(rm.Version))
	w.WriteHeader(http.StatusNoContent)
}

func versionETag(v int64) string {
	return `"` + strconv.FormatInt(v, 10) + `"`
}

func parseVersionETag(s string) (int64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "W/")
	s = strings.Trim(s, `"`)
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%q isn't a version tag", s)
	}
	return v, nil
}
