package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"chat-server/internal/engine"
	"chat-server/internal/models"
)

// APIHandlers serves the read-side REST surface: history pages, search and
// the room/user rosters.
type APIHandlers struct {
	engine *engine.Engine
}

func NewAPIHandlers(eng *engine.Engine) *APIHandlers {
	return &APIHandlers{engine: eng}
}

// Messages returns one history page, oldest-first. Query params: room
// (default global), before (cursor message id), limit (capped at 100).
func (h *APIHandlers) Messages(w http.ResponseWriter, r *http.Request) {
	room := r.URL.Query().Get("room")
	if room == "" {
		room = "global"
	}
	before := r.URL.Query().Get("before")
	limit := engine.DefaultPageLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	writeJSON(w, h.engine.History(room, before, limit))
}

// Search scans all rooms for the query, capped at 200 results.
func (h *APIHandlers) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	writeJSON(w, h.engine.Search(q, engine.MaxSearchResults))
}

func (h *APIHandlers) Rooms(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.engine.Rooms())
}

// Members lists the connections currently joined to a room.
func (h *APIHandlers) Members(w http.ResponseWriter, r *http.Request) {
	room := r.URL.Query().Get("room")
	if room == "" {
		http.Error(w, "room required", http.StatusBadRequest)
		return
	}
	members := h.engine.Members(room)
	if members == nil {
		members = []models.Identity{}
	}
	writeJSON(w, members)
}

func (h *APIHandlers) Users(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.engine.Roster())
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
