package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/ugaemi/fragmentia-server/internal/session"
	"github.com/ugaemi/fragmentia-server/internal/ws"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for development
	},
}

// NewHTTPRouter wires the HTTP routes: health, the websocket endpoint and
// read-only session snapshots.
func NewHTTPRouter(hub *ws.Hub, sm *session.Manager, router *Router) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/health", handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/ws", func(w http.ResponseWriter, req *http.Request) {
		handleWebSocket(hub, router, w, req)
	})
	r.HandleFunc("/sessions/{code}", func(w http.ResponseWriter, req *http.Request) {
		handleSessionSnapshot(sm, w, req)
	}).Methods(http.MethodGet)
	return r
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

func handleWebSocket(hub *ws.Hub, router *Router, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("websocket upgrade failed", "error", err)
		return
	}

	client := ws.NewClient("client-"+uuid.NewString(), hub, conn)
	hub.Register <- client
	router.StartIdentifyTimeout(client)

	go client.WritePump()
	go client.ReadPump()
}

// handleSessionSnapshot serves the live state of a session, falling back to
// the last cached snapshot.
func handleSessionSnapshot(sm *session.Manager, w http.ResponseWriter, r *http.Request) {
	code := session.NormalizeCode(mux.Vars(r)["code"])
	if !session.ValidCode(code) {
		writeJSONError(w, http.StatusBadRequest, "invalid session code")
		return
	}

	if s := sm.Get(code); s != nil {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(s.State()); err != nil {
			slog.Warn("failed to write snapshot", "session", code, "error", err)
		}
		return
	}

	data, err := sm.LoadSnapshot(r.Context(), code)
	if err != nil {
		slog.Error("failed to load snapshot", "session", code, "error", err)
		writeJSONError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if data == nil {
		writeJSONError(w, http.StatusNotFound, "session not found")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
