package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dusk-indust/flowscan/internal/history"
)

const (
	wsWriteWait = 10 * time.Second
	wsPongWait  = 60 * time.Second
	wsPingEvery = (wsPongWait * 9) / 10
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

// Handler exposes the scan API over HTTP.
type Handler struct {
	store history.Store
	svc   *ScanService
	hub   *Hub
}

// NewHandler wires the REST and websocket endpoints.
func NewHandler(store history.Store, svc *ScanService, hub *Hub) *Handler {
	return &Handler{store: store, svc: svc, hub: hub}
}

// NewMux registers all routes and wraps them in CORS.
func NewMux(h *Handler) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/scans", h.handleStartScan)
	mux.HandleFunc("GET /api/scans", h.handleListScans)
	mux.HandleFunc("GET /api/scans/unviewed-count", h.handleUnviewedCount)
	mux.HandleFunc("GET /api/scans/{id}", h.handleGetScan)
	mux.HandleFunc("GET /api/scans/{id}/result", h.handleGetResult)
	mux.HandleFunc("POST /api/scans/{id}/viewed", h.handleMarkViewed)
	mux.HandleFunc("POST /api/scans/{id}/cancel", h.handleCancelScan)
	mux.HandleFunc("DELETE /api/scans/{id}", h.handleDeleteScan)
	mux.HandleFunc("GET /api/scans/{id}/ws", h.handleProgressWS)

	return CORS(mux)
}

// CORS permits browser clients on any origin.
func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := strings.TrimSpace(r.Header.Get("Origin"))
		if origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Vary", "Origin")
		} else {
			w.Header().Set("Access-Control-Allow-Origin", "*")
		}
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Authorization")
		if r.Method == http.MethodOptions {
			return
		}
		next.ServeHTTP(w, r)
	})
}

type startScanRequest struct {
	RepositoryPath string `json:"repository_path"`
	ScanType       string `json:"scan_type,omitempty"`
	PerformedBy    string `json:"performed_by,omitempty"`
}

func (h *Handler) handleStartScan(w http.ResponseWriter, r *http.Request) {
	var req startScanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.RepositoryPath) == "" {
		writeError(w, http.StatusBadRequest, "repository_path is required")
		return
	}

	meta, err := h.svc.StartScan(r.Context(), req.RepositoryPath, req.ScanType, req.PerformedBy)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, meta)
}

func (h *Handler) handleListScans(w http.ResponseWriter, r *http.Request) {
	limit, err := queryCount(r, "limit")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	offset, err := queryCount(r, "offset")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	scans, err := h.store.ListScans(r.Context(), limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if scans == nil {
		scans = []*history.ScanMetadata{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"scans": scans})
}

func (h *Handler) handleGetScan(w http.ResponseWriter, r *http.Request) {
	meta, err := h.store.GetScan(r.Context(), r.PathValue("id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, meta)
}

func (h *Handler) handleGetResult(w http.ResponseWriter, r *http.Request) {
	result, err := h.store.GetResult(r.Context(), r.PathValue("id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handleMarkViewed(w http.ResponseWriter, r *http.Request) {
	if err := h.store.MarkViewed(r.Context(), r.PathValue("id")); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleUnviewedCount(w http.ResponseWriter, r *http.Request) {
	count, err := h.store.UnviewedCount(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"count": count})
}

func (h *Handler) handleCancelScan(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.CancelScan(r.PathValue("id")); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *Handler) handleDeleteScan(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeleteScan(r.Context(), r.PathValue("id")); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleProgressWS streams progress frames for one scan until the scan
// reaches a terminal state or the client disconnects.
func (h *Handler) handleProgressWS(w http.ResponseWriter, r *http.Request) {
	scanID := r.PathValue("id")
	if _, err := h.store.GetScan(r.Context(), scanID); err != nil {
		writeStoreError(w, err)
		return
	}

	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	if err := conn.SetReadDeadline(time.Now().Add(wsPongWait)); err != nil {
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	// Read pump: discard inbound frames, surface disconnects.
	disconnected := make(chan struct{})
	go func() {
		defer close(disconnected)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	updates, cancel := h.hub.Subscribe(scanID)
	defer cancel()

	ticker := time.NewTicker(wsPingEvery)
	defer ticker.Stop()

	for {
		select {
		case <-disconnected:
			return
		case <-r.Context().Done():
			return
		case update := <-updates:
			if err := conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
				return
			}
			if err := conn.WriteJSON(update); err != nil {
				return
			}
			if isTerminalState(update.Status) {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
					time.Now().Add(wsWriteWait))
				return
			}
		case <-ticker.C:
			if err := conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
				return
			}
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// queryCount parses an optional non-negative integer query parameter. A
// missing parameter reads as zero.
func queryCount(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer", name)
	}
	return n, nil
}

func isTerminalState(state string) bool {
	switch state {
	case history.StateCompleted, history.StateError, history.StateCancelled:
		return true
	}
	return false
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, map[string]string{"error": message})
}

func writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, history.ErrNotFound) {
		writeError(w, http.StatusNotFound, "scan not found")
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}
