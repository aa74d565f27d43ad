package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"numrush/internal/game"
	"numrush/internal/viewmodel"
	"numrush/views/components"
	"numrush/views/pages"
)

var (
	errMissingPoint = errors.New("point required")
	errInvalidCount = errors.New("points must be a positive number")
)

type GameHandler struct {
	store    *game.Store
	baseURL  string
	upgrader websocket.Upgrader
}

// NewGameHandler creates the play handlers. baseURL overrides the host used in
// share links; allowedOrigins restricts websocket upgrades when non-empty.
func NewGameHandler(store *game.Store, baseURL string, allowedOrigins []string) *GameHandler {
	return &GameHandler{
		store:    store,
		baseURL:  strings.TrimRight(baseURL, "/"),
		upgrader: newUpgrader(allowedOrigins),
	}
}

// RegisterRoutes registers the request/response routes.
func (h *GameHandler) RegisterRoutes(r chi.Router) {
	r.Get("/play/{id}", h.gamePage)
	r.Post("/play/{id}/restart", h.restart)
	r.Post("/play/{id}/click", h.click)
	r.Post("/play/{id}/points", h.setPoints)
	r.Post("/play/{id}/autoplay", h.toggleAutoPlay)
	r.Get("/play/{id}/board", h.boardFragment)
	r.Get("/play/{id}/status", h.statusFragment)
	r.Get("/play/{id}/state", h.state)
}

// RegisterStreamRoutes registers the long-lived SSE and websocket routes. They
// must not sit behind a request timeout.
func (h *GameHandler) RegisterStreamRoutes(r chi.Router) {
	r.Get("/play/{id}/stream", h.stream)
	r.Get("/play/{id}/ws", h.socket)
}

func (h *GameHandler) session(w http.ResponseWriter, r *http.Request) (*game.Session, bool) {
	sess, ok := h.store.GetSession(chi.URLParam(r, "id"))
	if !ok {
		http.NotFound(w, r)
		return nil, false
	}
	return sess, true
}

func (h *GameHandler) gamePage(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	snap := sess.Engine.Snapshot()
	render(w, r, pages.GamePage(viewmodel.GamePage{
		Title:     "Numrush",
		SessionID: sess.ID,
		ShareURL:  h.shareURL(r, sess.ID),
		Board:     buildBoardFragment(sess.ID, snap),
		Status:    buildStatusFragment(sess.ID, snap),
	}))
}

func (h *GameHandler) restart(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	h.restartRound(sess)
	h.respond(w, r, sess, nil)
}

func (h *GameHandler) click(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	result, err := h.clickPoint(sess, r.FormValue("point"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	h.respond(w, r, sess, map[string]string{"result": result.String()})
}

func (h *GameHandler) setPoints(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	n, err := h.setPointCount(sess, parseInt(r.FormValue("points"), 0))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	h.respond(w, r, sess, map[string]int{"points": n})
}

func (h *GameHandler) toggleAutoPlay(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	on := h.toggleAuto(sess)
	h.respond(w, r, sess, map[string]bool{"autoPlay": on})
}

func (h *GameHandler) boardFragment(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	render(w, r, components.BoardFragment(buildBoardFragment(sess.ID, sess.Engine.Snapshot())))
}

func (h *GameHandler) statusFragment(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	render(w, r, components.StatusFragment(buildStatusFragment(sess.ID, sess.Engine.Snapshot())))
}

func (h *GameHandler) state(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, buildState(sess.ID, sess.Engine.Snapshot()))
}

func (h *GameHandler) stream(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	hub, ok := h.store.Broadcaster(sess.ID)
	if !ok {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	sub := hub.Subscribe()
	defer hub.Unsubscribe(sub)

	send := func(board, status bool) {
		snap := sess.Engine.Snapshot()
		if board {
			writeSSE(w, game.EventBoard, renderToString(r, components.BoardFragment(buildBoardFragment(sess.ID, snap))))
		}
		if status {
			writeSSE(w, game.EventStatus, renderToString(r, components.StatusFragment(buildStatusFragment(sess.ID, snap))))
		}
		flusher.Flush()
	}

	send(true, true)

	keepAlive := time.NewTicker(25 * time.Second)
	defer keepAlive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case event, ok := <-sub:
			if !ok {
				return
			}
			switch event {
			case game.EventBoard:
				send(true, false)
			case game.EventStatus:
				send(false, true)
			}
		case <-keepAlive.C:
			_, _ = w.Write([]byte(": keepalive\n\n"))
			flusher.Flush()
		}
	}
}

// respond answers a command: JSON for app.js, a redirect back to the page otherwise.
func (h *GameHandler) respond(w http.ResponseWriter, r *http.Request, sess *game.Session, payload any) {
	if !fromScript(r) {
		http.Redirect(w, r, "/play/"+sess.ID, http.StatusSeeOther)
		return
	}
	if payload == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

func (h *GameHandler) restartRound(sess *game.Session) uint64 {
	gen, _ := h.store.Restart(sess.ID)
	return gen
}

// clickPoint applies a player click. Clicks are ignored while auto-play runs.
func (h *GameHandler) clickPoint(sess *game.Session, pointID string) (game.ClickResult, error) {
	pointID = strings.TrimSpace(pointID)
	if pointID == "" {
		return game.ClickIgnored, errMissingPoint
	}
	if sess.Engine.AutoPlay() {
		return game.ClickIgnored, nil
	}
	result := sess.Engine.Click(pointID)
	if result == game.ClickWrong {
		h.store.WakeRoundLoop(sess.ID)
	}
	log.Debug().Str("session", sess.ID).Str("point", pointID).Stringer("result", result).Msg("click")
	return result, nil
}

func (h *GameHandler) setPointCount(sess *game.Session, n int) (int, error) {
	if n < 1 {
		return 0, errInvalidCount
	}
	return sess.Engine.SetPointCount(n), nil
}

func (h *GameHandler) toggleAuto(sess *game.Session) bool {
	on := sess.Engine.ToggleAutoPlay()
	h.store.WakeRoundLoop(sess.ID)
	return on
}

func (h *GameHandler) shareURL(r *http.Request, sessionID string) string {
	if h.baseURL != "" {
		return h.baseURL + "/play/" + sessionID
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host + "/play/" + sessionID
}
