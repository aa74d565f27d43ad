package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"numrush/internal/game"
	"numrush/internal/viewmodel"
	"numrush/views/pages"
)

type HomeHandler struct {
	store *game.Store
}

func NewHomeHandler(store *game.Store) *HomeHandler {
	return &HomeHandler{store: store}
}

func (h *HomeHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.home)
	r.Post("/sessions", h.createSession)
}

func (h *HomeHandler) home(w http.ResponseWriter, r *http.Request) {
	settings := h.store.Settings()
	render(w, r, pages.HomePage(viewmodel.HomePage{
		Title:         "Numrush",
		PointCount:    settings.PointCount,
		MaxPointCount: settings.MaxPointCount,
	}))
}

func (h *HomeHandler) createSession(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	points := parseInt(r.FormValue("points"), 0)
	sess := h.store.CreateSession(points)
	if fromScript(r) {
		writeJSON(w, http.StatusCreated, map[string]string{"id": sess.ID})
		return
	}
	http.Redirect(w, r, "/play/"+sess.ID, http.StatusSeeOther)
}

func parseInt(value string, fallback int) int {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
