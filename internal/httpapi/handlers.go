// Package httpapi exposes the transcript controller to a browser player:
// JSON endpoints for the source lists, items, and selection state, a
// dispatch endpoint for user events, and a WebSocket channel that carries
// playback ticks in and selection snapshots out.
package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/eleven-am/transkit"
	"github.com/eleven-am/transkit/internal/domain"
	"github.com/eleven-am/transkit/internal/timecode"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

type Handler struct {
	ctrl   *transkit.Controller
	bridge *Bridge
	hub    *Hub
	logger zerolog.Logger
}

func NewHandler(ctrl *transkit.Controller, bridge *Bridge, hub *Hub, logger zerolog.Logger) *Handler {
	return &Handler{ctrl: ctrl, bridge: bridge, hub: hub, logger: logger}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/units", h.units)
	r.Get("/state", h.state)
	r.Get("/items", h.items)
	r.Post("/dispatch", h.dispatch)
	r.Get("/sync", h.sync)
}

type sourceView struct {
	ID               string `json:"id"`
	Title            string `json:"title"`
	URL              string `json:"url"`
	MachineGenerated bool   `json:"machineGenerated"`
	Format           string `json:"format"`
}

type unitView struct {
	Index   int          `json:"index"`
	Label   string       `json:"label"`
	Sources []sourceView `json:"sources"`
}

func (h *Handler) units(w http.ResponseWriter, r *http.Request) {
	count := h.ctrl.UnitCount()
	units := make([]unitView, 0, count)
	for i := 0; i < count; i++ {
		sources := h.ctrl.Sources(i)
		views := make([]sourceView, 0, len(sources))
		for _, src := range sources {
			views = append(views, sourceView{
				ID:               src.ID,
				Title:            src.Title,
				URL:              src.URL,
				MachineGenerated: src.MachineGenerated,
				Format:           string(src.Format),
			})
		}
		units = append(units, unitView{
			Index:   i,
			Label:   h.ctrl.UnitLabel(r.Context(), i),
			Sources: views,
		})
	}
	writeJSON(w, http.StatusOK, units)
}

type stateView struct {
	Selection    transkit.Selection `json:"selection"`
	Loading      bool               `json:"loading"`
	NoTranscript bool               `json:"noTranscript"`
	Format       string             `json:"format"`
	SourceURL    string             `json:"sourceUrl,omitempty"`
	ViewerURL    string             `json:"viewerUrl,omitempty"`
}

func (h *Handler) state(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.currentState())
}

func (h *Handler) currentState() stateView {
	tr := h.ctrl.ActiveTranscript()
	view := stateView{
		Selection:    h.ctrl.Selection(),
		Loading:      h.ctrl.Loading(),
		NoTranscript: h.ctrl.NoTranscript(),
		Format:       string(tr.Format),
		SourceURL:    tr.SourceURL,
	}
	if tr.Format == domain.FormatExternalDoc {
		view.ViewerURL = transkit.ViewerURL(tr.SourceURL)
	}
	return view
}

type itemView struct {
	Text    string   `json:"text"`
	Begin   *float64 `json:"begin,omitempty"`
	End     *float64 `json:"end,omitempty"`
	Index   int      `json:"index"`
	Display string   `json:"display,omitempty"`
}

func (h *Handler) items(w http.ResponseWriter, r *http.Request) {
	items := h.ctrl.VisibleItems()
	views := make([]itemView, 0, len(items))
	for _, item := range items {
		view := itemView{Text: item.Text, Begin: item.Begin, End: item.End, Index: item.Index}
		if item.Begin != nil {
			view.Display = timecode.Format(*item.Begin, true)
		}
		views = append(views, view)
	}
	writeJSON(w, http.StatusOK, views)
}

type dispatchRequest struct {
	Action string `json:"action"`
	Index  int    `json:"index"`
}

func (h *Handler) dispatch(w http.ResponseWriter, r *http.Request) {
	var req dispatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid dispatch payload")
		return
	}

	var err error
	switch req.Action {
	case "selectUnit":
		err = h.ctrl.SelectUnit(r.Context(), req.Index)
	case "selectSource":
		err = h.ctrl.SelectSource(r.Context(), req.Index)
	case "itemClick":
		err = h.ctrl.ClickItem(req.Index)
	case "toggleAutoScroll":
		h.ctrl.ToggleAutoScroll()
	default:
		writeError(w, http.StatusBadRequest, "unknown action "+req.Action)
		return
	}
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, h.currentState())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
