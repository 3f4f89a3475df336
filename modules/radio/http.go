package radio

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
)

type commandRequest struct {
	Command string `json:"command"`
}

type httpHandler struct {
	station Station
	logger  *slog.Logger
}

// RegisterRoutes mounts the listener, control and page routes on router.
func RegisterRoutes(router *mux.Router, station Station, cfg Config, logger *slog.Logger) {
	h := &httpHandler{
		station: station,
		logger:  logger,
	}

	router.Path("/").Methods(http.MethodGet).Handler(http.RedirectHandler("/home", http.StatusFound))
	router.Path("/home").Methods(http.MethodGet).HandlerFunc(h.page(cfg.HomePage))
	router.Path("/controller").Methods(http.MethodGet).HandlerFunc(h.page(cfg.ControllerPage))
	router.Path("/controller").Methods(http.MethodPost).HandlerFunc(h.command)
	router.Path("/stream").Methods(http.MethodGet).HandlerFunc(h.stream)
	router.PathPrefix("/").Methods(http.MethodGet).HandlerFunc(h.asset)
}

func (h *httpHandler) stream(w http.ResponseWriter, r *http.Request) {
	l := h.station.CreateListener()
	defer h.station.RemoveListener(l.ID)

	w.Header().Set("Content-Type", "audio/mpeg")
	w.Header().Set("Accept-Ranges", "bytes")
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)
	if flusher != nil {
		flusher.Flush()
	}

	for {
		select {
		case <-r.Context().Done():
			h.logger.Debug("closing connection", "id", l.ID)
			return
		case chunk, ok := <-l.C():
			if !ok {
				return
			}
			if _, err := w.Write(chunk); err != nil {
				return
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
	}
}

func (h *httpHandler) command(w http.ResponseWriter, r *http.Request) {
	var req commandRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 4096)).Decode(&req); err != nil {
		h.logger.Warn("invalid command body", "err", err)
		http.Error(w, "invalid command body", http.StatusBadRequest)
		return
	}

	result, err := h.station.HandleCommand(r.Context(), req.Command)
	if err != nil && !errors.Is(err, ErrUnrecognizedCommand) {
		h.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
	}
	if err := json.NewEncoder(w).Encode(result); err != nil {
		h.logger.Error("failed to write command result", "err", err)
	}
}

func (h *httpHandler) page(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		h.serveAsset(w, name)
	}
}

func (h *httpHandler) asset(w http.ResponseWriter, r *http.Request) {
	h.serveAsset(w, r.URL.Path)
}

func (h *httpHandler) serveAsset(w http.ResponseWriter, name string) {
	a, err := h.station.Asset(name)
	if err != nil {
		h.writeError(w, err)
		return
	}
	defer a.Close()

	if a.ContentType != "" {
		w.Header().Set("Content-Type", a.ContentType)
	}
	if _, err := io.Copy(w, a); err != nil {
		h.logger.Debug("asset copy interrupted", "name", a.Name, "err", err)
	}
}

func (h *httpHandler) writeError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrNotFound) {
		h.logger.Warn("not found", "err", err)
		w.WriteHeader(http.StatusNotFound)
		return
	}

	h.logger.Error("request failed", "err", err)
	w.WriteHeader(http.StatusInternalServerError)
}
