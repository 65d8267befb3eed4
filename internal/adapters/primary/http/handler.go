package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/agricagent/agricagent/config"
	"github.com/agricagent/agricagent/internal/core/domain"
	"github.com/agricagent/agricagent/internal/core/ports"
	"github.com/agricagent/agricagent/internal/core/services"
	"github.com/agricagent/agricagent/internal/logger"
)

// routeList is returned by GET /routes so the mobile app can discover the
// API surface.
var routeList = []string{
	"/",
	"/routes",
	"/chat",
	"/identify",
	"/messages",
	"/notify",
	"/webhook",
}

// Handler is the HTTP handler for both channels: the JSON API used by the
// mobile app and the carrier webhook.
type Handler struct {
	service *services.AdvisorService
	carrier ports.CarrierPort
	cfg     *config.Config
	log     logger.Logger
	router  *chi.Mux
}

// NewHandler creates the HTTP handler and wires its routes. carrier may be
// nil when outbound push is not configured.
func NewHandler(service *services.AdvisorService, carrier ports.CarrierPort, cfg *config.Config, log logger.Logger) *Handler {
	h := &Handler{
		service: service,
		carrier: carrier,
		cfg:     cfg,
		log:     log,
	}

	h.setupRouter()
	return h
}

// setupRouter sets up the chi router with middleware and routes
func (h *Handler) setupRouter() {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(LoggerMiddleware(h.log))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/", h.Health)
	r.Get("/routes", h.Routes)
	r.Post("/chat", h.Chat)
	r.Post("/identify", h.Identify)
	r.Get("/messages", h.Messages)
	r.Post("/notify", h.Notify)
	r.Post("/webhook", h.Webhook)

	h.router = r
}

// ServeHTTP implements the http.Handler interface
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

// Health handles the health probe
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.respondWithJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"message": "AgricAgent API is running",
	})
}

// Routes lists the registered routes
func (h *Handler) Routes(w http.ResponseWriter, r *http.Request) {
	h.respondWithJSON(w, http.StatusOK, map[string][]string{"routes": routeList})
}

// Chat handles a plain text advice request from the JSON API channel
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Message string `json:"message"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if req.Message == "" {
		h.respondWithError(w, http.StatusBadRequest, "message is required")
		return
	}

	reply := h.service.Chat(r.Context(), "api", req.Message)
	h.respondWithJSON(w, http.StatusOK, map[string]string{"reply": reply.Text})
}

// Identify handles a multipart image identification request. The file may
// arrive under either the "file" or the legacy "image" field.
func (h *Handler) Identify(w http.ResponseWriter, r *http.Request) {
	maxBytes := h.cfg.Media.MaxUploadBytes()
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		h.respondWithError(w, http.StatusBadRequest, "Invalid multipart payload")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		file, header, err = r.FormFile("image")
	}
	if err != nil {
		h.respondWithError(w, http.StatusBadRequest, "missing file upload")
		return
	}
	defer file.Close()

	// One extra byte past the bound lets the normalizer see the overflow.
	data, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
	if err != nil {
		h.respondWithError(w, http.StatusInternalServerError, "failed to read upload")
		return
	}

	ref := &domain.MediaRef{
		Source:      domain.MediaSourceUpload,
		Data:        data,
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
	}

	reply, err := h.service.Identify(r.Context(), "api", ref, r.FormValue("context"))
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrImageTooLarge):
			h.respondWithError(w, http.StatusRequestEntityTooLarge, "image exceeds the size limit")
		case errors.Is(err, domain.ErrUnsupportedMedia):
			h.respondWithError(w, http.StatusBadRequest, "upload is not a supported image")
		default:
			h.respondWithError(w, http.StatusInternalServerError, "failed to analyze image")
		}
		return
	}

	h.respondWithJSON(w, http.StatusOK, map[string]any{
		"filename": header.Filename,
		"reply":    reply.Text,
		"ok":       true,
	})
}

// Messages returns the most recent interactions, newest first
func (h *Handler) Messages(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	interactions, err := h.service.ListRecent(r.Context(), limit)
	if err != nil {
		h.respondWithError(w, http.StatusInternalServerError, "failed to list messages")
		return
	}
	if interactions == nil {
		interactions = []domain.Interaction{}
	}
	h.respondWithJSON(w, http.StatusOK, map[string]any{"messages": interactions})
}

// Notify sends an outbound WhatsApp message through the carrier REST API
func (h *Handler) Notify(w http.ResponseWriter, r *http.Request) {
	var req struct {
		To      string `json:"to"`
		Message string `json:"message"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if req.To == "" || req.Message == "" {
		h.respondWithError(w, http.StatusBadRequest, "to and message are required")
		return
	}
	if h.carrier == nil {
		h.respondWithError(w, http.StatusServiceUnavailable, "carrier is not configured")
		return
	}

	sid, err := h.carrier.Send(r.Context(), req.To, req.Message)
	if err != nil {
		h.log.Error("carrier send failed", "error", err)
		h.respondWithError(w, http.StatusBadGateway, "failed to send message")
		return
	}
	h.respondWithJSON(w, http.StatusOK, map[string]string{"sid": sid})
}

// respondWithError sends an error response
func (h *Handler) respondWithError(w http.ResponseWriter, code int, message string) {
	h.respondWithJSON(w, code, map[string]string{"error": message})
}

// respondWithJSON sends a JSON response
func (h *Handler) respondWithJSON(w http.ResponseWriter, code int, payload any) {
	response, err := json.Marshal(payload)
	if err != nil {
		h.log.Error("failed to marshal JSON response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

// LoggerMiddleware logs HTTP requests
func LoggerMiddleware(log logger.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				log.Info("HTTP request",
					"method", r.Method,
					"path", r.URL.Path,
					"status", ww.Status(),
					"bytes", ww.BytesWritten(),
					"duration", time.Since(start),
				)
			}()

			next.ServeHTTP(ww, r)
		})
	}
}
