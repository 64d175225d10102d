package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/ent0n29/streamtasks/internal/board"
	"github.com/ent0n29/streamtasks/internal/commands"
	"github.com/ent0n29/streamtasks/internal/config"
	"github.com/ent0n29/streamtasks/internal/observability"
	"github.com/ent0n29/streamtasks/internal/overlay"
	"github.com/ent0n29/streamtasks/internal/protocol"
)

type Server struct {
	cfg        config.Config
	board      *board.Manager
	dispatcher *commands.Dispatcher
	hub        *overlay.Hub
	metrics    *observability.Metrics
	storeMode  string
	upgrader   websocket.Upgrader
	static     http.Handler
}

func New(cfg config.Config, b *board.Manager, dispatcher *commands.Dispatcher, hub *overlay.Hub, metrics *observability.Metrics, storeMode string) *Server {
	return &Server{
		cfg:        cfg,
		board:      b,
		dispatcher: dispatcher,
		hub:        hub,
		metrics:    metrics,
		storeMode:  storeMode,
		static:     newStaticHandler(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				// Browser sources are only accepted from the same origin unless
				// the operator opts out.
				if cfg.AllowAnyOrigin {
					return true
				}
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				if origin == "" {
					// Non-browser clients often omit Origin. Allow them.
					return true
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				if u.Scheme != "http" && u.Scheme != "https" {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			},
		},
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/ui/", http.StatusTemporaryRedirect)
	})
	r.Get("/ui", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/ui/", http.StatusTemporaryRedirect)
	})
	r.Handle("/ui/*", http.StripPrefix("/ui/", s.static))

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})

	r.Get("/v1/board", s.handleGetBoard)
	r.Get("/v1/overlay/ws", s.handleOverlayWS)
	r.Post("/v1/chat/messages", s.handleChatMessage)
	r.Get("/v1/chat/ws", s.handleChatWS)
	r.Post("/v1/widget/load", s.handleWidgetLoad)
	r.Get("/v1/perf/commands", s.handlePerfCommands)

	if s.cfg.EnableTestAPI {
		r.Route("/v1/test", s.testRoutes)
	}

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"store_mode": s.mode(),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	if s.board == nil || s.dispatcher == nil {
		respondError(w, http.StatusServiceUnavailable, "not_ready", "board is not wired")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"status":     "ready",
		"store_mode": s.mode(),
		"lists":      len(s.board.Lists()),
	})
}

func (s *Server) mode() string {
	if strings.TrimSpace(s.storeMode) == "" {
		return "none"
	}
	return s.storeMode
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

var errEmptyBody = errors.New("empty body")

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(out); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "eof") {
			return errEmptyBody
		}
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}

func messageTypeOf(v any) (protocol.MessageType, bool) {
	switch m := v.(type) {
	case protocol.ChatMessage:
		return protocol.TypeChatMessage, true
	case protocol.LoadFields:
		return m.Type, true
	case protocol.ChatReply:
		return m.Type, true
	case protocol.BoardSnapshot:
		return m.Type, true
	case protocol.ErrorEvent:
		return m.Type, true
	default:
		return "", false
	}
}
