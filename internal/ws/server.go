package ws

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/rocketfinder/backend/internal/config"
	"github.com/rocketfinder/backend/internal/session"
	"github.com/rocketfinder/backend/internal/status"
)

// Server exposes the session engine over HTTP: a WebSocket endpoint for
// the interactive search conversation, a status endpoint, and the
// embedded demo frontend.
type Server struct {
	cfg            *config.Config
	ctrl           *session.Controller
	hub            *Hub
	collector      *status.Collector
	frontend       http.Handler
	allowedOrigins map[string]bool
	allowedHosts   map[string]bool
	authToken      string
}

func NewServer(cfg *config.Config, ctrl *session.Controller, hub *Hub, collector *status.Collector, frontend http.Handler) *Server {
	s := &Server{
		cfg:            cfg,
		ctrl:           ctrl,
		hub:            hub,
		collector:      collector,
		frontend:       frontend,
		allowedOrigins: make(map[string]bool),
		allowedHosts:   make(map[string]bool),
		authToken:      cfg.Server.AuthToken,
	}

	for _, origin := range cfg.AllowedOrigins {
		trimmed := strings.TrimSpace(origin)
		if trimmed == "" {
			continue
		}
		s.allowedOrigins[trimmed] = true
		if parsed, err := url.Parse(trimmed); err == nil && parsed.Host != "" {
			s.allowedHosts[parsed.Host] = true
		}
	}

	return s
}

func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws", s.handleWS)
	mux.Handle("/api/status", securityHeaders(http.HandlerFunc(s.handleStatus)))
	if s.frontend != nil {
		mux.Handle("/", securityHeaders(s.frontend))
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	userID, err := strconv.ParseInt(r.URL.Query().Get("user"), 10, 64)
	if err != nil {
		http.Error(w, "missing or invalid user parameter", http.StatusBadRequest)
		return
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: s.checkOrigin,
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws: upgrade error: %v", err)
		return
	}

	c, err := s.hub.AddClient(userID, conn)
	if err != nil {
		log.Printf("ws: user %d from %s rejected: %v", userID, r.RemoteAddr, err)
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "too many connections"))
		conn.Close()
		return
	}

	log.Printf("ws: user %d connected from %s", userID, r.RemoteAddr)
	go s.readLoop(c)
}

// readLoop turns inbound client commands into controller calls. It owns
// the read side of the connection; exiting unregisters the client.
func (s *Server) readLoop(c *client) {
	defer func() {
		s.hub.RemoveClient(c)
		log.Printf("ws: user %d disconnected", c.userID)
	}()

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var cmd ClientCommand
		if err := json.Unmarshal(data, &cmd); err != nil {
			s.commandError(c, "malformed command")
			continue
		}

		switch cmd.Action {
		case "start":
			video := cmd.Video
			if video == "" {
				video = s.cfg.Provider.Video
			}
			s.ctrl.OnStart(c.userID, video)
		case "answer":
			frame, launched, err := DecodeAnswerToken(cmd.Token)
			if err != nil {
				s.commandError(c, "malformed answer token")
				continue
			}
			s.ctrl.OnAnswer(c.userID, frame, launched)
		case "cancel":
			s.ctrl.OnCancel(c.userID)
		default:
			s.commandError(c, fmt.Sprintf("unknown action %q", cmd.Action))
		}
	}
}

func (s *Server) commandError(c *client, text string) {
	s.hub.sendToClient(c, Message{
		Type:    MsgError,
		Payload: ErrorPayload{Message: text},
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	snap := s.collector.Snapshot(s.ctrl.Registry().Len(), s.hub.ClientCount())
	json.NewEncoder(w).Encode(snap)
}

func (s *Server) authorize(r *http.Request) bool {
	if s.authToken == "" {
		return true
	}

	if r.URL.Query().Get("token") == s.authToken {
		return true
	}

	if r.Header.Get("X-RocketFinder-Token") == s.authToken {
		return true
	}

	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.authToken {
		return true
	}

	return false
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	if len(s.allowedOrigins) > 0 {
		if s.allowedOrigins[origin] {
			return true
		}
		if parsed, err := url.Parse(origin); err == nil && parsed.Host != "" {
			return s.allowedHosts[parsed.Host]
		}
		return false
	}

	parsed, err := url.Parse(origin)
	if err != nil {
		return false
	}

	host := parsed.Host
	if host == "" {
		return false
	}

	if host == r.Host {
		return true
	}

	if strings.HasPrefix(host, "localhost:") || host == "localhost" {
		return true
	}
	if strings.HasPrefix(host, "127.0.0.1:") || host == "127.0.0.1" {
		return true
	}
	if strings.HasPrefix(host, "[::1]:") || host == "::1" {
		return true
	}

	return false
}

func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-XSS-Protection", "1; mode=block")
		// Frame images are served by the external provider, so img-src
		// must reach beyond the origin.
		w.Header().Set("Content-Security-Policy",
			"default-src 'self'; img-src 'self' https: http:; connect-src 'self' ws: wss:")
		next.ServeHTTP(w, r)
	})
}

func ListenAndServe(host string, port int, mux *http.ServeMux) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	log.Printf("Server listening on %s", addr)
	return http.ListenAndServe(addr, mux)
}
