package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"brainforge/app/pkg/logger"
)

// Card is served from the well-known endpoint during the orchestrator's
// registry handshake.
type Card struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	URL         string   `json:"url"`
	Version     string   `json:"version"`
	Skills      []string `json:"skills"`
}

// Responder handles one skill. Input is the envelope's input object;
// the returned bytes are the JSON output object.
type Responder interface {
	Skill() string
	Handle(ctx context.Context, input gjson.Result) ([]byte, error)
}

// Server exposes one worker role: its card, a health probe and the
// skill-envelope task endpoint.
type Server struct {
	port            int
	card            Card
	responders      map[string]Responder
	server          *http.Server
	shutdownTimeout time.Duration
}

func NewServer(port int, card Card, responders ...Responder) *Server {
	byName := make(map[string]Responder, len(responders))
	skills := make([]string, 0, len(responders))
	for _, r := range responders {
		byName[r.Skill()] = r
		skills = append(skills, r.Skill())
	}
	card.Skills = skills
	return &Server{
		port:            port,
		card:            card,
		responders:      byName,
		shutdownTimeout: 5 * time.Second,
	}
}

func (s *Server) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/.well-known/agent-card.json", s.handleCard)
	mux.HandleFunc("/task", s.handleTask)
	mux.HandleFunc("/health", s.handleHealth)

	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.port),
		Handler: mux,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			logger.Error("Worker %s shutdown error: %v", s.card.Name, err)
		}
	}()

	logger.Info("Worker %s listening on port %d...", s.card.Name, s.port)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) handleCard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(s.card)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"status":  "healthy",
		"service": s.card.Name,
	})
}

func (s *Server) handleTask(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	envelope := gjson.ParseBytes(body)
	if !envelope.IsObject() {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	skill := strings.TrimSpace(envelope.Get("skill").String())
	if skill == "" {
		http.Error(w, "skill is required", http.StatusBadRequest)
		return
	}
	responder, ok := s.responders[skill]
	if !ok {
		http.Error(w, "unknown skill: "+skill, http.StatusBadRequest)
		return
	}

	output, err := responder.Handle(r.Context(), envelope.Get("input"))
	if err != nil {
		logger.Error("Worker %s: skill %s failed: %v", s.card.Name, skill, err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"output":`))
	_, _ = w.Write(output)
	_, _ = w.Write([]byte(`}`))
}
