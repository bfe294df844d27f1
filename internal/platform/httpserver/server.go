package httpserver

import (
	"encoding/json"
	"log/slog"
	"net/http"

	convictionpolling "dealdesk/contexts/investment-committee/conviction-polling"
	pollinghttp "dealdesk/contexts/investment-committee/conviction-polling/transport/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
	_ "dealdesk/internal/platform/httpserver/docs"
)

type Server struct {
	mux     *http.ServeMux
	logger  *slog.Logger
	addr    string
	polling convictionpolling.Module
}

func New(
	polling convictionpolling.Module,
	logger *slog.Logger,
	addr string,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if addr == "" {
		addr = ":8080"
	}

	s := &Server{
		mux:     http.NewServeMux(),
		logger:  logger,
		addr:    addr,
		polling: polling,
	}
	s.registerRoutes()
	return s
}

func (s *Server) Start() error {
	s.logger.Info("http server starting",
		"event", "http_server_starting",
		"module", "internal/platform/httpserver",
		"layer", "platform",
		"addr", s.addr,
	)
	return http.ListenAndServe(s.addr, s.mux)
}

// Handler exposes the route table for in-process tests.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) registerRoutes() {
	s.mux.Handle("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))
	s.mux.Handle("GET /metrics", promhttp.Handler())
	s.mux.HandleFunc("GET /healthz", s.handleHealthz)

	s.mux.HandleFunc("POST /api/v1/polls", s.handleCreatePoll)
	s.mux.HandleFunc("GET /api/v1/polls/{poll_id}", s.handleGetPoll)
	s.mux.HandleFunc("GET /api/v1/deals/{deal_id}/polls", s.handleDealPolls)
	s.mux.HandleFunc("POST /api/v1/polls/{poll_id}/votes", s.handleSubmitVote)
	s.mux.HandleFunc("GET /api/v1/polls/{poll_id}/votes", s.handlePollVotes)
	s.mux.HandleFunc("GET /api/v1/polls/{poll_id}/votes/me", s.handleOwnVote)
	s.mux.HandleFunc("POST /api/v1/polls/{poll_id}/reveal", s.handleRevealPoll)
	s.mux.HandleFunc("GET /api/v1/polls/{poll_id}/divergence", s.handleDivergenceSummary)
	s.mux.HandleFunc("GET /api/v1/divergence/attention", s.handleAttention)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writePollingError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, pollinghttp.ErrorResponse{
		Code:    code,
		Message: message,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
