// Package server exposes the bridge HTTP API plus health and metrics
// endpoints.
package server

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/stxbridge/bridger/pkg/circuitbreaker"
	"github.com/stxbridge/bridger/pkg/logger"
	"github.com/stxbridge/bridger/pkg/models"
	"github.com/stxbridge/bridger/pkg/orchestrator"
	"github.com/stxbridge/bridger/pkg/registry"
	"github.com/stxbridge/bridger/pkg/stacks"
	"github.com/stxbridge/bridger/pkg/store"
)

// Broadcaster submits a signed source transaction and waits for it to
// finalize.
type Broadcaster interface {
	BroadcastAndConfirm(ctx context.Context, rawTx []byte) (*stacks.TxInfo, error)
}

// Server is the bridge HTTP server.
type Server struct {
	port          string
	orchestrator  *orchestrator.Orchestrator
	broadcaster   Broadcaster
	breaker       *circuitbreaker.CircuitBreaker
	registry      *registry.Registry
	contractID    string
	logger        logger.Logger
	metricsAPIKey string
	httpServer    *http.Server
}

// NewServer creates the bridge HTTP server.
func NewServer(port string, orch *orchestrator.Orchestrator, broadcaster Broadcaster, breaker *circuitbreaker.CircuitBreaker, reg *registry.Registry, contractID string, log logger.Logger) *Server {
	if log == nil {
		log = &logger.EmptyLogger{}
	}
	return &Server{
		port:          port,
		orchestrator:  orch,
		broadcaster:   broadcaster,
		breaker:       breaker,
		registry:      reg,
		contractID:    contractID,
		logger:        log,
		metricsAPIKey: os.Getenv("METRICS_API_KEY"),
	}
}

// apiResponse is the envelope every API endpoint answers with.
type apiResponse struct {
	Success bool              `json:"success"`
	Message string            `json:"message,omitempty"`
	Status  string            `json:"status,omitempty"`
	TxID    string            `json:"txId,omitempty"`
	Order   *models.SwapOrder `json:"order,omitempty"`
}

type createOrderRequest struct {
	TxID string `json:"txId"`
}

type pollOrderRequest struct {
	OrderID string `json:"orderId"`
}

type broadcastRequest struct {
	Tx string `json:"tx"`
}

// Handler builds the route table. Split out from Start so tests can drive
// the server through httptest.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/v1/create-order", s.handleCreateOrder)
	mux.HandleFunc("/api/v1/order/", s.handleGetOrder)
	mux.HandleFunc("/api/v1/poll-order", s.handlePollOrder)
	mux.HandleFunc("/api/v1/broadcast-tx", s.handleBroadcastTx)

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("Ready"))
	})

	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/circuit/reset", s.handleCircuitReset)
	mux.Handle("/metrics", s.metricsAuthMiddleware(promhttp.Handler()))

	return mux
}

// Start runs the server until Shutdown is called.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:         ":" + s.port,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 5 * time.Minute, // broadcast-tx waits out confirmation polling
	}

	s.logger.Info("HTTP server listening on port %s", s.port)
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// handleCreateOrder processes a swap from a source transaction ID. The
// source is checked once; a transaction that has not finalized yet answers
// with a retriable 400 and nothing is persisted.
func (s *Server) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, apiResponse{Message: "Method not allowed"})
		return
	}

	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.TxID) == "" {
		writeJSON(w, http.StatusBadRequest, apiResponse{Message: "Missing or invalid txId"})
		return
	}

	res, err := s.orchestrator.CreateOrder(r.Context(), req.TxID)
	if err != nil {
		var verr *orchestrator.ValidationError
		var serr *orchestrator.StoreError
		switch {
		case errors.As(err, &verr):
			writeJSON(w, http.StatusBadRequest, apiResponse{Message: verr.Error()})
		case errors.As(err, &serr):
			s.logger.Error("Create order for tx %s hit a store failure: %v", req.TxID, err)
			writeJSON(w, http.StatusInternalServerError, apiResponse{Message: "Internal server error"})
		default:
			writeJSON(w, http.StatusBadRequest, apiResponse{Message: err.Error()})
		}
		return
	}

	if res.Pending {
		writeJSON(w, http.StatusBadRequest, apiResponse{Message: "Transaction still pending, please try again"})
		return
	}
	if res.Duplicate {
		writeJSON(w, http.StatusBadRequest, apiResponse{Message: "Order already exists", Order: res.Order})
		return
	}
	writeJSON(w, http.StatusCreated, apiResponse{Success: true, Order: res.Order})
}

// handleGetOrder fetches one order by the ID in the path.
func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, apiResponse{Message: "Method not allowed"})
		return
	}

	orderID := strings.TrimPrefix(r.URL.Path, "/api/v1/order/")
	if orderID == "" {
		writeJSON(w, http.StatusBadRequest, apiResponse{Message: "Missing orderId"})
		return
	}

	s.respondWithOrder(w, r, orderID)
}

// handlePollOrder reports the current status of an order. The status rides
// at the top level of the envelope so pollers need not unpack the order.
func (s *Server) handlePollOrder(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, apiResponse{Message: "Method not allowed"})
		return
	}

	var req pollOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.OrderID) == "" {
		writeJSON(w, http.StatusBadRequest, apiResponse{Message: "Missing or invalid orderId"})
		return
	}

	status, order, err := s.orchestrator.PollStatus(r.Context(), req.OrderID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, apiResponse{Message: "Order not found"})
			return
		}
		s.logger.Error("Order lookup for %s failed: %v", req.OrderID, err)
		writeJSON(w, http.StatusInternalServerError, apiResponse{Message: "Internal server error"})
		return
	}
	writeJSON(w, http.StatusOK, apiResponse{Success: true, Status: string(status), Order: order})
}

// handleBroadcastTx submits a signed source transaction to the node and
// waits for it to finalize before answering with the transaction ID.
func (s *Server) handleBroadcastTx(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, apiResponse{Message: "Method not allowed"})
		return
	}
	if s.broadcaster == nil {
		writeJSON(w, http.StatusNotFound, apiResponse{Message: "Broadcasting not configured"})
		return
	}

	var req broadcastRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Tx) == "" {
		writeJSON(w, http.StatusBadRequest, apiResponse{Message: "Missing or invalid tx"})
		return
	}

	rawTx, err := hex.DecodeString(strings.TrimPrefix(req.Tx, "0x"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, apiResponse{Message: "tx must be hex-encoded"})
		return
	}

	info, err := s.broadcaster.BroadcastAndConfirm(r.Context(), rawTx)
	if err != nil {
		resp := apiResponse{Message: err.Error()}
		if info != nil {
			resp.TxID = info.TxID
		}
		writeJSON(w, http.StatusBadRequest, resp)
		return
	}
	writeJSON(w, http.StatusOK, apiResponse{Success: true, TxID: info.TxID})
}

func (s *Server) respondWithOrder(w http.ResponseWriter, r *http.Request, orderID string) {
	order, err := s.orchestrator.GetOrder(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, apiResponse{Message: "Order not found"})
			return
		}
		s.logger.Error("Order lookup for %s failed: %v", orderID, err)
		writeJSON(w, http.StatusInternalServerError, apiResponse{Message: "Internal server error"})
		return
	}
	writeJSON(w, http.StatusOK, apiResponse{Success: true, Order: order})
}

// handleStatus reports service configuration and circuit state.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	circuit := "closed"
	if s.breaker != nil && s.breaker.IsOpen() {
		circuit = "open"
	}

	status := map[string]interface{}{
		"contract": s.contractID,
		"circuit":  circuit,
	}
	if s.registry != nil {
		status["assets"] = s.registry.Symbols()
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(status); err != nil {
		s.logger.Error("Error encoding status JSON: %v", err)
	}
}

// handleCircuitReset manually closes the destination-chain circuit breaker.
func (s *Server) handleCircuitReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.breaker == nil {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("No circuit breaker configured"))
		return
	}

	s.breaker.Reset()
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("Circuit breaker reset"))
}

// metricsAuthMiddleware checks for a valid API key on the metrics endpoint.
func (s *Server) metricsAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Skip auth if no API key is configured
		if s.metricsAPIKey == "" {
			next.ServeHTTP(w, r)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "Missing Authorization header", http.StatusUnauthorized)
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			http.Error(w, "Invalid Authorization header format", http.StatusUnauthorized)
			return
		}

		if parts[1] != s.metricsAPIKey {
			http.Error(w, "Invalid API key", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, body apiResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
