package web

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"runtime"
	"strconv"
	"strings"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/gorilla/mux"

	"github.com/happy-paisa/hpe/internal/engine"
	"github.com/happy-paisa/hpe/internal/logger"
	"github.com/happy-paisa/hpe/internal/state"
	"github.com/happy-paisa/hpe/internal/types"
)

var webLogger = logger.GetForComponent("web_server")

// WebServer serves the engine's JSON API: reserve dashboard figures, staking
// views, plan endpoints and the owner-gated operations.
type WebServer struct {
	router     *mux.Router
	port       string
	engine     *engine.Engine
	ownerToken string
}

// NewWebServer creates a web server around the engine.
func NewWebServer(port string, eng *engine.Engine, ownerToken string) *WebServer {
	if port == "" {
		port = "8080"
	}

	server := &WebServer{
		router:     mux.NewRouter(),
		port:       port,
		engine:     eng,
		ownerToken: ownerToken,
	}

	server.setupRoutes()
	return server
}

// setupRoutes configures all HTTP routes
func (ws *WebServer) setupRoutes() {
	ws.router.HandleFunc("/health", ws.handleHealth).Methods("GET")

	api := ws.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", ws.handleHealth).Methods("GET")
	api.HandleFunc("/reserve", ws.handleGetReserve).Methods("GET")
	api.HandleFunc("/staking/{account}", ws.handleGetStaking).Methods("GET")
	api.HandleFunc("/receipts", ws.handleGetReceipts).Methods("GET")

	api.HandleFunc("/plan/mint", ws.handlePlanMint).Methods("POST")
	api.HandleFunc("/plan/burn", ws.handlePlanBurn).Methods("POST")
	api.HandleFunc("/plan/transfer", ws.handlePlanTransfer).Methods("POST")
	api.HandleFunc("/mint/confirm", ws.handleConfirmMint).Methods("POST")
	api.HandleFunc("/burn/confirm", ws.handleConfirmBurn).Methods("POST")

	api.HandleFunc("/stakes", ws.handleStake).Methods("POST")
	api.HandleFunc("/stakes/{id}/claim", ws.handleClaim).Methods("POST")

	owner := api.PathPrefix("/owner").Subrouter()
	owner.Use(ws.ownerAuthMiddleware)
	owner.HandleFunc("/unstake/{id}", ws.handleOwnerUnstake).Methods("POST")
	owner.HandleFunc("/reserve-ratio", ws.handleSetReserveRatio).Methods("POST")
	owner.HandleFunc("/withdraw-profit", ws.handleWithdrawProfit).Methods("POST")

	ws.router.Use(ws.corsMiddleware)
	ws.router.Use(ws.loggingMiddleware)
}

// Start starts the web server
func (ws *WebServer) Start() error {
	webLogger.Info().Str("port", ws.port).Msg("Starting web server")

	server := &http.Server{
		Addr:         ":" + ws.port,
		Handler:      ws.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return server.ListenAndServe()
}

// handleHealth reports server and database health.
func (ws *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	dbHealthy := true
	if err := state.TestDBConnection(); err != nil {
		dbHealthy = false
	}

	overallStatus := "OK"
	statusCode := http.StatusOK
	if !dbHealthy {
		overallStatus = "DEGRADED"
		statusCode = http.StatusServiceUnavailable
	}

	response := map[string]interface{}{
		"status":    overallStatus,
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		"system": map[string]interface{}{
			"version":          runtime.Version(),
			"goroutines_count": runtime.NumGoroutine(),
			"alloc_bytes":      memStats.Alloc,
			"sys_bytes":        memStats.Sys,
			"gc_cycles":        memStats.NumGC,
		},
		"component": map[string]interface{}{
			"name":    "hpe-collateral-engine",
			"version": "1.0.0",
		},
		"database_healthy": dbHealthy,
	}

	ws.writeJSONResponse(w, statusCode, response)
}

// handleGetReserve returns the owner dashboard reserve summary.
func (ws *WebServer) handleGetReserve(w http.ResponseWriter, r *http.Request) {
	summary := ws.engine.ReserveSummary()
	ws.writeJSONResponse(w, http.StatusOK, summary)
}

// handleGetStaking returns the per-account staking overview.
func (ws *WebServer) handleGetStaking(w http.ResponseWriter, r *http.Request) {
	account := mux.Vars(r)["account"]

	overview, err := ws.engine.StakingOverview(r.Context(), account)
	if err != nil {
		ws.writeEngineError(w, err, "Failed to build staking overview")
		return
	}
	ws.writeJSONResponse(w, http.StatusOK, overview)
}

// handleGetReceipts returns recent operation receipts.
func (ws *WebServer) handleGetReceipts(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsedLimit, err := strconv.Atoi(limitStr); err == nil && parsedLimit > 0 && parsedLimit <= 100 {
			limit = parsedLimit
		}
	}

	receipts, err := state.GetRecentReceipts(limit)
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to get receipts")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve receipts")
		return
	}

	response := map[string]interface{}{
		"receipts": receipts,
		"count":    len(receipts),
		"limit":    limit,
	}
	ws.writeJSONResponse(w, http.StatusOK, response)
}

type planRequest struct {
	Account   string `json:"account"`
	AmountHP  string `json:"amount_hp"`
	Recipient string `json:"recipient,omitempty"`
}

type confirmRequest struct {
	Account  string `json:"account"`
	AmountHP string `json:"amount_hp"`
	// AmountUSDT echoes the plan's collateral figure so the recorded deposit
	// matches what went on-chain even if the reserve ratio changed since planning.
	AmountUSDT string `json:"amount_usdt,omitempty"`
	TxHash     string `json:"tx_hash"`
}

func (ws *WebServer) handlePlanMint(w http.ResponseWriter, r *http.Request) {
	req, amount, ok := ws.decodePlanRequest(w, r)
	if !ok {
		return
	}

	plan, err := ws.engine.PlanMint(r.Context(), req.Account, amount)
	if err != nil {
		ws.writeEngineError(w, err, "Failed to plan mint")
		return
	}
	ws.writeJSONResponse(w, http.StatusOK, plan)
}

func (ws *WebServer) handlePlanBurn(w http.ResponseWriter, r *http.Request) {
	req, amount, ok := ws.decodePlanRequest(w, r)
	if !ok {
		return
	}

	plan, err := ws.engine.PlanBurn(r.Context(), req.Account, amount)
	if err != nil {
		ws.writeEngineError(w, err, "Failed to plan burn")
		return
	}
	ws.writeJSONResponse(w, http.StatusOK, plan)
}

func (ws *WebServer) handlePlanTransfer(w http.ResponseWriter, r *http.Request) {
	req, amount, ok := ws.decodePlanRequest(w, r)
	if !ok {
		return
	}

	plan, err := ws.engine.PlanTransfer(r.Context(), req.Account, amount, req.Recipient)
	if err != nil {
		ws.writeEngineError(w, err, "Failed to plan transfer")
		return
	}
	ws.writeJSONResponse(w, http.StatusOK, plan)
}

func (ws *WebServer) handleConfirmMint(w http.ResponseWriter, r *http.Request) {
	req, amount, ok := ws.decodeConfirmRequest(w, r)
	if !ok {
		return
	}

	deposited := sdkmath.LegacyDec{}
	if req.AmountUSDT != "" {
		var err error
		deposited, err = sdkmath.LegacyNewDecFromStr(req.AmountUSDT)
		if err != nil {
			ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid amount_usdt")
			return
		}
	}

	if err := ws.engine.ConfirmMint(r.Context(), req.Account, amount, deposited, req.TxHash); err != nil {
		ws.writeEngineError(w, err, "Failed to confirm mint")
		return
	}
	ws.writeJSONResponse(w, http.StatusOK, map[string]interface{}{"recorded": true})
}

func (ws *WebServer) handleConfirmBurn(w http.ResponseWriter, r *http.Request) {
	req, amount, ok := ws.decodeConfirmRequest(w, r)
	if !ok {
		return
	}

	if err := ws.engine.ConfirmBurn(r.Context(), req.Account, amount, req.TxHash); err != nil {
		ws.writeEngineError(w, err, "Failed to confirm burn")
		return
	}
	ws.writeJSONResponse(w, http.StatusOK, map[string]interface{}{"recorded": true})
}

func (ws *WebServer) handleStake(w http.ResponseWriter, r *http.Request) {
	req, amount, ok := ws.decodePlanRequest(w, r)
	if !ok {
		return
	}

	rec, err := ws.engine.Stake(r.Context(), req.Account, amount)
	if err != nil {
		ws.writeEngineError(w, err, "Failed to stake")
		return
	}
	ws.writeJSONResponse(w, http.StatusCreated, rec)
}

func (ws *WebServer) handleClaim(w http.ResponseWriter, r *http.Request) {
	recordID := mux.Vars(r)["id"]

	payout, err := ws.engine.ClaimStake(r.Context(), recordID)
	if err != nil {
		ws.writeEngineError(w, err, "Failed to claim stake")
		return
	}
	ws.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"stake_id":  recordID,
		"payout_hp": payout,
	})
}

func (ws *WebServer) handleOwnerUnstake(w http.ResponseWriter, r *http.Request) {
	recordID := mux.Vars(r)["id"]

	payout, err := ws.engine.OwnerUnstakeEarly(r.Context(), types.RoleOwner, recordID)
	if err != nil {
		ws.writeEngineError(w, err, "Failed to unstake early")
		return
	}
	ws.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"stake_id":         recordID,
		"payout_hp":        payout,
		"early_withdrawal": true,
	})
}

func (ws *WebServer) handleSetReserveRatio(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ReserveRatioPercent int64 `json:"reserve_ratio_percent"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := ws.engine.SetReserveRatio(types.RoleOwner, req.ReserveRatioPercent); err != nil {
		ws.writeEngineError(w, err, "Failed to set reserve ratio")
		return
	}
	ws.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"reserve_ratio_percent": req.ReserveRatioPercent,
	})
}

func (ws *WebServer) handleWithdrawProfit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AmountUSDT string `json:"amount_usdt"`
		TxHash     string `json:"tx_hash"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	amount, err := sdkmath.LegacyNewDecFromStr(req.AmountUSDT)
	if err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid amount_usdt")
		return
	}

	if err := ws.engine.WithdrawProfit(r.Context(), types.RoleOwner, amount, req.TxHash); err != nil {
		ws.writeEngineError(w, err, "Failed to withdraw profit")
		return
	}
	ws.writeJSONResponse(w, http.StatusOK, map[string]interface{}{"recorded": true})
}

func (ws *WebServer) decodePlanRequest(w http.ResponseWriter, r *http.Request) (planRequest, sdkmath.LegacyDec, bool) {
	var req planRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return req, sdkmath.LegacyDec{}, false
	}
	amount, err := sdkmath.LegacyNewDecFromStr(req.AmountHP)
	if err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid amount_hp")
		return req, sdkmath.LegacyDec{}, false
	}
	return req, amount, true
}

func (ws *WebServer) decodeConfirmRequest(w http.ResponseWriter, r *http.Request) (confirmRequest, sdkmath.LegacyDec, bool) {
	var req confirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return req, sdkmath.LegacyDec{}, false
	}
	amount, err := sdkmath.LegacyNewDecFromStr(req.AmountHP)
	if err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid amount_hp")
		return req, sdkmath.LegacyDec{}, false
	}
	return req, amount, true
}

// writeEngineError maps a known rejection to a stable reason payload and
// anything else to a 500.
func (ws *WebServer) writeEngineError(w http.ResponseWriter, err error, logMsg string) {
	if reason := types.RejectionReason(err); reason != "" {
		statusCode := http.StatusUnprocessableEntity
		if errors.Is(err, types.ErrUnauthorized) {
			statusCode = http.StatusForbidden
		} else if errors.Is(err, types.ErrNotFound) {
			statusCode = http.StatusNotFound
		}
		ws.writeJSONResponse(w, statusCode, map[string]interface{}{
			"error":     true,
			"reason":    reason,
			"message":   err.Error(),
			"timestamp": time.Now().UTC(),
		})
		return
	}

	webLogger.Error().Err(err).Msg(logMsg)
	ws.writeErrorResponse(w, http.StatusInternalServerError, logMsg)
}

// writeJSONResponse writes a JSON response
func (ws *WebServer) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		webLogger.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeErrorResponse writes an error response
func (ws *WebServer) writeErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	response := map[string]interface{}{
		"error":     true,
		"message":   message,
		"timestamp": time.Now().UTC(),
	}

	ws.writeJSONResponse(w, statusCode, response)
}

// ownerAuthMiddleware gates owner endpoints behind the configured bearer token.
func (ws *WebServer) ownerAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if ws.ownerToken == "" || subtle.ConstantTimeCompare([]byte(token), []byte(ws.ownerToken)) != 1 {
			ws.writeErrorResponse(w, http.StatusUnauthorized, "Owner capability required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// corsMiddleware adds CORS headers
func (ws *WebServer) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs HTTP requests
func (ws *WebServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Create a response writer wrapper to capture status code
		wrapper := &responseWriterWrapper{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapper, r)

		duration := time.Since(start)

		webLogger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("remote_addr", r.RemoteAddr).
			Int("status", wrapper.statusCode).
			Dur("duration", duration).
			Msg("HTTP request")
	})
}

// responseWriterWrapper wraps http.ResponseWriter to capture status code
type responseWriterWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (w *responseWriterWrapper) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}
