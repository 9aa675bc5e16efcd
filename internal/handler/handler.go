package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Dan9191/repayment-predictor/internal/config"
	"github.com/Dan9191/repayment-predictor/internal/loader"
	"github.com/Dan9191/repayment-predictor/internal/middleware"
	"github.com/Dan9191/repayment-predictor/internal/service"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// Reloader refreshes the ledger and model artifacts on demand
type Reloader interface {
	Reload(ctx context.Context) error
}

type Handler struct {
	svc      *service.Service
	reloader Reloader
	log      *logrus.Logger
}

func NewHandler(svc *service.Service, reloader Reloader, log *logrus.Logger) *Handler {
	return &Handler{svc: svc, reloader: reloader, log: log}
}

// PredictionRequest is the body of a prediction call
type PredictionRequest struct {
	InvestorID string `json:"investor_id"`
	BorrowerID *int64 `json:"borrower_id"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// NewRouter registers all routes. Request ids and request logging wrap the
// whole router so unmatched routes are covered too.
func NewRouter(h *Handler, cfg *config.Config) http.Handler {
	r := mux.NewRouter()

	// Public routes
	r.HandleFunc("/", h.Root).Methods("GET")
	r.HandleFunc("/ready", h.Ready).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	// Protected routes
	predict := r.PathPrefix("/predict-repayment").Subrouter()
	predict.Use(middleware.AuthMiddleware(cfg))
	predict.HandleFunc("", h.PredictRepayment).Methods("POST")

	admin := r.PathPrefix("/admin").Subrouter()
	admin.Use(middleware.AdminMiddleware(cfg))
	admin.HandleFunc("/reload", h.Reload).Methods("POST")

	return middleware.RequestID(middleware.Logging(h.log)(r))
}

// PredictRepayment handles repayment predictions for a borrower
func (h *Handler) PredictRepayment(w http.ResponseWriter, r *http.Request) {
	var req PredictionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if req.InvestorID == "" || req.BorrowerID == nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "investor_id and borrower_id are required"})
		return
	}

	h.log.WithFields(logrus.Fields{
		"investor_id":   req.InvestorID,
		"authenticated": middleware.InvestorFrom(r.Context()),
		"borrower_id":   *req.BorrowerID,
		"request_id":    middleware.RequestIDFrom(r.Context()),
	}).Info("Prediction requested")

	result, err := h.svc.GetPrediction(*req.BorrowerID)
	if err != nil {
		writeJSON(w, statusFor(err), errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Root reports that the API is running
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Repayment Prediction API is running and ready to make predictions.",
	})
}

// Ready reports whether predictions can be served
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if !h.svc.Ready() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// Reload triggers an immediate ledger and artifact reload. The reload is not
// tied to the client connection.
func (h *Handler) Reload(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), loader.ReloadTimeout)
	defer cancel()

	if err := h.reloader.Reload(ctx); err != nil {
		h.log.WithFields(logrus.Fields{
			"request_id": middleware.RequestIDFrom(r.Context()),
		}).WithError(err).Error("Manual reload failed")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "reload failed"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "reloaded"})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrBorrowerNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrServiceNotReady):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
