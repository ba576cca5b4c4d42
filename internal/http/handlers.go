package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"receivables/internal/core"
	"receivables/internal/ledger"
	"receivables/internal/log"
	"receivables/internal/services"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewResponse().Raw(map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	}).Write(w)
}

// handleReady pings the ledger store.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any)

	if err := s.ledger.Ping(ctx); err != nil {
		checks["store"] = fmt.Sprintf("failed: %v", err)
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["store"] = "ok"
	}

	if s.rateLimiter != nil {
		checks["rate_limiter"] = map[string]any{
			"active_clients": s.rateLimiter.ActiveClients(),
			"denied":         s.rateLimiter.Denied(),
		}
	} else {
		checks["rate_limiter"] = "disabled"
	}

	sec := s.detector.GetMetrics()
	tr := s.tracer.GetMetrics()
	checks["requests"] = map[string]any{
		"total":      tr.TotalRequests,
		"suspicious": sec.SuspiciousRequests,
	}

	NewResponse().Status(httpStatus).Raw(map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	}).Write(w)
}

// writeError maps service and request errors to status codes. Anything not
// recognised is a store failure.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		reqErr *requestError
		valErr *services.ValidationError
	)
	switch {
	case errors.As(err, &reqErr):
		ErrorResponse(http.StatusBadRequest, reqErr.message, reqErr.details).Write(w)
	case errors.As(err, &valErr):
		BadRequestError(validationMessage(valErr)).Write(w)
	case errors.Is(err, services.ErrReceivableNotFound):
		NotFoundError("Receivable not found").Write(w)
	case errors.Is(err, services.ErrPaymentNotFound):
		NotFoundError("Payment not found").Write(w)
	case errors.Is(err, services.ErrCustomerNotFound):
		NotFoundError("Customer not found").Write(w)
	case errors.Is(err, ledger.ErrNotFound):
		NotFoundError("Not found").Write(w)
	case errors.Is(err, ledger.ErrConflict):
		ConflictError("Record already exists").Write(w)
	default:
		fields := log.NewFields().WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, r.UserAgent(), r.Referer())
		log.NewStructuredLogger(log.FromContext(r.Context())).
			LogError(r.Context(), "Request failed", err, log.ComponentHTTP, log.OpRead, fields)
		InternalServerError(err.Error()).Write(w)
	}
}

// validationMessage renders domain validation failures the way the request
// parser does, so clients see one wording per problem.
func validationMessage(err *services.ValidationError) string {
	switch {
	case errors.Is(err, core.ErrInvalidAmount):
		return "Amount must be a positive number"
	case errors.Is(err, core.ErrEmptyCustomer):
		return "Missing required fields: customer_name"
	case errors.Is(err, core.ErrEmptyCity):
		return "Missing required fields: city"
	case errors.Is(err, core.ErrEmptyReceivableID):
		return "Missing required fields: receivable_id"
	case errors.Is(err, core.ErrEmptyPaymentType):
		return "Missing required fields: payment_type"
	case errors.Is(err, core.ErrUnknownPeriod):
		return "Invalid period"
	default:
		return err.Error()
	}
}

func logMutation(ctx context.Context, entity, op, id string) {
	log.NewStructuredLogger(log.FromContext(ctx)).LogLedgerMutation(ctx, entity, id, op)
}
