package http

import (
	"net/http"

	"receivables/internal/amqp"
	"receivables/internal/log"
)

func (s *Server) handleListPayments(w http.ResponseWriter, r *http.Request) {
	f, err := ParsePaymentFilter(r.URL.Query())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	payments, err := s.ledger.ListPayments(r.Context(), f)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	NewResponse().Data(payments).Write(w)
}

// handleCreatePayment records a payment; the receivable must exist.
func (s *Server) handleCreatePayment(w http.ResponseWriter, r *http.Request) {
	p, err := DecodePayment(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	created, err := s.ledger.CreatePayment(r.Context(), p)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	logMutation(r.Context(), amqp.EntityPayment, log.OpCreate, created.ID)
	NewResponse().Status(http.StatusCreated).Data(created).Write(w)
}

func (s *Server) handleGetPayment(w http.ResponseWriter, r *http.Request) {
	p, err := s.ledger.GetPayment(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	NewResponse().Data(p).Write(w)
}

func (s *Server) handleUpdatePayment(w http.ResponseWriter, r *http.Request) {
	p, err := DecodePayment(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	id := r.PathValue("id")
	updated, err := s.ledger.UpdatePayment(r.Context(), id, p)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	logMutation(r.Context(), amqp.EntityPayment, log.OpUpdate, id)
	NewResponse().Data(updated).Write(w)
}

func (s *Server) handleDeletePayment(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.ledger.DeletePayment(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	logMutation(r.Context(), amqp.EntityPayment, log.OpDelete, id)
	NewResponse().Message("Payment deleted successfully").Write(w)
}
