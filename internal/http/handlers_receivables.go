package http

import (
	"net/http"

	"receivables/internal/amqp"
	"receivables/internal/log"
)

func (s *Server) handleListReceivables(w http.ResponseWriter, r *http.Request) {
	f, err := ParseReceivableFilter(r.URL.Query())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	items, err := s.ledger.ListReceivables(r.Context(), f)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	NewResponse().Data(items).Write(w)
}

func (s *Server) handleCreateReceivable(w http.ResponseWriter, r *http.Request) {
	rec, err := DecodeReceivable(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	created, err := s.ledger.CreateReceivable(r.Context(), rec)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	logMutation(r.Context(), amqp.EntityReceivable, log.OpCreate, created.ID)
	NewResponse().Status(http.StatusCreated).Data(created).Write(w)
}

func (s *Server) handleGetReceivable(w http.ResponseWriter, r *http.Request) {
	rb, err := s.ledger.GetReceivable(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	NewResponse().Data(rb).Write(w)
}

// handleUpdateReceivable replaces the whole record; every required field
// must be sent again.
func (s *Server) handleUpdateReceivable(w http.ResponseWriter, r *http.Request) {
	rec, err := DecodeReceivable(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	id := r.PathValue("id")
	updated, err := s.ledger.UpdateReceivable(r.Context(), id, rec)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	logMutation(r.Context(), amqp.EntityReceivable, log.OpUpdate, id)
	NewResponse().Data(updated).Write(w)
}

func (s *Server) handleDeleteReceivable(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.ledger.DeleteReceivable(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	logMutation(r.Context(), amqp.EntityReceivable, log.OpDelete, id)
	NewResponse().Message("Receivable deleted successfully").Write(w)
}

func (s *Server) handleListReceivablePayments(w http.ResponseWriter, r *http.Request) {
	payments, err := s.ledger.ListPaymentsForReceivable(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	NewResponse().Data(payments).Write(w)
}
