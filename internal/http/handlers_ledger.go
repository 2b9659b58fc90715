package http

import (
	"net/http"

	"fincycle/internal/core"
)

func (s *Server) handleListDebts(w http.ResponseWriter, r *http.Request) {
	debts, err := s.ledger.ListDebts(r.Context(), workspaceID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]debtResponse, 0, len(debts))
	for _, d := range debts {
		out = append(out, toDebt(d))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetDebt(w http.ResponseWriter, r *http.Request) {
	d, err := s.ledger.GetDebt(r.Context(), workspaceID(r), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toDebt(d))
}

func (s *Server) handleCreateDebt(w http.ResponseWriter, r *http.Request) {
	var body debtRequest
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	in, err := body.toInput()
	if err != nil {
		writeError(w, r, err)
		return
	}
	d, err := s.ledger.CreateDebt(r.Context(), workspaceID(r), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toDebt(d))
}

func (s *Server) handleUpdateDebt(w http.ResponseWriter, r *http.Request) {
	var body debtRequest
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	in, err := body.toInput()
	if err != nil {
		writeError(w, r, err)
		return
	}
	d, err := s.ledger.UpdateDebt(r.Context(), workspaceID(r), r.PathValue("id"), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toDebt(d))
}

func (s *Server) handleDeleteDebt(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.DeleteDebt(r.Context(), workspaceID(r), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListIncomes(w http.ResponseWriter, r *http.Request) {
	incomes, err := s.ledger.ListIncomes(r.Context(), workspaceID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]incomeResponse, 0, len(incomes))
	for _, i := range incomes {
		out = append(out, toIncome(i))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetIncome(w http.ResponseWriter, r *http.Request) {
	i, err := s.ledger.GetIncome(r.Context(), workspaceID(r), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toIncome(i))
}

func (s *Server) handleCreateIncome(w http.ResponseWriter, r *http.Request) {
	var body incomeRequest
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	in, err := body.toInput()
	if err != nil {
		writeError(w, r, err)
		return
	}
	i, err := s.ledger.CreateIncome(r.Context(), workspaceID(r), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toIncome(i))
}

func (s *Server) handleUpdateIncome(w http.ResponseWriter, r *http.Request) {
	var body incomeRequest
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	in, err := body.toInput()
	if err != nil {
		writeError(w, r, err)
		return
	}
	i, err := s.ledger.UpdateIncome(r.Context(), workspaceID(r), r.PathValue("id"), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toIncome(i))
}

func (s *Server) handleDeleteIncome(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.DeleteIncome(r.Context(), workspaceID(r), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Owners (debt counterparties) and payers (income counterparties) share
// handlers parameterized by kind.

func (s *Server) handleListCounterparties(kind core.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := s.ledger.ListCounterparties(r.Context(), workspaceID(r), kind)
		if err != nil {
			writeError(w, r, err)
			return
		}
		out := make([]counterpartyResponse, 0, len(list))
		for _, c := range list {
			out = append(out, toCounterparty(c))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func (s *Server) handleCreateCounterparty(kind core.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body counterpartyRequest
		if err := decodeJSON(w, r, &body); err != nil {
			writeError(w, r, err)
			return
		}
		c, err := s.ledger.CreateCounterparty(r.Context(), workspaceID(r), kind, sanitizeInput(body.Name))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, toCounterparty(c))
	}
}

func (s *Server) handleDeleteCounterparty(kind core.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.ledger.DeleteCounterparty(r.Context(), workspaceID(r), kind, r.PathValue("id")); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
