package http

import (
	"net/http"

	"fincycle/internal/core"
)

// handleMonth returns the materialized cycle of a month, or its forecast.
func (s *Server) handleMonth(w http.ResponseWriter, r *http.Request) {
	month, err := ParseMonth(r.PathValue("month"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	view, err := s.cycles.Month(r.Context(), workspaceID(r), month)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCycle(view))
}

func (s *Server) handleKickstart(w http.ResponseWriter, r *http.Request) {
	var body kickstartRequest
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	req, err := body.toService(workspaceID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	res, err := s.materializer.Kickstart(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	status := http.StatusCreated
	if !res.Created {
		status = http.StatusOK
	}
	s.events.LogKickstart(r.Context(), req.WorkspaceID, res.Cycle.ID, res.Cycle.Month.String(), len(res.Items), res.Created)
	writeJSON(w, status, kickstartResponse{
		Success: true,
		Created: res.Created,
		CycleID: res.Cycle.ID,
		Month:   res.Cycle.Month.String(),
		Items:   len(res.Items),
	})
}

func (s *Server) handleGroupStatus(w http.ResponseWriter, r *http.Request) {
	var body groupStatusRequest
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	g, err := s.status.SetGroupStatus(r.Context(), workspaceID(r), r.PathValue("id"), body.Kind, body.GroupID, body.Status)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toGroup(g, s.currency(r)))
}

func (s *Server) handleLineItemStatus(w http.ResponseWriter, r *http.Request) {
	var body statusRequest
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	it, err := s.status.SetLineItemStatus(r.Context(), workspaceID(r), r.PathValue("id"), body.Status)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toLineItem(it, s.currency(r)))
}

func (s *Server) handleLineItemAmount(w http.ResponseWriter, r *http.Request) {
	var body amountRequest
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	if body.AmountMinor == nil {
		writeError(w, r, core.Invalid("amountMinor", "amountMinor is required"))
		return
	}
	it, err := s.status.SetLineItemAmount(r.Context(), workspaceID(r), r.PathValue("id"), *body.AmountMinor)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toLineItem(it, s.currency(r)))
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	expenses, err := s.expenses.ListExpenses(r.Context(), workspaceID(r), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]expenseResponse, 0, len(expenses))
	for _, e := range expenses {
		out = append(out, toExpense(e))
	}
	writeJSON(w, http.StatusOK, out)
}

// handleAddExpense adds an expense to a cycle. The path segment is either a
// cycle id or a month; a month that is still a forecast answers 409.
func (s *Server) handleAddExpense(w http.ResponseWriter, r *http.Request) {
	var body expenseRequest
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	e, err := body.toExpense()
	if err != nil {
		writeError(w, r, err)
		return
	}

	ref := r.PathValue("id")
	if month, perr := ParseMonth(ref); perr == nil {
		e, err = s.expenses.AddExpenseToMonth(r.Context(), workspaceID(r), month, e)
	} else {
		e, err = s.expenses.AddExpense(r.Context(), workspaceID(r), ref, e)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toExpense(e))
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	if err := s.expenses.DeleteExpense(r.Context(), workspaceID(r), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
