package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"fincycle/internal/core"
	"fincycle/internal/services"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReady reports whether the store answers within two seconds.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.store.Ping(ctx); err != nil {
		writeError(w, r, core.Upstream("ping store", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var body signupRequest
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := s.workspaces.Signup(r.Context(), services.SignupRequest{
		Email:    body.Email,
		Name:     sanitizeInput(body.Name),
		Currency: body.Currency,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, signupResponse{
		WorkspaceID: res.Workspace.ID,
		MemberID:    res.Member.ID,
		Currency:    res.Workspace.DefaultCurrency,
		Token:       res.Token,
	})
}

// handleSyncHook accepts a row change notification. Unknown fields of the
// row are ignored, so the hook takes the store's full row as is.
func (s *Server) handleSyncHook(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var ev core.SyncEvent
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		writeError(w, r, core.Invalid("body", "malformed sync event"))
		return
	}
	if err := ev.Validate(); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.publisher.PublishSync(r.Context(), ev); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, syncResponse{Accepted: true, Table: ev.Table, SourceID: ev.Subject().ID})
}

func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	var body convertRequest
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	if body.AmountMinor == nil {
		writeError(w, r, core.Invalid("amountMinor", "amountMinor is required"))
		return
	}
	m, err := s.exchange.Convert(r.Context(), workspaceID(r), *body.AmountMinor, body.Currency)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, convertResponse{
		AmountMinor: m.Cents,
		Currency:    m.Currency,
		Formatted:   core.FormatCents(m.Cents, m.Currency),
	})
}
