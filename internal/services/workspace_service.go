package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"fincycle/internal/core"
	"fincycle/internal/storage"
)

type SignupRequest struct {
	Email    string
	Name     string
	Currency string
}

// SignupResult carries the bearer token in clear. Only its hash is stored.
type SignupResult struct {
	Workspace core.Workspace
	Member    core.Member
	Token     string
}

// WorkspaceService creates workspaces and resolves bearer tokens to members.
type WorkspaceService struct {
	store           storage.WorkspaceStore
	defaultCurrency string
	now             func() time.Time
}

func NewWorkspaceService(store storage.WorkspaceStore, defaultCurrency string) *WorkspaceService {
	return &WorkspaceService{store: store, defaultCurrency: strings.ToUpper(defaultCurrency), now: time.Now}
}

// HashToken returns the stored form of a bearer token.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func newToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

func (s *WorkspaceService) Signup(ctx context.Context, req SignupRequest) (SignupResult, error) {
	email := strings.TrimSpace(req.Email)
	if _, err := mail.ParseAddress(email); err != nil {
		return SignupResult{}, core.Invalid("email", "valid email is required")
	}
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = s.defaultCurrency
	}
	if err := (core.Money{Cents: 1, Currency: currency}).Validate(); err != nil {
		return SignupResult{}, err
	}

	token, err := newToken()
	if err != nil {
		return SignupResult{}, err
	}
	ws := core.Workspace{ID: uuid.NewString(), DefaultCurrency: currency, CreatedAt: s.now().UTC()}
	m := core.Member{ID: uuid.NewString(), WorkspaceID: ws.ID, Email: email, Name: strings.TrimSpace(req.Name)}

	if err := s.store.CreateWorkspace(ctx, ws, m, HashToken(token)); err != nil {
		return SignupResult{}, fmt.Errorf("create workspace: %w", err)
	}
	slog.InfoContext(ctx, "Workspace created", "workspace_id", ws.ID, "member_id", m.ID, "currency", currency)
	return SignupResult{Workspace: ws, Member: m, Token: token}, nil
}

// Authenticate resolves a bearer token. Unknown tokens yield core.ErrUnauthorized.
func (s *WorkspaceService) Authenticate(ctx context.Context, token string) (core.Member, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return core.Member{}, core.ErrUnauthorized
	}
	return s.store.MemberByTokenHash(ctx, HashToken(token))
}
