package services

import (
	"context"
	"log/slog"
	"strings"

	"fincycle/internal/core"
	"fincycle/internal/exchange"
	applog "fincycle/internal/log"
	"fincycle/internal/storage"
)

// ExchangeService converts amounts into a workspace's base currency.
type ExchangeService struct {
	workspaces storage.WorkspaceStore
	rates      exchange.RateProvider
}

func NewExchangeService(workspaces storage.WorkspaceStore, rates exchange.RateProvider) *ExchangeService {
	return &ExchangeService{workspaces: workspaces, rates: rates}
}

func (s *ExchangeService) Convert(ctx context.Context, workspaceID string, amountMinor int64, currency string) (core.Money, error) {
	if amountMinor < 0 {
		return core.Money{}, core.Invalid("amountMinor", "must not be negative")
	}
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if err := (core.Money{Cents: 1, Currency: currency}).Validate(); err != nil {
		return core.Money{}, err
	}
	ws, err := s.workspaces.GetWorkspace(ctx, workspaceID)
	if err != nil {
		return core.Money{}, err
	}
	cents, err := exchange.NewNormalizer(ws.DefaultCurrency, s.rates).Normalize(ctx, amountMinor, currency)
	if err != nil {
		return core.Money{}, err
	}
	slog.DebugContext(ctx, "Amount converted",
		applog.FieldComponent, applog.ComponentExchange,
		applog.FieldOperation, applog.OpConvert,
		"from", currency, "to", ws.DefaultCurrency)
	return core.Money{Cents: cents, Currency: ws.DefaultCurrency}, nil
}
