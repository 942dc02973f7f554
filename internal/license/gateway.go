// Package license - выпуск и погашение ключей активации.
package license

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/romanzzaa/md5-predictor-bot/internal/domain"
)

// Gateway - единственная точка входа для транспорта
type Gateway struct {
	keys     *KeyStore
	registry *Registry
	logger   *slog.Logger
}

func NewGateway(keys *KeyStore, registry *Registry, logger *slog.Logger) *Gateway {
	return &Gateway{
		keys:     keys,
		registry: registry,
		logger:   logger.With("component", "access_gateway"),
	}
}

// Open загружает состояние из хранилища и собирает Gateway
func Open(ctx context.Context, repo domain.StateRepository, logger *slog.Logger) (*Gateway, error) {
	state, err := repo.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to load state: %w", domain.ErrPersistence, err)
	}

	logger.Info("state loaded",
		slog.Int("keys", len(state.Keys)),
		slog.Int("principals", len(state.Principals)))

	keys := NewKeyStore(repo, state.Keys, logger)
	registry := NewRegistry(repo, state.Principals, logger)
	return NewGateway(keys, registry, logger), nil
}

// Redeem гасит ключ и активирует пользователя одним коммитом.
// Битый формат ключа - это KeyNotFound, а не ошибка.
func (g *Gateway) Redeem(ctx context.Context, principal, code string) (domain.GatewayOutcome, error) {
	if strings.TrimSpace(principal) == "" {
		return domain.OutcomeKeyNotFound, fmt.Errorf("%w: empty principal", domain.ErrInvalidInput)
	}

	normalized, err := domain.NormalizeKeyCode(code)
	if err != nil {
		g.logger.Debug("malformed key rejected", slog.String("principal", principal))
		return domain.OutcomeKeyNotFound, nil
	}

	outcome, err := g.keys.redeem(ctx, normalized, principal, g.registry)
	if err != nil {
		g.logger.Error("redemption failed",
			slog.String("principal", principal),
			slog.String("error", err.Error()))
		return domain.OutcomeKeyNotFound, err
	}

	switch outcome {
	case domain.RedemptionSuccess:
		return domain.OutcomeActivated, nil
	case domain.RedemptionAlreadyRedeemed:
		return domain.OutcomeKeyAlreadyUsed, nil
	default:
		return domain.OutcomeKeyNotFound, nil
	}
}

func (g *Gateway) IsActivated(principal string) bool {
	return g.registry.IsActive(principal)
}

// IssueKey - права проверяет транспорт, сюда приходит только флаг
func (g *Gateway) IssueKey(ctx context.Context, isAuthorized bool) (domain.ActivationKey, error) {
	if !isAuthorized {
		return domain.ActivationKey{}, domain.ErrUnauthorized
	}
	return g.keys.Issue(ctx)
}

// Lookup - только чтение, для админских инструментов
func (g *Gateway) Lookup(code string) (domain.ActivationKey, bool) {
	return g.keys.Lookup(code)
}

// List возвращает копию всех ключей, старые первыми
func (g *Gateway) List() []domain.ActivationKey {
	return g.keys.Keys()
}

func (g *Gateway) Principal(id string) (domain.Principal, bool) {
	return g.registry.Principal(id)
}

// Stats - сводка для админской команды /status
type Stats struct {
	KeysIssued   int
	KeysRedeemed int
	Activated    int
}

func (g *Gateway) Stats() Stats {
	ks := g.keys.Stats()
	return Stats{
		KeysIssued:   ks.Issued,
		KeysRedeemed: ks.Redeemed,
		Activated:    g.registry.Count(),
	}
}
