package license

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/romanzzaa/md5-predictor-bot/internal/domain"
)

// Сколько раз пробуем сгенерировать ключ при коллизии
const maxIssueAttempts = 8

// KeyStore владеет всеми выпущенными ключами.
// Любое изменение сначала фиксируется в хранилище, потом применяется в памяти.
type KeyStore struct {
	mu     sync.Mutex
	keys   map[string]domain.ActivationKey
	repo   domain.StateRepository
	gen    *Generator
	now    func() time.Time
	logger *slog.Logger
}

func NewKeyStore(repo domain.StateRepository, keys map[string]domain.ActivationKey, logger *slog.Logger) *KeyStore {
	owned := make(map[string]domain.ActivationKey, len(keys))
	for code, k := range keys {
		owned[code] = k
	}
	return &KeyStore{
		keys:   owned,
		repo:   repo,
		gen:    NewGenerator(),
		now:    func() time.Time { return time.Now().UTC() },
		logger: logger.With("component", "key_store"),
	}
}

// Issue выпускает новый непогашенный ключ
func (s *KeyStore) Issue(ctx context.Context) (domain.ActivationKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	code, err := s.uniqueCode()
	if err != nil {
		return domain.ActivationKey{}, err
	}

	key := domain.ActivationKey{
		Code:      code,
		Status:    domain.KeyStatusUnredeemed,
		CreatedAt: s.now(),
	}

	if err := s.repo.Commit(ctx, domain.Mutation{Keys: []domain.ActivationKey{key}}); err != nil {
		return domain.ActivationKey{}, fmt.Errorf("%w: failed to persist issued key: %w", domain.ErrPersistence, err)
	}
	s.keys[code] = key

	s.logger.Info("key issued", slog.String("code", code))
	return key, nil
}

// uniqueCode вызывается под s.mu
func (s *KeyStore) uniqueCode() (string, error) {
	for attempt := 0; attempt < maxIssueAttempts; attempt++ {
		code, err := s.gen.Generate()
		if err != nil {
			return "", err
		}
		if _, exists := s.keys[code]; !exists {
			return code, nil
		}
		s.logger.Warn("generated key collides with existing one, regenerating", slog.Int("attempt", attempt+1))
	}
	return "", domain.ErrKeyspaceExhausted
}

// Redeem гасит ключ без активации пользователя
func (s *KeyStore) Redeem(ctx context.Context, code, principal string) (domain.RedemptionOutcome, error) {
	return s.redeem(ctx, code, principal, nil)
}

// redeem - проверка и пометка под одним замком. Если передан registry,
// новый пользователь попадает в тот же коммит, что и ключ.
// Порядок замков всегда KeyStore -> Registry.
func (s *KeyStore) redeem(ctx context.Context, code, principal string, registry *Registry) (domain.RedemptionOutcome, error) {
	code, err := domain.NormalizeKeyCode(code)
	if err != nil {
		return domain.RedemptionNotFound, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key, ok := s.keys[code]
	if !ok {
		return domain.RedemptionNotFound, nil
	}
	if key.IsRedeemed() {
		return domain.RedemptionAlreadyRedeemed, nil
	}

	now := s.now()
	key.Status = domain.KeyStatusRedeemed
	key.RedeemedBy = principal
	key.RedeemedAt = &now

	m := domain.Mutation{Keys: []domain.ActivationKey{key}}

	if registry != nil {
		registry.mu.Lock()
		defer registry.mu.Unlock()
		if _, active := registry.principals[principal]; !active {
			m.Principals = append(m.Principals, domain.Principal{ID: principal, ActivatedAt: now})
		}
	}

	if err := s.repo.Commit(ctx, m); err != nil {
		return domain.RedemptionNotFound, fmt.Errorf("%w: failed to persist redemption: %w", domain.ErrPersistence, err)
	}

	s.keys[code] = key
	if registry != nil {
		registry.apply(m.Principals)
	}

	s.logger.Info("key redeemed",
		slog.String("code", code),
		slog.String("principal", principal))
	return domain.RedemptionSuccess, nil
}

// Lookup ищет ключ; регистр и пробелы не важны
func (s *KeyStore) Lookup(code string) (domain.ActivationKey, bool) {
	code, err := domain.NormalizeKeyCode(code)
	if err != nil {
		return domain.ActivationKey{}, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	key, ok := s.keys[code]
	return key, ok
}

// Keys возвращает копию всех ключей, старые первыми
func (s *KeyStore) Keys() []domain.ActivationKey {
	s.mu.Lock()
	out := make([]domain.ActivationKey, 0, len(s.keys))
	for _, k := range s.keys {
		out = append(out, k)
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].Code < out[j].Code
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// KeyStats - счетчики для админа
type KeyStats struct {
	Issued   int
	Redeemed int
}

func (s *KeyStore) Stats() KeyStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := KeyStats{Issued: len(s.keys)}
	for _, k := range s.keys {
		if k.IsRedeemed() {
			st.Redeemed++
		}
	}
	return st
}
