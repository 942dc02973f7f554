package license

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/romanzzaa/md5-predictor-bot/internal/domain"
)

// Registry - множество пользователей с доступом. Пользователь никогда не удаляется.
type Registry struct {
	mu         sync.RWMutex
	principals map[string]domain.Principal
	repo       domain.StateRepository
	now        func() time.Time
	logger     *slog.Logger
}

func NewRegistry(repo domain.StateRepository, principals map[string]domain.Principal, logger *slog.Logger) *Registry {
	owned := make(map[string]domain.Principal, len(principals))
	for id, p := range principals {
		owned[id] = p
	}
	return &Registry{
		principals: owned,
		repo:       repo,
		now:        func() time.Time { return time.Now().UTC() },
		logger:     logger.With("component", "activation_registry"),
	}
}

// Activate идемпотентна: повторная активация ничего не делает
func (r *Registry) Activate(ctx context.Context, principal string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.principals[principal]; ok {
		return nil
	}

	p := domain.Principal{ID: principal, ActivatedAt: r.now()}
	if err := r.repo.Commit(ctx, domain.Mutation{Principals: []domain.Principal{p}}); err != nil {
		return fmt.Errorf("%w: failed to persist activation: %w", domain.ErrPersistence, err)
	}
	r.principals[principal] = p

	r.logger.Info("principal activated", slog.String("principal", principal))
	return nil
}

func (r *Registry) IsActive(principal string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.principals[principal]
	return ok
}

func (r *Registry) Principal(id string) (domain.Principal, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.principals[id]
	return p, ok
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.principals)
}

// apply вызывается под r.mu после успешного коммита
func (r *Registry) apply(principals []domain.Principal) {
	for _, p := range principals {
		if _, ok := r.principals[p.ID]; !ok {
			r.principals[p.ID] = p
		}
	}
}
