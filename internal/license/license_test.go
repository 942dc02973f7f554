package license

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/romanzzaa/md5-predictor-bot/internal/domain"
)

var errDiskFull = errors.New("disk full")

// memRepo - хранилище в памяти с возможностью отказа
type memRepo struct {
	mu      sync.Mutex
	state   domain.State
	commits []domain.Mutation
	failErr error
}

func newMemRepo() *memRepo {
	return &memRepo{state: domain.NewState()}
}

func (r *memRepo) Load(ctx context.Context) (domain.State, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := domain.NewState()
	for c, k := range r.state.Keys {
		out.Keys[c] = k
	}
	for id, p := range r.state.Principals {
		out.Principals[id] = p
	}
	return out, nil
}

func (r *memRepo) Commit(ctx context.Context, m domain.Mutation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failErr != nil {
		return r.failErr
	}
	r.state.Apply(m)
	r.commits = append(r.commits, m)
	return nil
}

func (r *memRepo) fail(err error) {
	r.mu.Lock()
	r.failErr = err
	r.mu.Unlock()
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func openGateway(t *testing.T, repo domain.StateRepository) *Gateway {
	t.Helper()
	g, err := Open(context.Background(), repo, testLogger())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return g
}
