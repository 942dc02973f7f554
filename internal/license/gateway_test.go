package license

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"

	"github.com/romanzzaa/md5-predictor-bot/internal/domain"
)

func TestGateway_IssueKeyRequiresAuthorization(t *testing.T) {
	repo := newMemRepo()
	g := openGateway(t, repo)

	if _, err := g.IssueKey(context.Background(), false); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("err = %v, want ErrUnauthorized", err)
	}
	if len(repo.commits) != 0 {
		t.Fatal("unauthorized issue must not touch storage")
	}

	key, err := g.IssueKey(context.Background(), true)
	if err != nil {
		t.Fatalf("IssueKey: %v", err)
	}
	if _, ok := g.Lookup(key.Code); !ok {
		t.Fatal("issued key not found")
	}
}

func TestGateway_RedeemActivatesPrincipal(t *testing.T) {
	ctx := context.Background()
	repo := newMemRepo()
	g := openGateway(t, repo)
	key, _ := g.IssueKey(ctx, true)

	if g.IsActivated("42") {
		t.Fatal("principal active before redemption")
	}

	got, err := g.Redeem(ctx, "42", key.Code)
	if err != nil || got != domain.OutcomeActivated {
		t.Fatalf("Redeem = %s, %v", got, err)
	}
	for i := 0; i < 3; i++ {
		if !g.IsActivated("42") {
			t.Fatal("principal not active after redemption")
		}
	}

	// Ключ и пользователь ушли в хранилище одним коммитом
	last := repo.commits[len(repo.commits)-1]
	if len(last.Keys) != 1 || len(last.Principals) != 1 || last.Principals[0].ID != "42" {
		t.Fatalf("redemption commit = %+v", last)
	}
	if !last.Keys[0].RedeemedAt.Equal(last.Principals[0].ActivatedAt) {
		t.Fatal("key and principal timestamps differ")
	}
}

func TestGateway_SecondKeyForActivePrincipal(t *testing.T) {
	ctx := context.Background()
	repo := newMemRepo()
	g := openGateway(t, repo)
	k1, _ := g.IssueKey(ctx, true)
	k2, _ := g.IssueKey(ctx, true)

	if got, _ := g.Redeem(ctx, "42", k1.Code); got != domain.OutcomeActivated {
		t.Fatalf("first = %s", got)
	}
	first, _ := g.Principal("42")

	if got, _ := g.Redeem(ctx, "42", k2.Code); got != domain.OutcomeActivated {
		t.Fatalf("second = %s", got)
	}
	last := repo.commits[len(repo.commits)-1]
	if len(last.Principals) != 0 {
		t.Fatal("already active principal must not be re-committed")
	}
	if p, _ := g.Principal("42"); !p.ActivatedAt.Equal(first.ActivatedAt) {
		t.Fatal("activated_at changed")
	}
}

func TestGateway_RedeemRejections(t *testing.T) {
	ctx := context.Background()
	repo := newMemRepo()
	g := openGateway(t, repo)
	key, _ := g.IssueKey(ctx, true)
	if _, err := g.Redeem(ctx, "1", key.Code); err != nil {
		t.Fatal(err)
	}
	commits := len(repo.commits)

	tests := []struct {
		name string
		code string
		want domain.GatewayOutcome
	}{
		{"empty", "", domain.OutcomeKeyNotFound},
		{"garbage", "hello", domain.OutcomeKeyNotFound},
		{"wrong separators", "AAAA_BBBB_CCCC_DDDD", domain.OutcomeKeyNotFound},
		{"unknown", "AAAA-BBBB-CCCC-DDDD", domain.OutcomeKeyNotFound},
		{"used", key.Code, domain.OutcomeKeyAlreadyUsed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := g.Redeem(ctx, "2", tt.code)
			if err != nil {
				t.Fatalf("Redeem: %v", err)
			}
			if got != tt.want {
				t.Fatalf("outcome = %s, want %s", got, tt.want)
			}
		})
	}

	if g.IsActivated("2") {
		t.Fatal("rejected principal became active")
	}
	if len(repo.commits) != commits {
		t.Fatal("rejections must not write to storage")
	}
}

func TestGateway_RedeemEmptyPrincipal(t *testing.T) {
	g := openGateway(t, newMemRepo())
	key, _ := g.IssueKey(context.Background(), true)

	if _, err := g.Redeem(context.Background(), " ", key.Code); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}
}

func TestGateway_PersistenceFailure(t *testing.T) {
	ctx := context.Background()
	repo := newMemRepo()
	g := openGateway(t, repo)
	key, _ := g.IssueKey(ctx, true)

	repo.fail(errDiskFull)
	if _, err := g.Redeem(ctx, "9", key.Code); !errors.Is(err, domain.ErrPersistence) {
		t.Fatalf("err = %v, want ErrPersistence", err)
	}
	if g.IsActivated("9") {
		t.Fatal("principal activated without commit")
	}
	if k, _ := g.Lookup(key.Code); k.IsRedeemed() {
		t.Fatal("key consumed without commit")
	}

	repo.fail(nil)
	if got, err := g.Redeem(ctx, "9", key.Code); err != nil || got != domain.OutcomeActivated {
		t.Fatalf("after recovery: %s %v", got, err)
	}
}

func TestGateway_ConcurrentRedeemDifferentPrincipals(t *testing.T) {
	ctx := context.Background()
	g := openGateway(t, newMemRepo())
	key, _ := g.IssueKey(ctx, true)

	const k = 16
	results := make([]domain.GatewayOutcome, k)
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < k; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			out, err := g.Redeem(ctx, "user-"+strconv.Itoa(i), key.Code)
			if err != nil {
				t.Errorf("Redeem: %v", err)
			}
			results[i] = out
		}(i)
	}
	close(start)
	wg.Wait()

	activated, used := 0, 0
	winner := ""
	for i, r := range results {
		switch r {
		case domain.OutcomeActivated:
			activated++
			winner = "user-" + strconv.Itoa(i)
		case domain.OutcomeKeyAlreadyUsed:
			used++
		}
	}
	if activated != 1 || used != k-1 {
		t.Fatalf("activated=%d used=%d", activated, used)
	}
	if g.registry.Count() != 1 || !g.IsActivated(winner) {
		t.Fatalf("registry count=%d, winner %s active=%v", g.registry.Count(), winner, g.IsActivated(winner))
	}
}

func TestRegistry_ActivateIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := newMemRepo()
	r := NewRegistry(repo, nil, testLogger())

	for i := 0; i < 3; i++ {
		if err := r.Activate(ctx, "7"); err != nil {
			t.Fatalf("Activate: %v", err)
		}
	}
	if !r.IsActive("7") || r.Count() != 1 {
		t.Fatal("principal not active")
	}
	if len(repo.commits) != 1 {
		t.Fatalf("commits = %d, want 1", len(repo.commits))
	}

	repo.fail(errDiskFull)
	if err := r.Activate(ctx, "8"); !errors.Is(err, domain.ErrPersistence) {
		t.Fatalf("err = %v, want ErrPersistence", err)
	}
	if r.IsActive("8") {
		t.Fatal("principal active without commit")
	}
}

type failingLoadRepo struct{ memRepo }

func (*failingLoadRepo) Load(context.Context) (domain.State, error) {
	return domain.State{}, errDiskFull
}

func TestOpen_LoadFailure(t *testing.T) {
	_, err := Open(context.Background(), &failingLoadRepo{}, testLogger())
	if !errors.Is(err, domain.ErrPersistence) {
		t.Fatalf("err = %v, want ErrPersistence", err)
	}
}
