package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"github.com/romanzzaa/md5-predictor-bot/internal/domain"
	"github.com/romanzzaa/md5-predictor-bot/internal/infrastructure/crypto"
)

const (
	snapshotVersion = 1

	// Как часто повторяем попытку взять межпроцессный замок
	lockRetryDelay = 20 * time.Millisecond
)

// FileRepository хранит ключи и пользователей в одном JSON-файле.
// Запись: временный файл -> fsync -> rename, поэтому на диске всегда целый снимок.
// Писатели из разных процессов (бот и keyctl) сериализуются через <path>.lock.
type FileRepository struct {
	path      string
	encryptor *crypto.Encryptor // nil = открытый JSON
	fileLock  *flock.Flock

	mu    sync.Mutex
	state domain.State // последний прочитанный или записанный снимок
}

func NewFileRepository(path string, encryptor *crypto.Encryptor) *FileRepository {
	return &FileRepository{
		path:      path,
		encryptor: encryptor,
		fileLock:  flock.New(path + ".lock"),
	}
}

func (r *FileRepository) Load(ctx context.Context) (domain.State, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return domain.State{}, err
	}
	if err := r.loadLocked(); err != nil {
		return domain.State{}, err
	}
	return cloneState(r.state), nil
}

func (r *FileRepository) loadLocked() error {
	data, err := os.ReadFile(r.path)
	if errors.Is(err, fs.ErrNotExist) {
		r.state = domain.NewState()
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read state file: %w", err)
	}

	if r.encryptor != nil {
		data, err = r.encryptor.Open(data)
		if err != nil {
			return fmt.Errorf("failed to decrypt state file %s: %w", r.path, err)
		}
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("corrupt state file %s: %w", r.path, err)
	}
	if snap.Version > snapshotVersion {
		return fmt.Errorf("state file %s has unsupported version %d", r.path, snap.Version)
	}

	state, err := snap.toState()
	if err != nil {
		return fmt.Errorf("corrupt state file %s: %w", r.path, err)
	}
	r.state = state
	return nil
}

// Commit записывает новый снимок целиком. Пока rename не прошел, зеркало в памяти не меняется.
// Под замком файл перечитывается, поэтому чужие изменения не затираются.
func (r *FileRepository) Commit(ctx context.Context, m domain.Mutation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	if m.IsEmpty() {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(r.path), 0o700); err != nil {
		return fmt.Errorf("failed to create state dir: %w", err)
	}
	locked, err := r.fileLock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("failed to lock state file: %w", err)
	}
	if !locked {
		return fmt.Errorf("failed to lock state file %s", r.path)
	}
	defer r.fileLock.Unlock()

	if err := r.loadLocked(); err != nil {
		return err
	}
	if err := checkConflicts(r.state, m); err != nil {
		return err
	}

	next := cloneState(r.state)
	next.Apply(m)

	if err := r.write(next); err != nil {
		return err
	}
	r.state = next
	return nil
}

// checkConflicts повторяет правила SQL-хранилища: новый ключ не должен уже
// существовать, а погашенный ключ не гасится повторно.
func checkConflicts(current domain.State, m domain.Mutation) error {
	for _, k := range m.Keys {
		existing, ok := current.Keys[k.Code]
		if !ok {
			continue
		}
		if !k.IsRedeemed() || existing.IsRedeemed() {
			return fmt.Errorf("%w: key %s", domain.ErrConflict, k.Code)
		}
	}
	return nil
}

func (r *FileRepository) write(state domain.State) error {
	data, err := json.MarshalIndent(fromState(state), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}
	if r.encryptor != nil {
		data, err = r.encryptor.Seal(data)
		if err != nil {
			return fmt.Errorf("failed to encrypt state: %w", err)
		}
	}

	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create state dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(r.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	// После успешного rename файла уже нет, ошибку Remove игнорируем
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, r.path); err != nil {
		return fmt.Errorf("failed to replace state file: %w", err)
	}

	syncDir(dir)
	return nil
}

// syncDir фиксирует rename в каталоге. На некоторых ОС не поддерживается.
func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	_ = d.Sync()
	_ = d.Close()
}

func cloneState(s domain.State) domain.State {
	out := domain.NewState()
	for code, k := range s.Keys {
		out.Keys[code] = k
	}
	for id, p := range s.Principals {
		out.Principals[id] = p
	}
	return out
}
