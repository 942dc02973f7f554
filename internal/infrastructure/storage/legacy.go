package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/romanzzaa/md5-predictor-bot/internal/domain"
)

// Python datetime.isoformat() без таймзоны, время в UTC
const legacyTimeLayout = "2006-01-02T15:04:05.999999"

type legacyKey struct {
	Used   bool    `json:"used"`
	UsedBy *string `json:"used_by"`
	UsedAt *string `json:"used_at"`
}

type legacyUser struct {
	ActivatedAt string `json:"activated_at"`
}

// ReadLegacy читает пару keys.json / users.json старой версии бота
// и возвращает их как одну мутацию. Отсутствующий файл = пустая коллекция.
// importedAt ставится в created_at, которого в старом формате не было.
func ReadLegacy(keysPath, usersPath string, importedAt time.Time) (domain.Mutation, error) {
	var keys map[string]legacyKey
	if err := readJSON(keysPath, &keys); err != nil {
		return domain.Mutation{}, err
	}
	var users map[string]legacyUser
	if err := readJSON(usersPath, &users); err != nil {
		return domain.Mutation{}, err
	}

	var m domain.Mutation
	for code, lk := range keys {
		normalized, err := domain.NormalizeKeyCode(code)
		if err != nil {
			return domain.Mutation{}, fmt.Errorf("legacy key %q: %w", code, err)
		}
		k := domain.ActivationKey{
			Code:      normalized,
			Status:    domain.KeyStatusUnredeemed,
			CreatedAt: importedAt,
		}
		if lk.Used {
			k.Status = domain.KeyStatusRedeemed
			if lk.UsedBy != nil {
				k.RedeemedBy = *lk.UsedBy
			}
			at := importedAt
			if lk.UsedAt != nil {
				if at, err = parseLegacyTime(*lk.UsedAt); err != nil {
					return domain.Mutation{}, fmt.Errorf("legacy key %q: %w", code, err)
				}
			}
			k.RedeemedAt = &at
		}
		m.Keys = append(m.Keys, k)
	}

	for id, lu := range users {
		at, err := parseLegacyTime(lu.ActivatedAt)
		if err != nil {
			return domain.Mutation{}, fmt.Errorf("legacy user %q: %w", id, err)
		}
		m.Principals = append(m.Principals, domain.Principal{ID: id, ActivatedAt: at})
	}
	return m, nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

func parseLegacyTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.ParseInLocation(legacyTimeLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	return t, nil
}
