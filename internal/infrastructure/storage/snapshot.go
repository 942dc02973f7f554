package storage

import (
	"fmt"
	"time"

	"github.com/romanzzaa/md5-predictor-bot/internal/domain"
)

// snapshot - формат файла. Поля ключа совместимы со старым keys.json бота
// (used / used_by / used_at), created_at добавлен.
type snapshot struct {
	Version int                     `json:"version"`
	Keys    map[string]keyRecord    `json:"keys"`
	Users   map[string]principalRec `json:"users"`
}

type keyRecord struct {
	Used      bool       `json:"used"`
	UsedBy    *string    `json:"used_by"`
	UsedAt    *time.Time `json:"used_at"`
	CreatedAt time.Time  `json:"created_at"`
}

type principalRec struct {
	ActivatedAt time.Time `json:"activated_at"`
}

func fromState(s domain.State) snapshot {
	snap := snapshot{
		Version: snapshotVersion,
		Keys:    make(map[string]keyRecord, len(s.Keys)),
		Users:   make(map[string]principalRec, len(s.Principals)),
	}
	for code, k := range s.Keys {
		rec := keyRecord{
			Used:      k.IsRedeemed(),
			CreatedAt: k.CreatedAt,
		}
		if rec.Used {
			by := k.RedeemedBy
			rec.UsedBy = &by
			rec.UsedAt = k.RedeemedAt
		}
		snap.Keys[code] = rec
	}
	for id, p := range s.Principals {
		snap.Users[id] = principalRec{ActivatedAt: p.ActivatedAt}
	}
	return snap
}

func (snap snapshot) toState() (domain.State, error) {
	state := domain.NewState()
	for code, rec := range snap.Keys {
		normalized, err := domain.NormalizeKeyCode(code)
		if err != nil || normalized != code {
			return domain.State{}, fmt.Errorf("invalid key code %q", code)
		}

		k := domain.ActivationKey{
			Code:      code,
			Status:    domain.KeyStatusUnredeemed,
			CreatedAt: rec.CreatedAt,
		}
		if rec.Used {
			if rec.UsedBy == nil || rec.UsedAt == nil {
				return domain.State{}, fmt.Errorf("key %s is used but has no redeemer", code)
			}
			at := *rec.UsedAt
			k.Status = domain.KeyStatusRedeemed
			k.RedeemedBy = *rec.UsedBy
			k.RedeemedAt = &at
		}
		state.Keys[code] = k
	}
	for id, rec := range snap.Users {
		state.Principals[id] = domain.Principal{ID: id, ActivatedAt: rec.ActivatedAt}
	}
	return state, nil
}
