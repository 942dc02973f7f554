package domain

import "time"

type KeyStatus string

const (
	KeyStatusUnredeemed KeyStatus = "UNREDEEMED"
	KeyStatusRedeemed   KeyStatus = "REDEEMED"
)

// ActivationKey - одноразовый ключ активации.
// RedeemedBy и RedeemedAt заполнены только в статусе REDEEMED.
type ActivationKey struct {
	Code       string
	Status     KeyStatus
	RedeemedBy string
	RedeemedAt *time.Time
	CreatedAt  time.Time
}

func (k ActivationKey) IsRedeemed() bool {
	return k.Status == KeyStatusRedeemed
}

// Principal - пользователь, получивший доступ через ключ
type Principal struct {
	ID          string
	ActivatedAt time.Time
}

// RedemptionOutcome - результат KeyStore.Redeem
type RedemptionOutcome int

const (
	RedemptionSuccess RedemptionOutcome = iota
	RedemptionNotFound
	RedemptionAlreadyRedeemed
)

func (o RedemptionOutcome) String() string {
	switch o {
	case RedemptionSuccess:
		return "success"
	case RedemptionNotFound:
		return "not_found"
	case RedemptionAlreadyRedeemed:
		return "already_redeemed"
	}
	return "unknown"
}

// GatewayOutcome - результат активации для транспортного слоя
type GatewayOutcome int

const (
	OutcomeActivated GatewayOutcome = iota
	OutcomeKeyNotFound
	OutcomeKeyAlreadyUsed
)

func (o GatewayOutcome) String() string {
	switch o {
	case OutcomeActivated:
		return "activated"
	case OutcomeKeyNotFound:
		return "key_not_found"
	case OutcomeKeyAlreadyUsed:
		return "key_already_used"
	}
	return "unknown"
}

// Mutation - набор записей, которые должны попасть в хранилище одним коммитом.
// Погашение ключа = сам ключ + (если новый) пользователь.
type Mutation struct {
	Keys       []ActivationKey
	Principals []Principal
}

func (m Mutation) IsEmpty() bool {
	return len(m.Keys) == 0 && len(m.Principals) == 0
}

// State - полный снимок состояния, который восстанавливается при старте
type State struct {
	Keys       map[string]ActivationKey
	Principals map[string]Principal
}

func NewState() State {
	return State{
		Keys:       make(map[string]ActivationKey),
		Principals: make(map[string]Principal),
	}
}

// Apply накладывает мутацию на снимок.
// Пользователь добавляется только если его еще нет: активация монотонна.
func (s State) Apply(m Mutation) {
	for _, k := range m.Keys {
		s.Keys[k.Code] = k
	}
	for _, p := range m.Principals {
		if _, ok := s.Principals[p.ID]; !ok {
			s.Principals[p.ID] = p
		}
	}
}
