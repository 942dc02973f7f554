package domain

import "github.com/shopspring/decimal"

// Label - одна из двух взаимоисключающих меток прогноза
type Label string

const (
	LabelTai Label = "TAI"
	LabelXiu Label = "XIU"
)

// Opposite возвращает противоположную метку
func (l Label) Opposite() Label {
	if l == LabelTai {
		return LabelXiu
	}
	return LabelTai
}

// ScoringResult - результат анализа MD5. Не сохраняется.
type ScoringResult struct {
	Digest        string
	Prediction    Label
	Confidence    decimal.Decimal // (50, 100], 2 знака после запятой
	Score         int             // [3, 18]
	RawPrediction Label           // результат голосования до инверсии
}
