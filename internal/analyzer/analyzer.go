// Package analyzer реализует детерминированный анализ MD5-хэша.
// Никакого состояния и I/O: одна и та же строка всегда дает один и тот же результат.
package analyzer

import (
	"math/bits"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/romanzzaa/md5-predictor-bot/internal/domain"
)

// Веса голосов. В сумме 100, ничья невозможна.
const (
	weightSumParity     = 35
	weightBitBalance    = 25
	weightProductParity = 20
	weightFirstParity   = 10
	weightLastNibble    = 10
)

// Analyze принимает 32-символьный hex-хэш (регистр не важен) и возвращает прогноз.
func Analyze(digest string) (domain.ScoringResult, error) {
	hash, err := domain.NormalizeDigest(digest)
	if err != nil {
		return domain.ScoringResult{}, err
	}

	// 1. Четыре сегмента по 8 символов. hash уже проверен, ParseUint не ошибется.
	var nums [4]uint64
	for i := range nums {
		nums[i], _ = strconv.ParseUint(hash[i*8:(i+1)*8], 16, 64)
	}

	// 2-3. Сумма и произведение (n mod 1000 + 1). Максимум 1001^4, в uint64 влезает.
	var totalSum uint64
	product := uint64(1)
	for _, n := range nums {
		totalSum += n
		product *= n%1000 + 1
	}

	// 4. Первые 16 символов как 64-битное число
	head, _ := strconv.ParseUint(hash[:16], 16, 64)
	ones := bits.OnesCount64(head)
	zeros := 64 - ones

	// 5. Голосование
	var tai, xiu int
	vote := func(forTai bool, weight int) {
		if forTai {
			tai += weight
		} else {
			xiu += weight
		}
	}
	vote(totalSum%2 == 0, weightSumParity)
	vote(ones > zeros, weightBitBalance)
	vote(product%2 == 0, weightProductParity)
	vote(nums[0]%2 == 0, weightFirstParity)
	vote(hexValue(hash[len(hash)-1]) >= 8, weightLastNibble)

	// 6. Базовый результат. При равенстве - XIU.
	raw, winner := domain.LabelXiu, xiu
	if tai > xiu {
		raw, winner = domain.LabelTai, tai
	}
	confidence := decimal.NewFromInt(int64(winner)).
		Div(decimal.NewFromInt(int64(tai + xiu))).
		Mul(decimal.NewFromInt(100)).
		Round(2)

	// 8. Доп. очки по первым трем символам
	score := (hexValue(hash[0])+hexValue(hash[1])+hexValue(hash[2]))%16 + 3

	return domain.ScoringResult{
		Digest: hash,
		// 7. Инверсия намеренная, не трогать
		Prediction:    raw.Opposite(),
		Confidence:    confidence,
		Score:         score,
		RawPrediction: raw,
	}, nil
}

// hexValue - значение одного hex-символа в нижнем регистре (вход уже провалидирован)
func hexValue(c byte) int {
	if c >= 'a' {
		return int(c-'a') + 10
	}
	return int(c - '0')
}
