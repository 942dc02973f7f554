package analyzer

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/romanzzaa/md5-predictor-bot/internal/domain"
)

func TestAnalyze_GoldenVectors(t *testing.T) {
	tests := []struct {
		digest     string
		raw        domain.Label
		prediction domain.Label
		confidence string
		score      int
	}{
		{"0123456789abcdef0123456789abcdef", domain.LabelTai, domain.LabelXiu, "65", 6},
		{"ffffffffffffffffffffffffffffffff", domain.LabelTai, domain.LabelXiu, "90", 16},
		{"00000000000000000000000000000000", domain.LabelXiu, domain.LabelTai, "55", 3},
		{"d41d8cd98f00b204e9800998ecf8427e", domain.LabelXiu, domain.LabelTai, "70", 5},
		{"900150983cd24fb0d6963f7d28e17f72", domain.LabelXiu, domain.LabelTai, "70", 12},
	}

	for _, tt := range tests {
		t.Run(tt.digest, func(t *testing.T) {
			res, err := Analyze(tt.digest)
			if err != nil {
				t.Fatalf("Analyze: %v", err)
			}
			if res.RawPrediction != tt.raw {
				t.Errorf("raw = %s, want %s", res.RawPrediction, tt.raw)
			}
			if res.Prediction != tt.prediction {
				t.Errorf("prediction = %s, want %s", res.Prediction, tt.prediction)
			}
			if !res.Confidence.Equal(decimal.RequireFromString(tt.confidence)) {
				t.Errorf("confidence = %s, want %s", res.Confidence, tt.confidence)
			}
			if res.Score != tt.score {
				t.Errorf("score = %d, want %d", res.Score, tt.score)
			}
		})
	}
}

func TestAnalyze_Deterministic(t *testing.T) {
	const digest = "0123456789abcdef0123456789abcdef"
	first, err := Analyze(digest)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 100; i++ {
		res, err := Analyze(digest)
		if err != nil {
			t.Fatal(err)
		}
		if res.Prediction != first.Prediction || res.RawPrediction != first.RawPrediction ||
			!res.Confidence.Equal(first.Confidence) || res.Score != first.Score {
			t.Fatalf("run %d differs: %+v vs %+v", i, res, first)
		}
	}
}

func TestAnalyze_CaseInsensitive(t *testing.T) {
	lower, err := Analyze("d41d8cd98f00b204e9800998ecf8427e")
	if err != nil {
		t.Fatal(err)
	}
	upper, err := Analyze("D41D8CD98F00B204E9800998ECF8427E")
	if err != nil {
		t.Fatal(err)
	}
	if upper.Digest != lower.Digest || upper.Prediction != lower.Prediction || upper.Score != lower.Score {
		t.Fatalf("normalized results differ: %+v vs %+v", upper, lower)
	}
}

func TestAnalyze_RejectsWhitespace(t *testing.T) {
	inputs := []string{
		"0123456789abcdef 0123456789abcdef",
		"0123456789abcdef\t0123456789abcdef",
		" 0123456789abcdef0123456789abcdef\n",
		"0123456789abcdef0123456789abcdef ",
	}
	for _, in := range inputs {
		if _, err := Analyze(in); !errors.Is(err, domain.ErrInvalidInput) {
			t.Errorf("Analyze(%q) err = %v, want ErrInvalidInput", in, err)
		}
	}
}

func TestAnalyze_InversionAndBounds(t *testing.T) {
	lo := decimal.NewFromInt(50)
	hi := decimal.NewFromInt(100)

	for i := 0; i < 2000; i++ {
		sum := md5.Sum([]byte(fmt.Sprintf("round-%d", i)))
		res, err := Analyze(hex.EncodeToString(sum[:]))
		if err != nil {
			t.Fatal(err)
		}
		if res.Prediction == res.RawPrediction {
			t.Fatalf("%s: prediction equals raw prediction %s", res.Digest, res.Prediction)
		}
		if res.Prediction != res.RawPrediction.Opposite() {
			t.Fatalf("%s: prediction %s is not opposite of %s", res.Digest, res.Prediction, res.RawPrediction)
		}
		if !res.Confidence.GreaterThan(lo) || res.Confidence.GreaterThan(hi) {
			t.Fatalf("%s: confidence %s out of (50, 100]", res.Digest, res.Confidence)
		}
		if res.Score < 3 || res.Score > 18 {
			t.Fatalf("%s: score %d out of [3, 18]", res.Digest, res.Score)
		}
	}
}

func TestAnalyze_RejectsInvalidInput(t *testing.T) {
	inputs := []string{
		"",
		"zz",
		"0123456789abcdef0123456789abcde",   // 31
		"0123456789abcdef0123456789abcdef0", // 33
		"0123456789abcdef0123456789abcdeg",
		"0123456789abcdef-123456789abcdef",
		"0123456789abcde 0123456789abcdef",
		"0123456789abcde\t0123456789abcdef",
	}
	for _, in := range inputs {
		if _, err := Analyze(in); !errors.Is(err, domain.ErrInvalidInput) {
			t.Errorf("Analyze(%q) err = %v, want ErrInvalidInput", in, err)
		}
	}
}

// Все 2^5 исходов голосования: сумма голосов за TAI никогда не равна 50
func TestVoteWeights_NoTiePossible(t *testing.T) {
	weights := []int{weightSumParity, weightBitBalance, weightProductParity, weightFirstParity, weightLastNibble}
	total := 0
	for _, w := range weights {
		total += w
	}
	if total != 100 {
		t.Fatalf("weights sum to %d", total)
	}

	for mask := 0; mask < 1<<len(weights); mask++ {
		tai := 0
		for i, w := range weights {
			if mask&(1<<i) != 0 {
				tai += w
			}
		}
		if tai == total-tai {
			t.Fatalf("vote mask %05b produces a tie", mask)
		}
	}
}
