package license

import (
	"crypto/rand"
	"fmt"
	"io"
	"strings"

	"github.com/romanzzaa/md5-predictor-bot/internal/domain"
)

// Наибольшее кратное 36, меньшее 256: байты выше отбрасываем, чтобы не было перекоса
const rejectionLimit = 256 - 256%len(domain.KeyAlphabet)

// Generator выдает коды вида XXXX-XXXX-XXXX-XXXX (~82 бита энтропии)
type Generator struct {
	entropy io.Reader
}

func NewGenerator() *Generator {
	return &Generator{entropy: rand.Reader}
}

func (g *Generator) Generate() (string, error) {
	var sb strings.Builder
	sb.Grow(domain.KeyLength)

	buf := make([]byte, 32)
	symbols := 0
	for symbols < domain.KeyGroups*domain.KeyGroupLength {
		if _, err := io.ReadFull(g.entropy, buf); err != nil {
			return "", fmt.Errorf("failed to read entropy: %w", err)
		}
		for _, b := range buf {
			if int(b) >= rejectionLimit {
				continue
			}
			if symbols > 0 && symbols%domain.KeyGroupLength == 0 {
				sb.WriteByte('-')
			}
			sb.WriteByte(domain.KeyAlphabet[int(b)%len(domain.KeyAlphabet)])
			symbols++
			if symbols == domain.KeyGroups*domain.KeyGroupLength {
				break
			}
		}
	}
	return sb.String(), nil
}
