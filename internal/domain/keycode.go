package domain

import (
	"fmt"
	"strings"
)

const (
	KeyAlphabet    = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	KeyGroups      = 4
	KeyGroupLength = 4
	KeyLength      = KeyGroups*KeyGroupLength + KeyGroups - 1

	DigestLength = 32
)

// NormalizeKeyCode приводит ввод пользователя к виду "XXXX-XXXX-XXXX-XXXX".
// Регистр на входе не важен.
func NormalizeKeyCode(code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != KeyLength {
		return "", fmt.Errorf("%w: key must be %d characters", ErrInvalidInput, KeyLength)
	}

	for i := 0; i < len(code); i++ {
		c := code[i]
		// Разделители стоят после каждой группы
		if (i+1)%(KeyGroupLength+1) == 0 {
			if c != '-' {
				return "", fmt.Errorf("%w: expected '-' at position %d", ErrInvalidInput, i)
			}
			continue
		}
		if !isKeySymbol(c) {
			return "", fmt.Errorf("%w: invalid key symbol %q", ErrInvalidInput, c)
		}
	}
	return code, nil
}

func isKeySymbol(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// NormalizeDigest приводит хэш к нижнему регистру и проверяет, что это ровно 32 hex-символа.
// Пробелы не вырезаются: строка с пробелом - невалидный хэш.
func NormalizeDigest(digest string) (string, error) {
	digest = strings.ToLower(digest)
	if len(digest) != DigestLength {
		return "", fmt.Errorf("%w: digest must be %d hex characters, got %d", ErrInvalidInput, DigestLength, len(digest))
	}
	for i := 0; i < len(digest); i++ {
		c := digest[i]
		if !(c >= '0' && c <= '9') && !(c >= 'a' && c <= 'f') {
			return "", fmt.Errorf("%w: non-hex character %q", ErrInvalidInput, c)
		}
	}
	return digest, nil
}
