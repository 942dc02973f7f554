package domain

import "errors"

var (
	// ErrInvalidInput - неверный формат хэша или ключа. Состояние не меняется.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthorized - выпуск ключа не-администратором
	ErrUnauthorized = errors.New("unauthorized")

	// ErrPersistence - запись/чтение хранилища не удались.
	// Операция отменяется целиком, память не меняется.
	ErrPersistence = errors.New("persistence failure")

	// ErrConflict - запись уже изменена другим процессом (например, keyctl и бот на одном хранилище)
	ErrConflict = errors.New("conflicting write")

	// ErrKeyspaceExhausted - генератор не смог подобрать уникальный ключ
	ErrKeyspaceExhausted = errors.New("could not generate unique key")
)
