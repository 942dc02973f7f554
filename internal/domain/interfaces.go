package domain

import "context"

// StateRepository - долговременное хранилище ключей и активированных пользователей.
// Commit обязан быть атомарным: либо вся мутация записана, либо ничего.
type StateRepository interface {
	// Загрузить полный снимок при старте
	Load(ctx context.Context) (State, error)

	// Записать изменения одним коммитом
	Commit(ctx context.Context, m Mutation) error
}
