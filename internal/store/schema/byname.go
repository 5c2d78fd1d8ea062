package schema

import (
	"fmt"

	"github.com/dropDatabas3/connkeeper/internal/domain/repository"
	"github.com/dropDatabas3/connkeeper/internal/store"
)

// ByName retorna el esquema registrado con ese nombre.
func ByName(name string) (store.Schema, error) {
	switch name {
	case "flat":
		return Flat{}, nil
	case "nested":
		return Nested{}, nil
	}
	return nil, fmt.Errorf("%w: unknown schema %q", repository.ErrInvalidInput, name)
}
