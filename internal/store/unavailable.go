package store

import (
	"context"
	"fmt"
	"time"

	"github.com/dropDatabas3/connkeeper/internal/domain/repository"
)

// unavailableStore ocupa el lugar de un store cuyo backend no pudo abrirse. Toda operación
// falla con ErrStoreUnavailable, así el Manager sigue resolviendo contra el otro store.
type unavailableStore struct {
	tag   repository.StoreTag
	cause error
}

// Unavailable retorna un UserStore que siempre falla con ErrStoreUnavailable envolviendo cause.
func Unavailable(tag repository.StoreTag, cause error) UserStore {
	return &unavailableStore{tag: tag, cause: cause}
}

func (s *unavailableStore) err() error {
	return fmt.Errorf("%w: %s: %v", repository.ErrStoreUnavailable, s.tag, s.cause)
}

func (s *unavailableStore) Tag() repository.StoreTag { return s.tag }

func (s *unavailableStore) Find(context.Context, string) (*repository.UserRecord, error) {
	return nil, s.err()
}

func (s *unavailableStore) Connections(context.Context, string) (map[repository.Platform]repository.PlatformConnection, error) {
	return nil, s.err()
}

func (s *unavailableStore) Update(context.Context, string, repository.Platform, repository.ConnectionUpdate, time.Time) error {
	return fmt.Errorf("%w: %w", repository.ErrStoreWriteFailed, s.err())
}

func (s *unavailableStore) Remove(context.Context, string, repository.Platform) error {
	return fmt.Errorf("%w: %w", repository.ErrStoreWriteFailed, s.err())
}

func (s *unavailableStore) Create(context.Context, Identity, map[repository.Platform]repository.PlatformConnection) error {
	return fmt.Errorf("%w: %w", repository.ErrStoreWriteFailed, s.err())
}

func (s *unavailableStore) Ping(context.Context) error { return s.err() }

func (s *unavailableStore) Close() error { return nil }
