package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dropDatabas3/connkeeper/internal/domain/repository"
	"github.com/dropDatabas3/connkeeper/internal/metrics"
	"github.com/dropDatabas3/connkeeper/internal/observability/logger"
)

// SyncStatus es el resultado de copiar un usuario entre stores.
type SyncStatus string

const (
	SyncCopied        SyncStatus = "copied"
	SyncAlreadyExists SyncStatus = "already_exists"
)

// SyncResult describe una sincronización explícita.
type SyncResult struct {
	Identifier string                `json:"identifier"`
	UserID     string                `json:"userId"`
	From       repository.StoreTag   `json:"from"`
	To         repository.StoreTag   `json:"to"`
	Status     SyncStatus            `json:"status"`
	Platforms  []repository.Platform `json:"platforms,omitempty"`
}

// SyncUser copia un usuario (identidad + conexiones) desde un store al otro.
// Nunca pisa: si el destino ya conoce alguna de sus claves, no escribe nada.
func (m *Manager) SyncUser(ctx context.Context, identifier string, from, to repository.StoreTag) (*SyncResult, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, fmt.Errorf("%w: empty identifier", repository.ErrInvalidInput)
	}
	if from == to {
		return nil, fmt.Errorf("%w: source and target are the same store", repository.ErrInvalidInput)
	}
	src, ok := m.stores[from]
	if !ok {
		return nil, fmt.Errorf("%w: unknown store %q", repository.ErrInvalidInput, from)
	}
	dst, ok := m.stores[to]
	if !ok {
		return nil, fmt.Errorf("%w: unknown store %q", repository.ErrInvalidInput, to)
	}

	u, err := src.Find(ctx, identifier)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%w: %q in %s", repository.ErrUserNotFound, identifier, from)
	}
	if err != nil {
		return nil, err
	}

	res := &SyncResult{Identifier: identifier, UserID: u.ID, From: from, To: to}

	for _, key := range []string{u.ID, u.Username, u.Email} {
		if key == "" {
			continue
		}
		_, err := dst.Find(ctx, key)
		if err == nil {
			res.Status = SyncAlreadyExists
			return res, nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
	}

	if err := dst.Create(ctx, Identity{ID: u.ID, Username: u.Username, Email: u.Email}, u.Connections); err != nil {
		metrics.StoreWriteFailures.WithLabelValues(string(to)).Inc()
		return nil, err
	}
	res.Status = SyncCopied
	res.Platforms = u.ConnectedPlatforms()
	m.log.Info("user synced between stores",
		logger.UserID(u.ID), logger.Identifier(identifier), logger.String("from", string(from)), logger.String("to", string(to)),
		logger.Int("platforms", len(res.Platforms)))
	return res, nil
}
