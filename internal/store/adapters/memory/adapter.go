// Package memory implementa un backend en memoria para los stores de usuarios.
// Se usa en tests y en modo demo (sin DSN). Entiende paths con puntos igual que Mongo.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/dropDatabas3/connkeeper/internal/domain/repository"
	"github.com/dropDatabas3/connkeeper/internal/store"
)

func init() {
	store.RegisterDriver(&memoryDriver{})
}

type memoryDriver struct{}

func (d *memoryDriver) Name() string { return "memory" }

func (d *memoryDriver) Open(_ context.Context, cfg store.BackendConfig) (store.Backend, error) {
	return New(IDFieldFor(cfg.Schema)), nil
}

// IDFieldFor retorna el campo de id según el esquema nativo.
func IDFieldFor(schema string) string {
	if schema == "nested" {
		return "_id"
	}
	return "id"
}

// Backend guarda documentos en un mapa protegido por mutex.
type Backend struct {
	mu      sync.RWMutex
	idField string
	docs    map[string]store.Document
	order   []string
	fail    error
}

var _ store.Backend = (*Backend)(nil)

// New crea un backend vacío.
func New(idField string) *Backend {
	return &Backend{idField: idField, docs: map[string]store.Document{}}
}

// Seed inserta documentos sin validar duplicados (tests).
func (b *Backend) Seed(docs ...store.Document) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, d := range docs {
		id := store.AsString(d[b.idField])
		if _, ok := b.docs[id]; !ok {
			b.order = append(b.order, id)
		}
		b.docs[id] = store.CloneDocument(d)
	}
}

// SetFailure hace que todas las operaciones fallen con err. nil restaura el backend.
func (b *Backend) SetFailure(err error) {
	b.mu.Lock()
	b.fail = err
	b.mu.Unlock()
}

// Get retorna una copia del documento con id dado (tests).
func (b *Backend) Get(id string) (store.Document, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	d, ok := b.docs[id]
	if !ok {
		return nil, false
	}
	return store.CloneDocument(d), true
}

// Len retorna la cantidad de documentos.
func (b *Backend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.docs)
}

func (b *Backend) Name() string { return "memory" }

func (b *Backend) FindOne(ctx context.Context, field, value string) (store.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.fail != nil {
		return nil, b.fail
	}
	if value == "" {
		return nil, repository.ErrNotFound
	}
	for _, id := range b.order {
		doc := b.docs[id]
		if v, ok := store.GetPath(doc, field); ok && store.AsString(v) == value {
			return store.CloneDocument(doc), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (b *Backend) Set(ctx context.Context, id string, fields store.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fail != nil {
		return b.fail
	}
	doc, ok := b.docs[id]
	if !ok {
		return repository.ErrNotFound
	}
	for k, v := range fields {
		store.SetPath(doc, k, v)
	}
	return nil
}

func (b *Backend) Unset(ctx context.Context, id string, fields []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fail != nil {
		return b.fail
	}
	doc, ok := b.docs[id]
	if !ok {
		return repository.ErrNotFound
	}
	for _, f := range fields {
		store.UnsetPath(doc, f)
	}
	return nil
}

func (b *Backend) Insert(ctx context.Context, doc store.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fail != nil {
		return b.fail
	}
	doc = store.CloneDocument(doc)
	id := store.AsString(doc[b.idField])
	if id == "" {
		id = uuid.NewString()
		doc[b.idField] = id
	}
	if _, exists := b.docs[id]; exists {
		return fmt.Errorf("memory: %w: id %s", repository.ErrAlreadyExists, id)
	}
	b.docs[id] = doc
	b.order = append(b.order, id)
	return nil
}

func (b *Backend) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.fail
}

func (b *Backend) Close() error { return nil }
