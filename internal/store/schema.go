package store

import (
	"github.com/dropDatabas3/connkeeper/internal/domain/repository"
)

// LookupKey es una de las tres claves aceptadas para buscar un usuario.
type LookupKey int

const (
	LookupID LookupKey = iota
	LookupUsername
	LookupEmail
)

// LookupOrder es el orden en que se prueban las claves dentro de un store.
var LookupOrder = []LookupKey{LookupID, LookupUsername, LookupEmail}

func (k LookupKey) String() string {
	switch k {
	case LookupID:
		return "id"
	case LookupUsername:
		return "username"
	case LookupEmail:
		return "email"
	}
	return "unknown"
}

// Identity son los campos de identificación de un registro nativo.
type Identity struct {
	ID       string
	Username string
	Email    string
}

// Schema traduce entre el documento nativo de un store y la forma canónica.
// Hay una implementación por esquema (ver internal/store/schema).
type Schema interface {
	// Name retorna el nombre del esquema ("flat", "nested").
	Name() string

	// LookupField retorna el campo nativo para una clave de búsqueda.
	LookupField(key LookupKey) string

	// Identity extrae id/username/email del documento.
	Identity(doc Document) Identity

	// Connections decodifica las conexiones; omite plataformas desconocidas.
	Connections(doc Document) map[repository.Platform]repository.PlatformConnection

	// UpdateFields traduce un update canónico a campos nativos a setear.
	UpdateFields(p repository.Platform, upd repository.ConnectionUpdate) Document

	// LastValidatedField retorna el campo nativo donde se estampa lastValidated.
	LastValidatedField(p repository.Platform) string

	// PlatformFields lista todos los campos nativos de una plataforma.
	PlatformFields(p repository.Platform) []string

	// NewDocument arma un documento nativo completo (usado por sync entre stores).
	NewDocument(id Identity, conns map[repository.Platform]repository.PlatformConnection) Document
}
