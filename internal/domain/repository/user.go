package repository

import "fmt"

// StoreTag identifica cuál de los dos stores de usuarios es dueño de un registro.
type StoreTag string

const (
	StorePrimary   StoreTag = "primary"
	StoreSecondary StoreTag = "secondary"
)

// Valid indica si el tag es uno de los dos stores conocidos.
func (t StoreTag) Valid() bool {
	return t == StorePrimary || t == StoreSecondary
}

// Other retorna el store opuesto.
func (t StoreTag) Other() StoreTag {
	if t == StorePrimary {
		return StoreSecondary
	}
	return StorePrimary
}

// ParseStoreTag valida un tag; vacío es válido y significa "sin preferencia".
func ParseStoreTag(s string) (StoreTag, error) {
	t := StoreTag(s)
	if s == "" || t.Valid() {
		return t, nil
	}
	return "", fmt.Errorf("%w: unknown store %q", ErrInvalidInput, s)
}

// UserRecord es un usuario resuelto en exactamente un store.
type UserRecord struct {
	// Identifier es la clave con la que se buscó (id, username o email).
	Identifier string `json:"identifier"`

	ID       string   `json:"id"`
	Username string   `json:"username,omitempty"`
	Email    string   `json:"email,omitempty"`
	Store    StoreTag `json:"store"`

	Connections map[Platform]PlatformConnection `json:"connections,omitempty"`
}

// Key retorna una clave estable del usuario, independiente de la clave de búsqueda.
func (u *UserRecord) Key() string {
	return string(u.Store) + ":" + u.ID
}

// ConnectedPlatforms retorna las plataformas con access token, ordenadas.
func (u *UserRecord) ConnectedPlatforms() []Platform {
	out := make([]Platform, 0, len(u.Connections))
	for p, c := range u.Connections {
		if c.Connected() {
			out = append(out, p)
		}
	}
	SortPlatforms(out)
	return out
}
