// Package schema implementa los dos esquemas nativos de usuarios.
//
//   - Flat: una columna por plataforma y campo (<platform>_access_token, ...). Lo usa el store primario.
//   - Nested: un mapa connections.<platform>.{accessToken,...}. Lo usa el store secundario.
package schema

import (
	"github.com/dropDatabas3/connkeeper/internal/domain/repository"
	"github.com/dropDatabas3/connkeeper/internal/store"
)

// Sufijos de columna del esquema plano.
const (
	colAccessToken   = "access_token"
	colRefreshToken  = "refresh_token"
	colTokenExpiry   = "token_expiry"
	colConnectedAt   = "connected_at"
	colLastValidated = "last_validated"
	colDisplayName   = "display_name"
	colProfileID     = "profile_id"
)

// FlatColumn describe una columna del esquema plano.
type FlatColumn struct {
	Name      string
	Timestamp bool
}

// Flat es el esquema de campos planos.
type Flat struct{}

var _ store.Schema = Flat{}

func (Flat) Name() string { return "flat" }

func (Flat) LookupField(key store.LookupKey) string {
	switch key {
	case store.LookupUsername:
		return "username"
	case store.LookupEmail:
		return "email"
	default:
		return "id"
	}
}

func flatCol(p repository.Platform, suffix string) string {
	return string(p) + "_" + suffix
}

// FlatColumns lista todas las columnas de conexión del esquema plano, para todas las plataformas.
func FlatColumns() []FlatColumn {
	var out []FlatColumn
	for _, p := range repository.AllPlatforms() {
		out = append(out,
			FlatColumn{Name: flatCol(p, colAccessToken)},
			FlatColumn{Name: flatCol(p, colRefreshToken)},
			FlatColumn{Name: flatCol(p, colTokenExpiry), Timestamp: true},
			FlatColumn{Name: flatCol(p, colConnectedAt), Timestamp: true},
			FlatColumn{Name: flatCol(p, colLastValidated), Timestamp: true},
			FlatColumn{Name: flatCol(p, colDisplayName)},
			FlatColumn{Name: flatCol(p, colProfileID)},
		)
	}
	return out
}

func (Flat) Identity(doc store.Document) store.Identity {
	return store.Identity{
		ID:       store.AsString(doc["id"]),
		Username: store.AsString(doc["username"]),
		Email:    store.AsString(doc["email"]),
	}
}

func (Flat) Connections(doc store.Document) map[repository.Platform]repository.PlatformConnection {
	out := make(map[repository.Platform]repository.PlatformConnection)
	for _, p := range repository.AllPlatforms() {
		c := repository.PlatformConnection{
			Platform:      p,
			AccessToken:   store.AsString(doc[flatCol(p, colAccessToken)]),
			RefreshToken:  store.AsString(doc[flatCol(p, colRefreshToken)]),
			TokenExpiry:   store.AsTime(doc[flatCol(p, colTokenExpiry)]),
			ConnectedAt:   store.AsTime(doc[flatCol(p, colConnectedAt)]),
			LastValidated: store.AsTime(doc[flatCol(p, colLastValidated)]),
		}
		meta := map[string]string{}
		if v := store.AsString(doc[flatCol(p, colDisplayName)]); v != "" {
			meta[repository.MetaDisplayName] = v
		}
		if v := store.AsString(doc[flatCol(p, colProfileID)]); v != "" {
			meta[repository.MetaProfileID] = v
		}
		if len(meta) > 0 {
			c.Metadata = meta
		}
		if c.AccessToken == "" && c.RefreshToken == "" && c.TokenExpiry == nil &&
			c.ConnectedAt == nil && c.LastValidated == nil && c.Metadata == nil {
			continue
		}
		out[p] = c
	}
	return out
}

func (Flat) UpdateFields(p repository.Platform, upd repository.ConnectionUpdate) store.Document {
	fields := store.Document{}
	if upd.AccessToken != nil {
		fields[flatCol(p, colAccessToken)] = *upd.AccessToken
	}
	if upd.RefreshToken != nil {
		fields[flatCol(p, colRefreshToken)] = *upd.RefreshToken
	}
	if upd.TokenExpiry != nil {
		fields[flatCol(p, colTokenExpiry)] = upd.TokenExpiry.UTC()
	}
	if upd.ConnectedAt != nil {
		fields[flatCol(p, colConnectedAt)] = upd.ConnectedAt.UTC()
	}
	// El esquema plano sólo tiene columna para estas dos claves de metadata.
	if v, ok := upd.Metadata[repository.MetaDisplayName]; ok {
		fields[flatCol(p, colDisplayName)] = v
	}
	if v, ok := upd.Metadata[repository.MetaProfileID]; ok {
		fields[flatCol(p, colProfileID)] = v
	}
	return fields
}

// LastValidatedField retorna la columna de lastValidated de una plataforma.
func (Flat) LastValidatedField(p repository.Platform) string {
	return flatCol(p, colLastValidated)
}

func (Flat) PlatformFields(p repository.Platform) []string {
	return []string{
		flatCol(p, colAccessToken),
		flatCol(p, colRefreshToken),
		flatCol(p, colTokenExpiry),
		flatCol(p, colConnectedAt),
		flatCol(p, colLastValidated),
		flatCol(p, colDisplayName),
		flatCol(p, colProfileID),
	}
}

func (f Flat) NewDocument(id store.Identity, conns map[repository.Platform]repository.PlatformConnection) store.Document {
	doc := store.Document{
		"id":       id.ID,
		"username": id.Username,
		"email":    id.Email,
	}
	for p, c := range conns {
		if !p.Valid() {
			continue
		}
		for k, v := range f.UpdateFields(p, updateFromConnection(c)) {
			doc[k] = v
		}
		if c.LastValidated != nil {
			doc[flatCol(p, colLastValidated)] = c.LastValidated.UTC()
		}
	}
	return doc
}
