package schema

import (
	"github.com/dropDatabas3/connkeeper/internal/domain/repository"
	"github.com/dropDatabas3/connkeeper/internal/store"
)

const (
	nestedRoot          = "connections"
	fieldAccessToken    = "accessToken"
	fieldRefreshToken   = "refreshToken"
	fieldTokenExpiry    = "tokenExpiry"
	fieldConnectedAt    = "connectedAt"
	fieldLastValidated  = "lastValidated"
	fieldMetadata       = "metadata"
	nestedIDField       = "_id"
	nestedUsernameField = "profile.username"
	nestedEmailField    = "profile.email"
)

// Nested es el esquema de mapa anidado por plataforma.
type Nested struct{}

var _ store.Schema = Nested{}

func (Nested) Name() string { return "nested" }

func (Nested) LookupField(key store.LookupKey) string {
	switch key {
	case store.LookupUsername:
		return nestedUsernameField
	case store.LookupEmail:
		return nestedEmailField
	default:
		return nestedIDField
	}
}

func nestedPath(p repository.Platform, field string) string {
	return nestedRoot + "." + string(p) + "." + field
}

func (Nested) Identity(doc store.Document) store.Identity {
	username, _ := store.GetPath(doc, nestedUsernameField)
	email, _ := store.GetPath(doc, nestedEmailField)
	return store.Identity{
		ID:       store.AsString(doc[nestedIDField]),
		Username: store.AsString(username),
		Email:    store.AsString(email),
	}
}

func (Nested) Connections(doc store.Document) map[repository.Platform]repository.PlatformConnection {
	out := make(map[repository.Platform]repository.PlatformConnection)
	root, ok := doc[nestedRoot].(map[string]any)
	if !ok {
		return out
	}
	for name, raw := range root {
		p, err := repository.ParsePlatform(name)
		if err != nil {
			continue
		}
		m, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		out[p] = repository.PlatformConnection{
			Platform:      p,
			AccessToken:   store.AsString(m[fieldAccessToken]),
			RefreshToken:  store.AsString(m[fieldRefreshToken]),
			TokenExpiry:   store.AsTime(m[fieldTokenExpiry]),
			ConnectedAt:   store.AsTime(m[fieldConnectedAt]),
			LastValidated: store.AsTime(m[fieldLastValidated]),
			Metadata:      store.AsStringMap(m[fieldMetadata]),
		}
	}
	return out
}

func (Nested) UpdateFields(p repository.Platform, upd repository.ConnectionUpdate) store.Document {
	fields := store.Document{}
	if upd.AccessToken != nil {
		fields[nestedPath(p, fieldAccessToken)] = *upd.AccessToken
	}
	if upd.RefreshToken != nil {
		fields[nestedPath(p, fieldRefreshToken)] = *upd.RefreshToken
	}
	if upd.TokenExpiry != nil {
		fields[nestedPath(p, fieldTokenExpiry)] = upd.TokenExpiry.UTC()
	}
	if upd.ConnectedAt != nil {
		fields[nestedPath(p, fieldConnectedAt)] = upd.ConnectedAt.UTC()
	}
	for k, v := range upd.Metadata {
		fields[nestedPath(p, fieldMetadata)+"."+k] = v
	}
	return fields
}

// LastValidatedField retorna el path de lastValidated de una plataforma.
func (Nested) LastValidatedField(p repository.Platform) string {
	return nestedPath(p, fieldLastValidated)
}

func (Nested) PlatformFields(p repository.Platform) []string {
	return []string{nestedRoot + "." + string(p)}
}

func (n Nested) NewDocument(id store.Identity, conns map[repository.Platform]repository.PlatformConnection) store.Document {
	doc := store.Document{
		nestedIDField: id.ID,
		"profile": map[string]any{
			"username": id.Username,
			"email":    id.Email,
		},
		nestedRoot: map[string]any{},
	}
	for p, c := range conns {
		if !p.Valid() {
			continue
		}
		for k, v := range n.UpdateFields(p, updateFromConnection(c)) {
			store.SetPath(doc, k, v)
		}
		if c.LastValidated != nil {
			store.SetPath(doc, nestedPath(p, fieldLastValidated), c.LastValidated.UTC())
		}
	}
	return doc
}

// updateFromConnection arma un update completo a partir de una conexión canónica.
func updateFromConnection(c repository.PlatformConnection) repository.ConnectionUpdate {
	upd := repository.ConnectionUpdate{
		TokenExpiry: c.TokenExpiry,
		ConnectedAt: c.ConnectedAt,
		Metadata:    c.Metadata,
	}
	if c.AccessToken != "" {
		at := c.AccessToken
		upd.AccessToken = &at
	}
	if c.RefreshToken != "" {
		rt := c.RefreshToken
		upd.RefreshToken = &rt
	}
	return upd
}
