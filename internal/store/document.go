package store

import (
	"fmt"
	"strings"
	"time"
)

// Document es la representación nativa de un registro de usuario tal como la devuelve un backend.
// Los backends normalizan sus tipos propios: timestamps como time.Time, mapas anidados como
// map[string]any, ids como string.
type Document = map[string]any

// GetPath resuelve un path con puntos ("connections.youtube.accessToken") dentro del documento.
func GetPath(doc Document, path string) (any, bool) {
	var cur any = doc
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// SetPath setea un valor creando los mapas intermedios que falten.
func SetPath(doc Document, path string, v any) {
	parts := strings.Split(path, ".")
	cur := doc
	for _, part := range parts[:len(parts)-1] {
		next, ok := cur[part].(map[string]any)
		if !ok {
			next = map[string]any{}
			cur[part] = next
		}
		cur = next
	}
	cur[parts[len(parts)-1]] = v
}

// UnsetPath borra la hoja del path si existe.
func UnsetPath(doc Document, path string) {
	parts := strings.Split(path, ".")
	cur := doc
	for _, part := range parts[:len(parts)-1] {
		next, ok := cur[part].(map[string]any)
		if !ok {
			return
		}
		cur = next
	}
	delete(cur, parts[len(parts)-1])
}

// AsString convierte un valor nativo a string. nil => "".
func AsString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case *string:
		if t == nil {
			return ""
		}
		return *t
	case []byte:
		return string(t)
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}

// AsTime convierte un valor nativo a *time.Time. Acepta time.Time, *time.Time,
// strings RFC3339 y epoch en milisegundos.
func AsTime(v any) *time.Time {
	switch t := v.(type) {
	case time.Time:
		if t.IsZero() {
			return nil
		}
		u := t.UTC()
		return &u
	case *time.Time:
		if t == nil || t.IsZero() {
			return nil
		}
		u := t.UTC()
		return &u
	case string:
		if t == "" {
			return nil
		}
		parsed, err := time.Parse(time.RFC3339Nano, t)
		if err != nil {
			return nil
		}
		u := parsed.UTC()
		return &u
	case int64:
		u := time.UnixMilli(t).UTC()
		return &u
	case float64:
		u := time.UnixMilli(int64(t)).UTC()
		return &u
	}
	return nil
}

// AsStringMap convierte un mapa nativo a map[string]string, descartando valores vacíos.
func AsStringMap(v any) map[string]string {
	m, ok := v.(map[string]any)
	if !ok || len(m) == 0 {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, val := range m {
		if s := AsString(val); s != "" {
			out[k] = s
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// CloneDocument copia profundamente los mapas anidados.
func CloneDocument(doc Document) Document {
	out := make(Document, len(doc))
	for k, v := range doc {
		if m, ok := v.(map[string]any); ok {
			out[k] = CloneDocument(m)
			continue
		}
		out[k] = v
	}
	return out
}
