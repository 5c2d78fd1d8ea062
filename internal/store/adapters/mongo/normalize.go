package mongo

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/dropDatabas3/connkeeper/internal/store"
)

// idFilter matchea _id como string o como ObjectID (usuarios creados por otras apps).
func idFilter(id string) bson.M {
	if oid, err := primitive.ObjectIDFromHex(id); err == nil {
		return bson.M{"_id": bson.M{"$in": bson.A{oid, id}}}
	}
	return bson.M{"_id": id}
}

func fieldFilter(field, value string) bson.M {
	if field == "_id" {
		return idFilter(value)
	}
	return bson.M{field: value}
}

// normalizeDoc convierte los tipos del driver a tipos planos de Go.
func normalizeDoc(m bson.M) store.Document {
	out := make(store.Document, len(m))
	for k, v := range m {
		out[k] = normalizeValue(v)
	}
	return out
}

func normalizeValue(v any) any {
	switch t := v.(type) {
	case primitive.M:
		return map[string]any(normalizeDoc(bson.M(t)))
	case map[string]any:
		return map[string]any(normalizeDoc(bson.M(t)))
	case primitive.D:
		m := make(map[string]any, len(t))
		for _, e := range t {
			m[e.Key] = normalizeValue(e.Value)
		}
		return m
	case primitive.A:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = normalizeValue(e)
		}
		return out
	case primitive.DateTime:
		return t.Time().UTC()
	case primitive.ObjectID:
		return t.Hex()
	case primitive.Null:
		return nil
	case time.Time:
		return t.UTC()
	default:
		return v
	}
}
