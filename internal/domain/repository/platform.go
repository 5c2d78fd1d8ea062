package repository

import (
	"fmt"
	"sort"
	"strings"
)

// Platform identifica un proveedor externo con el que un usuario mantiene una conexión OAuth.
type Platform string

const (
	PlatformYouTube   Platform = "youtube"   // video
	PlatformLinkedIn  Platform = "linkedin"  // red profesional
	PlatformReddit    Platform = "reddit"    // foro
	PlatformPinterest Platform = "pinterest" // image-board
	PlatformGoogle    Platform = "google"    // identidad
	PlatformGmail     Platform = "gmail"     // mail
)

var knownPlatforms = map[Platform]struct{}{
	PlatformYouTube:   {},
	PlatformLinkedIn:  {},
	PlatformReddit:    {},
	PlatformPinterest: {},
	PlatformGoogle:    {},
	PlatformGmail:     {},
}

// AllPlatforms retorna el conjunto enumerado completo, ordenado por nombre.
func AllPlatforms() []Platform {
	out := make([]Platform, 0, len(knownPlatforms))
	for p := range knownPlatforms {
		out = append(out, p)
	}
	SortPlatforms(out)
	return out
}

// Valid indica si la plataforma pertenece al conjunto enumerado.
func (p Platform) Valid() bool {
	_, ok := knownPlatforms[p]
	return ok
}

func (p Platform) String() string { return string(p) }

// ParsePlatform normaliza y valida un nombre de plataforma.
func ParsePlatform(s string) (Platform, error) {
	p := Platform(strings.ToLower(strings.TrimSpace(s)))
	if !p.Valid() {
		return "", fmt.Errorf("%w: %q", ErrPlatformUnsupported, s)
	}
	return p, nil
}

// SortPlatforms ordena in-place por nombre.
func SortPlatforms(ps []Platform) {
	sort.Slice(ps, func(i, j int) bool { return ps[i] < ps[j] })
}
