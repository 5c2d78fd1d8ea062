package secretbox

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func testKey() string {
	raw := make([]byte, 32)
	for i := 0; i < 32; i++ {
		raw[i] = byte(i + 1)
	}
	return base64.StdEncoding.EncodeToString(raw)
}

func TestSealOpen_RoundTrip(t *testing.T) {
	b, err := New(testKey())
	require.NoError(t, err)

	ct, err := b.Seal("ya29.a0-token")
	require.NoError(t, err)
	require.True(t, IsSealed(ct))
	require.NotContains(t, ct, "ya29")

	pt, err := b.Open(ct)
	require.NoError(t, err)
	require.Equal(t, "ya29.a0-token", pt)
}

func TestOpen_PlaintextPassthrough(t *testing.T) {
	b, err := New(testKey())
	require.NoError(t, err)

	pt, err := b.Open("legacy-plain-token")
	require.NoError(t, err)
	require.Equal(t, "legacy-plain-token", pt)

	empty, err := b.Seal("")
	require.NoError(t, err)
	require.Empty(t, empty)
}

func TestOpen_DetectsTamper(t *testing.T) {
	b, err := New(testKey())
	require.NoError(t, err)

	ct, err := b.Seal("top secret")
	require.NoError(t, err)

	parts := strings.Split(strings.TrimPrefix(ct, prefix), sep)
	require.Len(t, parts, 2)
	bs, err := base64.StdEncoding.DecodeString(parts[1])
	require.NoError(t, err)
	bs[0] ^= 0xFF
	tampered := prefix + parts[0] + sep + base64.StdEncoding.EncodeToString(bs)

	_, err = b.Open(tampered)
	require.Error(t, err)
}

func TestNew_RejectsShortKey(t *testing.T) {
	_, err := New("short")
	require.Error(t, err)
}
