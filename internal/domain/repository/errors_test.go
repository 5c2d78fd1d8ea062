package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	cases := []struct {
		err  error
		want ErrorKind
	}{
		{nil, KindNone},
		{ErrUserNotFound, KindUserNotFound},
		{fmt.Errorf("lookup: %w", ErrStoreUnavailable), KindStoreUnavailable},
		{errors.Join(ErrUserNotFound, ErrStoreUnavailable), KindUserNotFound},
		{fmt.Errorf("%w: %w", ErrProbeFailed, context.DeadlineExceeded), KindTimeout},
		{fmt.Errorf("%w: unsupported", ErrRefreshFailed), KindRefreshFailed},
		{errors.New("boom"), KindInternal},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, KindOf(tc.err), "err=%v", tc.err)
	}
}

func TestParsePlatform(t *testing.T) {
	p, err := ParsePlatform(" YouTube ")
	assert.NoError(t, err)
	assert.Equal(t, PlatformYouTube, p)

	_, err = ParsePlatform("myspace")
	assert.ErrorIs(t, err, ErrPlatformUnsupported)
}

func TestConnectedPlatforms(t *testing.T) {
	u := &UserRecord{Connections: map[Platform]PlatformConnection{
		PlatformReddit:  {Platform: PlatformReddit, AccessToken: "a"},
		PlatformYouTube: {Platform: PlatformYouTube, AccessToken: "b"},
		PlatformGoogle:  {Platform: PlatformGoogle, RefreshToken: "only-refresh"},
	}}
	assert.Equal(t, []Platform{PlatformReddit, PlatformYouTube}, u.ConnectedPlatforms())
}
