package requestcontext

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "licensing/pkg/domain-errors"
)

func TestNowFallsBackToWallClock(t *testing.T) {
	fixed := time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, fixed, Now(WithTime(context.Background(), fixed)))
	assert.WithinDuration(t, time.Now(), Now(context.Background()), time.Second)
}

func TestActorID(t *testing.T) {
	anon := context.Background()
	authed := WithPrincipal(anon, Principal{Subject: "3f1c2a9e-0000-4000-8000-000000000001", Role: "admin"})

	t.Run("body id without principal", func(t *testing.T) {
		got, err := ActorID(anon, "abc")
		require.NoError(t, err)
		assert.Equal(t, "abc", got)
	})
	t.Run("missing everywhere", func(t *testing.T) {
		_, err := ActorID(anon, "")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})
	t.Run("principal fills an empty body id", func(t *testing.T) {
		got, err := ActorID(authed, "")
		require.NoError(t, err)
		assert.Equal(t, "3f1c2a9e-0000-4000-8000-000000000001", got)
	})
	t.Run("matching body id is accepted case-insensitively", func(t *testing.T) {
		_, err := ActorID(authed, "3F1C2A9E-0000-4000-8000-000000000001")
		assert.NoError(t, err)
	})
	t.Run("impersonation is forbidden", func(t *testing.T) {
		_, err := ActorID(authed, "someone-else")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
	})
}
