package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/learnify-api/internal/models"
)

func TestStaticAuthSettle(t *testing.T) {
	st, err := authAs(student).Settle(context.Background())
	require.NoError(t, err)
	assert.True(t, st.Authenticated)
	assert.Equal(t, "token-stu-1", st.Token)

	st, err = Guest.Settle(context.Background())
	require.NoError(t, err)
	assert.False(t, st.Authenticated)
	assert.Nil(t, st.Viewer)
}

func TestAuthWatcherSettleWaitsForPublish(t *testing.T) {
	w := NewAuthWatcher()
	assert.True(t, w.Current().Loading)

	time.AfterFunc(10*time.Millisecond, func() {
		w.Publish(models.AuthState{Loading: true})
		w.Publish(models.AuthState{Viewer: student, Token: "t", Authenticated: true})
	})

	st, err := w.Settle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "t", st.Token)
}

func TestAuthWatcherSettleHonoursContext(t *testing.T) {
	w := NewAuthWatcher()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := w.Settle(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestProfileByName(t *testing.T) {
	assert.Equal(t, CompactProfile, ProfileByName("compact"))
	assert.Equal(t, DetailProfile, ProfileByName("anything"))
	assert.Equal(t, 120, DetailProfile.WithPreviewChars(120).PreviewChars)
	assert.Equal(t, 300, DetailProfile.WithPreviewChars(0).PreviewChars)
}
