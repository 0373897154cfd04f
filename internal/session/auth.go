package session

import (
	"context"
	"sync"

	"github.com/noah-isme/learnify-api/internal/models"
)

// AuthSource supplies the identity a session is evaluated for. Settle blocks
// while the identity is still loading.
type AuthSource interface {
	Settle(ctx context.Context) (models.AuthState, error)
}

// StaticAuth is an already settled identity, e.g. one decoded from a request token.
type StaticAuth models.AuthState

// Settle returns the identity as is.
func (s StaticAuth) Settle(context.Context) (models.AuthState, error) {
	st := models.AuthState(s)
	st.Loading = false
	st.Authenticated = st.Viewer.Authenticated()
	return st, nil
}

// Guest is the settled anonymous identity.
var Guest = StaticAuth{}

// AuthWatcher publishes identity changes from an external auth collaborator.
// While the published state is Loading, Settle waits for the next update.
type AuthWatcher struct {
	mu      sync.Mutex
	state   models.AuthState
	changed chan struct{}
}

// NewAuthWatcher starts in the loading state.
func NewAuthWatcher() *AuthWatcher {
	return &AuthWatcher{
		state:   models.AuthState{Loading: true},
		changed: make(chan struct{}),
	}
}

// Publish replaces the current identity and wakes waiting sessions.
func (w *AuthWatcher) Publish(state models.AuthState) {
	w.mu.Lock()
	w.state = state
	close(w.changed)
	w.changed = make(chan struct{})
	w.mu.Unlock()
}

// Current returns the latest published identity without waiting.
func (w *AuthWatcher) Current() models.AuthState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Settle waits until the identity is no longer loading or ctx is done.
func (w *AuthWatcher) Settle(ctx context.Context) (models.AuthState, error) {
	for {
		w.mu.Lock()
		state, changed := w.state, w.changed
		w.mu.Unlock()

		if !state.Loading {
			return state, nil
		}

		select {
		case <-changed:
		case <-ctx.Done():
			return models.AuthState{}, ctx.Err()
		}
	}
}
