package shared

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSRFEnsureAndVerify(t *testing.T) {
	m := NewCSRFManager("csrfsecret")
	sess := &Session{ID: "sess-1", values: map[string]string{}}

	token, err := m.EnsureToken(context.Background(), sess)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	again, err := m.EnsureToken(context.Background(), sess)
	require.NoError(t, err)
	assert.Equal(t, token, again)

	assert.NoError(t, m.VerifyToken(context.Background(), sess, token))
	assert.ErrorIs(t, m.VerifyToken(context.Background(), sess, "forged"), ErrCSRFTokenMismatch)
	assert.ErrorIs(t, m.VerifyToken(context.Background(), sess, ""), ErrCSRFTokenMissing)
	assert.ErrorIs(t, m.VerifyToken(context.Background(), nil, token), ErrCSRFTokenMissing)
}

func TestCSRFRotateInvalidatesOldToken(t *testing.T) {
	m := NewCSRFManager("csrfsecret")
	tick := time.Unix(1700000000, 0)
	m.now = func() time.Time {
		tick = tick.Add(time.Second)
		return tick
	}
	sess := &Session{ID: "sess-1", values: map[string]string{}}

	old, err := m.EnsureToken(context.Background(), sess)
	require.NoError(t, err)
	fresh, err := m.Rotate(context.Background(), sess)
	require.NoError(t, err)

	assert.NotEqual(t, old, fresh)
	assert.ErrorIs(t, m.VerifyToken(context.Background(), sess, old), ErrCSRFTokenMismatch)
	assert.NoError(t, m.VerifyToken(context.Background(), sess, fresh))
}

func TestCSRFRequiresSession(t *testing.T) {
	m := NewCSRFManager("csrfsecret")
	_, err := m.EnsureToken(context.Background(), nil)
	assert.ErrorIs(t, err, ErrSessionMissing)
	_, err = m.Rotate(context.Background(), nil)
	assert.ErrorIs(t, err, ErrSessionMissing)
}

func TestTotalPages(t *testing.T) {
	assert.Equal(t, 0, TotalPages(0, 10))
	assert.Equal(t, 0, TotalPages(10, 0))
	assert.Equal(t, 1, TotalPages(10, 10))
	assert.Equal(t, 2, TotalPages(11, 10))
	assert.Equal(t, 3, TotalPages(25, 10))
}
