package redis

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSessionProvider_NeedsClient(t *testing.T) {
	p := &sessionProvider{}

	assert.ErrorIs(t, p.Init(60, ""), errNoSessionClient)

	_, err := p.Read("abc")
	assert.ErrorIs(t, err, errNoSessionClient)

	_, err = p.Exist("abc")
	assert.ErrorIs(t, err, errNoSessionClient)
}

func TestSessionStore_ValuesStayLocalUntilRelease(t *testing.T) {
	s := &sessionStore{provider: &sessionProvider{}, sid: "abc", values: map[any]any{}}

	assert.NoError(t, s.Set("csrf:abc", "token"))
	assert.Equal(t, "token", s.Get("csrf:abc"))
	assert.Equal(t, "abc", s.ID())

	assert.NoError(t, s.Delete("csrf:abc"))
	assert.Nil(t, s.Get("csrf:abc"))

	assert.NoError(t, s.Set("k", int64(7)))
	assert.NoError(t, s.Flush())
	assert.Nil(t, s.Get("k"))

	assert.ErrorIs(t, s.Release(), errNoSessionClient)
}
