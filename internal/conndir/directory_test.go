package conndir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	kicked string
}

func (f *fakeConn) Kick(reason string) { f.kicked = reason }

func TestBind_FirstChannel(t *testing.T) {
	d := New()
	c := &fakeConn{}

	prev := d.Bind("p1", c)
	assert.Nil(t, prev)

	got, ok := d.ResolvePlayer("p1")
	require.True(t, ok)
	assert.Same(t, c, got)

	id, ok := d.ResolveConn(c)
	require.True(t, ok)
	assert.Equal(t, "p1", id)
}

func TestBind_SupersedesPrevious(t *testing.T) {
	d := New()
	old := &fakeConn{}
	fresh := &fakeConn{}

	d.Bind("p1", old)
	prev := d.Bind("p1", fresh)
	require.NotNil(t, prev)
	assert.Same(t, old, prev)

	// Old channel is fully forgotten.
	_, ok := d.ResolveConn(old)
	assert.False(t, ok)

	got, ok := d.ResolvePlayer("p1")
	require.True(t, ok)
	assert.Same(t, fresh, got)
}

func TestBind_SameConnIsNoOp(t *testing.T) {
	d := New()
	c := &fakeConn{}

	d.Bind("p1", c)
	prev := d.Bind("p1", c)
	assert.Nil(t, prev, "rebinding the same channel must not report it as superseded")
}

func TestUnbind_RemovesBothDirections(t *testing.T) {
	d := New()
	c := &fakeConn{}
	d.Bind("p1", c)

	id, ok := d.Unbind(c)
	require.True(t, ok)
	assert.Equal(t, "p1", id)

	_, ok = d.ResolvePlayer("p1")
	assert.False(t, ok)
	_, ok = d.ResolveConn(c)
	assert.False(t, ok)
}

func TestUnbind_StaleChannelDoesNotEvictSuccessor(t *testing.T) {
	d := New()
	old := &fakeConn{}
	fresh := &fakeConn{}

	d.Bind("p1", old)
	d.Bind("p1", fresh)

	// The superseded connection unbinds late; the successor must survive.
	_, ok := d.Unbind(old)
	assert.False(t, ok)

	got, ok := d.ResolvePlayer("p1")
	require.True(t, ok)
	assert.Same(t, fresh, got)
}

func TestUnbind_UnknownConn(t *testing.T) {
	d := New()
	_, ok := d.Unbind(&fakeConn{})
	assert.False(t, ok)
}
