package hashlock

import (
	"bytes"
	"sync"
	"testing"

	"github.com/iov-one/swapkit/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	alice = bytes.Repeat([]byte{0xa}, 33)
	bob   = bytes.Repeat([]byte{0xb}, 33)
)

func TestReveal(t *testing.T) {
	c := NewCoordinator()
	s, err := c.NewSession(bob)
	require.NoError(t, err)
	assert.False(t, s.Revealed)
	assert.Equal(t, s.Commitment.String(), s.ID())

	_, err = c.Reveal(s.Commitment, alice)
	assert.True(t, errors.ErrUnauthorized.Is(err), "got %+v", err)

	got, err := c.Session(s.Commitment)
	require.NoError(t, err)
	assert.False(t, got.Revealed, "refused reveal must not mark the session")

	p, err := c.Reveal(s.Commitment, bob)
	require.NoError(t, err)
	require.NoError(t, Verify(p[:], s.Commitment))

	got, err = c.Session(s.Commitment)
	require.NoError(t, err)
	assert.True(t, got.Revealed)

	_, err = c.Reveal(ForCommitment(Preimage{1}), bob)
	assert.True(t, errors.ErrNotFound.Is(err))
}

func TestAdopt(t *testing.T) {
	c := NewCoordinator()
	p := Preimage{4, 2}

	s, err := c.Adopt(p, alice)
	require.NoError(t, err)
	assert.Equal(t, ForCommitment(p), s.Commitment)

	again, err := c.Adopt(p, alice)
	require.NoError(t, err)
	assert.Equal(t, s, again)

	_, err = c.Adopt(p, bob)
	assert.True(t, errors.ErrDuplicate.Is(err))

	_, err = c.Adopt(Preimage{5}, nil)
	assert.True(t, errors.ErrEmpty.Is(err))

	// The returned session must not alias the stored redeemer.
	s.Redeemer[0] = 0xff
	stored, err := c.Session(s.Commitment)
	require.NoError(t, err)
	assert.Equal(t, alice, stored.Redeemer)
}

func TestDerive(t *testing.T) {
	seed := []byte("a seed that is long enough")

	one, err := NewDeterministicCoordinator(seed)
	require.NoError(t, err)
	two, err := NewDeterministicCoordinator(seed)
	require.NoError(t, err)

	a, err := one.Derive(0, bob)
	require.NoError(t, err)
	b, err := two.Derive(0, bob)
	require.NoError(t, err)
	assert.Equal(t, a.Commitment, b.Commitment)

	next, err := one.Derive(1, bob)
	require.NoError(t, err)
	assert.NotEqual(t, a.Commitment, next.Commitment)

	other, err := NewDeterministicCoordinator([]byte("another seed, also long"))
	require.NoError(t, err)
	c, err := other.Derive(0, bob)
	require.NoError(t, err)
	assert.NotEqual(t, a.Commitment, c.Commitment)

	_, err = NewDeterministicCoordinator([]byte("short"))
	assert.True(t, errors.ErrInput.Is(err))

	_, err = NewCoordinator().Derive(0, bob)
	assert.True(t, errors.ErrInput.Is(err))
}

func TestPreimages(t *testing.T) {
	c := NewCoordinator()
	forBob, err := c.NewSession(bob)
	require.NoError(t, err)
	forAlice, err := c.NewSession(alice)
	require.NoError(t, err)

	pre := c.Preimages(bob)
	assert.Len(t, pre, 1)

	got, ok := pre.Preimage(forBob.Commitment)
	require.True(t, ok)
	require.NoError(t, Verify(got, forBob.Commitment))

	_, ok = pre.Preimage(forAlice.Commitment)
	assert.False(t, ok)

	pre.Add(Preimage{3})
	_, ok = pre.Preimage(ForCommitment(Preimage{3}))
	assert.True(t, ok)
}

func TestConcurrentSessions(t *testing.T) {
	c := NewCoordinator()
	const n = 32

	sessions := make([]Session, n)
	for i := range sessions {
		s, err := c.NewSession(bob)
		require.NoError(t, err)
		sessions[i] = s
	}

	var wg sync.WaitGroup
	errs := make(chan error, 2*n)
	for _, s := range sessions {
		wg.Add(2)
		go func(s Session) {
			defer wg.Done()
			p, err := c.Reveal(s.Commitment, bob)
			if err == nil {
				err = Verify(p[:], s.Commitment)
			}
			errs <- err
		}(s)
		go func(s Session) {
			defer wg.Done()
			_, err := c.Reveal(s.Commitment, alice)
			if !errors.ErrUnauthorized.Is(err) {
				errs <- errors.Wrap(errors.ErrHuman, "wrong party was not refused")
			}
		}(s)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}
}
