package hashlock

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"io"
	"sync"

	"github.com/iov-one/swapkit/errors"
	"golang.org/x/crypto/hkdf"
)

// deriveInfo prefixes the HKDF info of every derived secret.
const deriveInfo = "swapkit/hashlock/session"

// MinSeedSize is the smallest seed accepted for deterministic secrets.
const MinSeedSize = 16

// Session is the public part of a swap session. The preimage never leaves
// the Coordinator except through Reveal.
type Session struct {
	Commitment Commitment
	// Redeemer is the compressed public key of the party entitled to the
	// preimage.
	Redeemer []byte
	// Revealed is true once the preimage was handed out.
	Revealed bool
}

// ID identifies the session. It is the hex encoded commitment.
func (s Session) ID() string {
	return s.Commitment.String()
}

type session struct {
	Session
	preimage Preimage
}

// Coordinator holds the preimages of swap sessions. It is safe for
// concurrent use. Access to every preimage is serialized.
type Coordinator struct {
	mu       sync.Mutex
	seed     []byte
	sessions map[Commitment]*session
}

// NewCoordinator returns a coordinator generating random secrets.
func NewCoordinator() *Coordinator {
	return &Coordinator{sessions: make(map[Commitment]*session)}
}

// NewDeterministicCoordinator returns a coordinator that can also derive
// secrets from given seed. The same seed and index always produce the same
// secret.
func NewDeterministicCoordinator(seed []byte) (*Coordinator, error) {
	if len(seed) < MinSeedSize {
		return nil, errors.Wrapf(errors.ErrInput, "seed must be at least %d bytes", MinSeedSize)
	}
	c := NewCoordinator()
	c.seed = append([]byte(nil), seed...)
	return c, nil
}

// NewSession starts a session with a random secret.
func (c *Coordinator) NewSession(redeemer []byte) (Session, error) {
	p, _, err := NewSecret()
	if err != nil {
		return Session{}, err
	}
	return c.Adopt(p, redeemer)
}

// Derive starts the session of given index with a secret derived from the
// coordinator seed.
func (c *Coordinator) Derive(index uint32, redeemer []byte) (Session, error) {
	if c.seed == nil {
		return Session{}, errors.Wrap(errors.ErrInput, "coordinator has no seed")
	}
	p, err := derive(c.seed, index)
	if err != nil {
		return Session{}, err
	}
	return c.Adopt(p, redeemer)
}

func derive(seed []byte, index uint32) (Preimage, error) {
	info := make([]byte, len(deriveInfo)+4)
	copy(info, deriveInfo)
	binary.BigEndian.PutUint32(info[len(deriveInfo):], index)

	var p Preimage
	if _, err := io.ReadFull(hkdf.New(sha256.New, seed, nil, info), p[:]); err != nil {
		return Preimage{}, errors.Wrap(err, "derive secret")
	}
	return p, nil
}

// Adopt starts a session for a known preimage, for example one extracted
// from a counterparty's spend. Adopting a preimage twice returns the
// existing session if the redeemer is the same.
func (c *Coordinator) Adopt(p Preimage, redeemer []byte) (Session, error) {
	if len(redeemer) == 0 {
		return Session{}, errors.Wrap(errors.ErrEmpty, "redeemer")
	}
	commitment := ForCommitment(p)

	c.mu.Lock()
	defer c.mu.Unlock()

	if s, ok := c.sessions[commitment]; ok {
		if !bytes.Equal(s.Redeemer, redeemer) {
			return Session{}, errors.Wrapf(errors.ErrDuplicate, "session %s has another redeemer", commitment)
		}
		return s.public(), nil
	}
	s := &session{
		Session: Session{
			Commitment: commitment,
			Redeemer:   append([]byte(nil), redeemer...),
		},
		preimage: p,
	}
	c.sessions[commitment] = s
	return s.public(), nil
}

// Session returns the public state of a session.
func (c *Coordinator) Session(commitment Commitment) (Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.sessions[commitment]
	if !ok {
		return Session{}, errors.Wrapf(errors.ErrNotFound, "session %s", commitment)
	}
	return s.public(), nil
}

// Reveal returns the preimage of a session to the party entitled to redeem.
// Any other party is refused.
func (c *Coordinator) Reveal(commitment Commitment, party []byte) (Preimage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.sessions[commitment]
	if !ok {
		return Preimage{}, errors.Wrapf(errors.ErrNotFound, "session %s", commitment)
	}
	if !bytes.Equal(s.Redeemer, party) {
		return Preimage{}, errors.Wrapf(errors.ErrUnauthorized,
			"%s may not redeem session %s", hex.EncodeToString(party), commitment)
	}
	s.Revealed = true
	return s.preimage, nil
}

// Preimages returns every preimage given party is entitled to. The
// sessions are marked revealed.
func (c *Coordinator) Preimages(party []byte) Preimages {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make(Preimages)
	for commitment, s := range c.sessions {
		if bytes.Equal(s.Redeemer, party) {
			s.Revealed = true
			out[commitment] = s.preimage
		}
	}
	return out
}

func (s *session) public() Session {
	out := s.Session
	out.Redeemer = append([]byte(nil), s.Redeemer...)
	return out
}

// Preimages is a set of revealed secrets keyed by commitment. It provides
// preimages when satisfying reveal branches.
type Preimages map[Commitment]Preimage

// Preimage returns the preimage of given digest.
func (p Preimages) Preimage(digest [32]byte) ([]byte, bool) {
	pre, ok := p[Commitment(digest)]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), pre[:]...), true
}

// Add stores given preimage.
func (p Preimages) Add(pre Preimage) {
	p[ForCommitment(pre)] = pre
}
