package crypto

import (
	"encoding/hex"
	"sort"
	"sync"

	"github.com/btcsuite/btcd/btcec/v2"
)

// KeySource looks up a private key by its compressed public key.
type KeySource interface {
	PrivateKey(pub []byte) (*btcec.PrivateKey, bool)
}

var _ KeySource = (*Keyring)(nil)

// Keyring is an in memory KeySource. It is safe for concurrent use.
type Keyring struct {
	mu   sync.RWMutex
	keys map[string]*btcec.PrivateKey
}

// NewKeyring returns a keyring holding given keys.
func NewKeyring(keys ...*btcec.PrivateKey) *Keyring {
	r := &Keyring{keys: make(map[string]*btcec.PrivateKey)}
	for _, k := range keys {
		r.Add(k)
	}
	return r
}

// Add stores given key.
func (r *Keyring) Add(key *btcec.PrivateKey) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keys[hex.EncodeToString(key.PubKey().SerializeCompressed())] = key
}

// PrivateKey returns the private key of given compressed public key.
func (r *Keyring) PrivateKey(pub []byte) (*btcec.PrivateKey, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	k, ok := r.keys[hex.EncodeToString(pub)]
	return k, ok
}

// PublicKeys returns the hex encoded public keys of all stored keys in
// lexicographical order.
func (r *Keyring) PublicKeys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	pubs := make([]string, 0, len(r.keys))
	for p := range r.keys {
		pubs = append(pubs, p)
	}
	sort.Strings(pubs)
	return pubs
}
