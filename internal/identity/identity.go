// Package identity holds the node's own signing identity and the directory
// used to resolve organization names to routable parties.
package identity

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"sort"
	"sync"

	"github.com/nferraro/gridswap/internal/state"
)

// Identity is one organization's signing identity on the network.
type Identity struct {
	party state.Party
	priv  ed25519.PrivateKey
}

// New generates a fresh signing keypair for the named organization.
func New(name string) (*Identity, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generating identity key for %s: %w", name, err)
	}

	return &Identity{
		party: state.Party{Name: name, Key: pub},
		priv:  priv,
	}, nil
}

func (i *Identity) Party() state.Party { return i.party }

func (i *Identity) Name() string { return i.party.Name }

func (i *Identity) Sign(payload []byte) []byte {
	return ed25519.Sign(i.priv, payload)
}

// Verify checks a signature against the given party's key.
func Verify(p state.Party, payload, sig []byte) bool {
	return len(sig) > 0 && ed25519.Verify(p.Key, payload, sig)
}

// ErrUnknownParty is returned when a name cannot be resolved to a party.
type ErrUnknownParty struct {
	Name string
}

func (e *ErrUnknownParty) Error() string {
	return fmt.Sprintf("unknown party %q", e.Name)
}

// Registry resolves organization names to parties. It is populated at
// network bootstrap and safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	parties map[string]state.Party
}

func NewRegistry() *Registry {
	return &Registry{parties: make(map[string]state.Party)}
}

func (r *Registry) Register(p state.Party) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.parties[p.Name] = p
}

func (r *Registry) Lookup(name string) (state.Party, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.parties[name]
	if !ok {
		return state.Party{}, &ErrUnknownParty{Name: name}
	}

	return p, nil
}

// Peers lists every registered party except the named one, sorted by name.
func (r *Registry) Peers(except string) []state.Party {
	r.mu.RLock()
	defer r.mu.RUnlock()

	peers := make([]state.Party, 0, len(r.parties))

	for name, p := range r.parties {
		if name == except {
			continue
		}

		peers = append(peers, p)
	}

	sort.Slice(peers, func(i, j int) bool { return peers[i].Name < peers[j].Name })

	return peers
}
