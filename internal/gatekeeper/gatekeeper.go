// Package gatekeeper issues and verifies gateway tokens, the identity
// passes gated auctions require from their bidders.
package gatekeeper

import (
	"sync"
	"time"

	"github.com/efreitasn/ledgerauction/internal/domain"
	"github.com/efreitasn/ledgerauction/internal/pubkey"
)

// TokenState is the lifecycle state of a gateway token.
type TokenState string

const (
	TokenStateActive  TokenState = "active"
	TokenStateFrozen  TokenState = "frozen"
	TokenStateRevoked TokenState = "revoked"
)

var gatewaySeed = []byte("gateway")

// Token is a gateway token issued to one owner on one network.
type Token struct {
	Address   pubkey.PublicKey
	Owner     pubkey.PublicKey
	Network   pubkey.PublicKey
	State     TokenState
	IssuedAt  time.Time
	ExpiresAt *time.Time
}

func (t *Token) clone() Token {
	c := *t
	if t.ExpiresAt != nil {
		v := *t.ExpiresAt
		c.ExpiresAt = &v
	}
	return c
}

// Registry is a thread-safe in-memory gatekeeper. Tokens live at addresses
// derived from the owner and network under the gateway program.
type Registry struct {
	mu      sync.RWMutex
	program pubkey.PublicKey
	now     func() time.Time
	tokens  map[pubkey.PublicKey]*Token // token address → token
}

// NewRegistry creates an empty Registry. now defaults to time.Now.
func NewRegistry(program pubkey.PublicKey, now func() time.Time) *Registry {
	if now == nil {
		now = time.Now
	}
	return &Registry{
		program: program,
		now:     now,
		tokens:  make(map[pubkey.PublicKey]*Token),
	}
}

// TokenAddress derives where the token of owner on network lives.
func (r *Registry) TokenAddress(owner, network pubkey.PublicKey) (pubkey.PublicKey, error) {
	seeds := [][]byte{owner.Bytes(), gatewaySeed, make([]byte, 8), network.Bytes()}
	addr, _, err := pubkey.FindProgramAddress(seeds, r.program)
	return addr, err
}

// Issue creates an active token for owner on network. A revoked token is
// replaced; any other existing token yields domain.ErrAlreadyExists.
func (r *Registry) Issue(owner, network pubkey.PublicKey, expiresAt *time.Time) (Token, error) {
	addr, err := r.TokenAddress(owner, network)
	if err != nil {
		return Token{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.tokens[addr]; ok && existing.State != TokenStateRevoked {
		return Token{}, domain.ErrAlreadyExists
	}
	tok := &Token{
		Address:  addr,
		Owner:    owner,
		Network:  network,
		State:    TokenStateActive,
		IssuedAt: r.now(),
	}
	if expiresAt != nil {
		v := *expiresAt
		tok.ExpiresAt = &v
	}
	r.tokens[addr] = tok
	return tok.clone(), nil
}

// Get returns the token at addr.
func (r *Registry) Get(addr pubkey.PublicKey) (Token, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tok, ok := r.tokens[addr]
	if !ok {
		return Token{}, domain.ErrNotFound
	}
	return tok.clone(), nil
}

// Freeze suspends an active token.
func (r *Registry) Freeze(addr pubkey.PublicKey) (Token, error) {
	return r.transition(addr, TokenStateFrozen, TokenStateActive)
}

// Unfreeze reactivates a frozen token.
func (r *Registry) Unfreeze(addr pubkey.PublicKey) (Token, error) {
	return r.transition(addr, TokenStateActive, TokenStateFrozen)
}

// Revoke permanently invalidates a token.
func (r *Registry) Revoke(addr pubkey.PublicKey) (Token, error) {
	return r.transition(addr, TokenStateRevoked, TokenStateActive, TokenStateFrozen)
}

func (r *Registry) transition(addr pubkey.PublicKey, to TokenState, from ...TokenState) (Token, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tok, ok := r.tokens[addr]
	if !ok {
		return Token{}, domain.ErrNotFound
	}
	for _, s := range from {
		if tok.State == s {
			tok.State = to
			return tok.clone(), nil
		}
	}
	return Token{}, domain.ErrInvalidState
}

// Verify reports whether token is an active, unexpired gateway token
// issued to owner on network.
func (r *Registry) Verify(token, network, owner pubkey.PublicKey) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tok, ok := r.tokens[token]
	if !ok {
		return false
	}
	if tok.State != TokenStateActive || tok.Owner != owner || tok.Network != network {
		return false
	}
	if tok.ExpiresAt != nil && !r.now().Before(*tok.ExpiresAt) {
		return false
	}
	return true
}
