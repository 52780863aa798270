package store

import (
	"sync"

	"github.com/efreitasn/ledgerauction/internal/domain"
	"github.com/efreitasn/ledgerauction/internal/pubkey"
)

// Account is a token account: a balance of one mint owned by one key.
type Account struct {
	Owner   pubkey.PublicKey
	Mint    pubkey.PublicKey
	Balance uint64
}

// MemoryLedger is a thread-safe in-memory ledger holding token accounts
// and record accounts. Every Transfer call is all-or-nothing.
type MemoryLedger struct {
	mu       sync.RWMutex
	accounts map[pubkey.PublicKey]*Account
	records  map[pubkey.PublicKey]domain.Record
}

// NewMemoryLedger creates an empty MemoryLedger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		accounts: make(map[pubkey.PublicKey]*Account),
		records:  make(map[pubkey.PublicKey]domain.Record),
	}
}

// OpenAccount creates a token account with an initial balance. It returns
// domain.ErrAlreadyExists if the account exists.
func (l *MemoryLedger) OpenAccount(id, owner, mint pubkey.PublicKey, balance uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.accounts[id]; exists {
		return domain.ErrAlreadyExists
	}
	l.accounts[id] = &Account{Owner: owner, Mint: mint, Balance: balance}
	return nil
}

// Account returns a copy of a token account. It returns
// domain.ErrAccountNotFound if the account does not exist.
func (l *MemoryLedger) Account(id pubkey.PublicKey) (Account, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	acct, ok := l.accounts[id]
	if !ok {
		return Account{}, domain.ErrAccountNotFound
	}
	return *acct, nil
}

// Balance returns the balance of a token account, 0 if it does not exist.
func (l *MemoryLedger) Balance(id pubkey.PublicKey) uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if acct, ok := l.accounts[id]; ok {
		return acct.Balance
	}
	return 0
}

// Transfer validates every transfer against a working copy of the touched
// balances and applies them only if all succeed. Destinations opened
// through ToOwner are kept aside until then.
func (l *MemoryLedger) Transfer(transfers ...domain.Transfer) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	opened := make(map[pubkey.PublicKey]*Account)
	lookup := func(id pubkey.PublicKey) (*Account, bool) {
		if acct, ok := l.accounts[id]; ok {
			return acct, true
		}
		acct, ok := opened[id]
		return acct, ok
	}
	working := make(map[pubkey.PublicKey]uint64)
	balance := func(id pubkey.PublicKey) uint64 {
		if v, ok := working[id]; ok {
			return v
		}
		acct, _ := lookup(id)
		return acct.Balance
	}

	for _, t := range transfers {
		fail := func(cause error) error {
			return &domain.TransferError{From: t.From, To: t.To, Amount: t.Amount, Err: cause}
		}
		from, ok := lookup(t.From)
		if !ok {
			return fail(domain.ErrAccountNotFound)
		}
		to, ok := lookup(t.To)
		switch {
		case !ok && t.ToOwner == nil:
			return fail(domain.ErrAccountNotFound)
		case !ok:
			to = &Account{Owner: *t.ToOwner, Mint: t.Mint}
			opened[t.To] = to
		case t.ToOwner != nil && to.Owner != *t.ToOwner:
			return fail(domain.ErrUnauthorizedTransfer)
		}
		if from.Mint != t.Mint || to.Mint != t.Mint {
			return fail(domain.ErrMintMismatch)
		}
		if from.Owner != t.Authority {
			return fail(domain.ErrUnauthorizedTransfer)
		}
		if balance(t.From) < t.Amount {
			return fail(domain.ErrInsufficientFunds)
		}
		working[t.From] = balance(t.From) - t.Amount
		working[t.To] = balance(t.To) + t.Amount
	}

	for id, acct := range opened {
		l.accounts[id] = acct
	}
	for id, v := range working {
		l.accounts[id].Balance = v
	}
	return nil
}

// Read returns the record stored at id. It returns domain.ErrNotFound if
// nothing has been written there.
func (l *MemoryLedger) Read(id pubkey.PublicKey) (domain.Record, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	rec, ok := l.records[id]
	if !ok {
		return domain.Record{}, domain.ErrNotFound
	}
	rec.Data = append([]byte(nil), rec.Data...)
	return rec, nil
}

// Write replaces the record stored at id. A record already owned by a
// different key cannot be overwritten.
func (l *MemoryLedger) Write(id pubkey.PublicKey, rec domain.Record) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if existing, ok := l.records[id]; ok && existing.Owner != rec.Owner {
		return domain.ErrUnauthorized
	}
	rec.Data = append([]byte(nil), rec.Data...)
	l.records[id] = rec
	return nil
}
