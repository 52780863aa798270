package domain

import "github.com/efreitasn/ledgerauction/internal/pubkey"

// Transfer moves Amount of Mint between two token accounts. Authority must
// own From; the adapter checks that and nothing more.
//
// ToOwner, when set, lets the transfer open To for that owner if it does
// not exist yet. The account is created only if the whole batch commits.
type Transfer struct {
	Mint      pubkey.PublicKey
	From      pubkey.PublicKey
	To        pubkey.PublicKey
	Authority pubkey.PublicKey
	Amount    uint64
	ToOwner   *pubkey.PublicKey
}

// Record is a fixed-address data account as held by the ledger.
type Record struct {
	Owner pubkey.PublicKey
	Data  []byte
}
