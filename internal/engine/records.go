package engine

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/efreitasn/ledgerauction/internal/domain"
	"github.com/efreitasn/ledgerauction/internal/pubkey"
	"github.com/efreitasn/ledgerauction/internal/store"
)

// recordWrite is an encoded record waiting to be written at addr.
type recordWrite struct {
	addr pubkey.PublicKey
	data []byte
}

// seeds returns the address seeds of one auction incarnation. The
// incarnation ID keeps escrow and records of a re-auctioned resource apart
// from its earlier auctions.
func (m *Machine) seeds(resource pubkey.PublicKey, id uuid.UUID) [][]byte {
	return [][]byte{auctionPrefix, m.opts.ProgramID.Bytes(), resource.Bytes(), id[:]}
}

func (m *Machine) auctionSeeds(a *domain.Auction) ([][]byte, error) {
	id, err := uuid.Parse(a.AuctionID)
	if err != nil {
		return nil, fmt.Errorf("auction id %q: %w", a.AuctionID, err)
	}
	return m.seeds(a.Resource, id), nil
}

// potAddress derives the escrow account of a bidder on an auction.
func (m *Machine) potAddress(a *domain.Auction, bidder pubkey.PublicKey) (pubkey.PublicKey, error) {
	seeds, err := m.auctionSeeds(a)
	if err != nil {
		return pubkey.Zero, err
	}
	addr, _, err := pubkey.FindProgramAddress(append(seeds, bidder.Bytes()), m.opts.ProgramID)
	if err != nil {
		return pubkey.Zero, fmt.Errorf("derive pot address: %w", err)
	}
	return addr, nil
}

// metadataAddress derives the bid record address of a bidder on an auction.
func (m *Machine) metadataAddress(a *domain.Auction, bidder pubkey.PublicKey) (pubkey.PublicKey, error) {
	seeds, err := m.auctionSeeds(a)
	if err != nil {
		return pubkey.Zero, err
	}
	addr, _, err := pubkey.FindProgramAddress(append(seeds, bidder.Bytes(), metadataSuffix), m.opts.ProgramID)
	if err != nil {
		return pubkey.Zero, fmt.Errorf("derive metadata address: %w", err)
	}
	return addr, nil
}

// MetadataAddress returns where the bid record of bidder on the live
// auction of resource is written.
func (m *Machine) MetadataAddress(resource, bidder pubkey.PublicKey) (pubkey.PublicKey, error) {
	a, err := m.Get(resource)
	if err != nil {
		return pubkey.Zero, err
	}
	return m.metadataAddress(&a, bidder)
}

// records encodes the auction record and any touched bid records.
func (m *Machine) records(a *domain.Auction, bids ...*domain.Bid) ([]recordWrite, error) {
	data, err := store.EncodeAuction(a)
	if err != nil {
		return nil, err
	}
	writes := []recordWrite{{addr: a.Address, data: data}}

	for _, b := range bids {
		addr, err := m.metadataAddress(a, b.Bidder)
		if err != nil {
			return nil, err
		}
		data, err := store.EncodeBid(b)
		if err != nil {
			return nil, err
		}
		writes = append(writes, recordWrite{addr: addr, data: data})
	}
	return writes, nil
}

// apply checks that every record slot belongs to the program, runs the
// transfers as one batch and then writes the records. Once the ownership
// check passes the writes cannot be refused, so a rejected batch leaves
// records and balances untouched.
func (m *Machine) apply(transfers []domain.Transfer, writes []recordWrite) error {
	for _, w := range writes {
		rec, err := m.ledger.Read(w.addr)
		switch {
		case errors.Is(err, domain.ErrNotFound):
		case err != nil:
			return fmt.Errorf("read record %s: %w", w.addr, err)
		case rec.Owner != m.opts.ProgramID:
			return fmt.Errorf("record %s: %w", w.addr, domain.ErrUnauthorized)
		}
	}

	if len(transfers) > 0 {
		if err := m.ledger.Transfer(transfers...); err != nil {
			return err
		}
	}

	for _, w := range writes {
		if err := m.ledger.Write(w.addr, domain.Record{Owner: m.opts.ProgramID, Data: w.data}); err != nil {
			return fmt.Errorf("write record %s: %w", w.addr, err)
		}
	}
	return nil
}
