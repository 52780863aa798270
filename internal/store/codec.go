package store

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/efreitasn/ledgerauction/internal/domain"
)

// Records are encoded with deterministic CBOR so the same auction state
// always produces the same bytes. Times keep nanosecond precision.
var (
	recordEnc cbor.EncMode
	recordDec cbor.DecMode
)

func init() {
	encOpts := cbor.CoreDetEncOptions()
	encOpts.Time = cbor.TimeRFC3339Nano
	em, err := encOpts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("cbor enc mode: %v", err))
	}
	dm, err := cbor.DecOptions{}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("cbor dec mode: %v", err))
	}
	recordEnc, recordDec = em, dm
}

// EncodeAuction serializes an auction record.
func EncodeAuction(a *domain.Auction) ([]byte, error) {
	b, err := recordEnc.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("encode auction: %w", err)
	}
	return b, nil
}

// DecodeAuction parses an auction record.
func DecodeAuction(data []byte) (domain.Auction, error) {
	var a domain.Auction
	if err := recordDec.Unmarshal(data, &a); err != nil {
		return domain.Auction{}, fmt.Errorf("decode auction: %w", err)
	}
	return a, nil
}

// EncodeBid serializes a bidder metadata record.
func EncodeBid(b *domain.Bid) ([]byte, error) {
	data, err := recordEnc.Marshal(b)
	if err != nil {
		return nil, fmt.Errorf("encode bid: %w", err)
	}
	return data, nil
}

// DecodeBid parses a bidder metadata record.
func DecodeBid(data []byte) (domain.Bid, error) {
	var b domain.Bid
	if err := recordDec.Unmarshal(data, &b); err != nil {
		return domain.Bid{}, fmt.Errorf("decode bid: %w", err)
	}
	return b, nil
}
