package app

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/efreitasn/ledgerauction/internal/config"
	"github.com/efreitasn/ledgerauction/internal/domain"
	"github.com/efreitasn/ledgerauction/internal/engine"
	"github.com/efreitasn/ledgerauction/internal/pubkey"
	"github.com/efreitasn/ledgerauction/internal/service"
)

var (
	resource  = pubkey.NewFromSeed("resource")
	authority = pubkey.NewFromSeed("authority")
	mint      = pubkey.NewFromSeed("mint")
	network   = pubkey.NewFromSeed("network")
	alice     = pubkey.NewFromSeed("alice")
	bob       = pubkey.NewFromSeed("bob")
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.AuctionProgram = pubkey.MustParse(config.DefaultAuctionProgramID)
	cfg.GatewayProgram = pubkey.MustParse(config.DefaultGatewayProgramID)
	cfg.CloseInterval = 10 * time.Millisecond
	cfg.JournalPath = ":memory:"
	return &cfg
}

func newApp(t *testing.T, cfg *config.Config) *App {
	t.Helper()
	a, err := New(cfg, slog.New(slog.NewJSONHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	for _, key := range []pubkey.PublicKey{authority, alice, bob} {
		require.NoError(t, a.Ledger.OpenAccount(key, key, mint, 1000))
	}
	return a
}

func TestNew_Wiring(t *testing.T) {
	a := newApp(t, testConfig())

	assert.NotNil(t, a.Journal)
	assert.NotNil(t, a.Closer)
	assert.NotNil(t, a.Auctions)

	srv := a.Server()
	assert.Equal(t, ":8080", srv.Addr)
	assert.Equal(t, 5*time.Second, srv.ReadTimeout)

	rr := httptest.NewRecorder()
	a.Router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	a.Router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "ledgerauction_escrow_balance")
	assert.Contains(t, rr.Body.String(), "go_goroutines")
}

func TestNew_OptionalComponentsDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.CloseInterval = 0
	cfg.JournalPath = ""
	a := newApp(t, cfg)

	assert.Nil(t, a.Closer)
	assert.Nil(t, a.Journal)

	ctx := context.Background()
	end := time.Now().Add(time.Hour)
	_, err := a.Auctions.CreateAuction(ctx, service.CreateAuctionRequest{
		Resource:  resource.String(),
		Authority: authority.String(),
		TokenMint: mint.String(),
		EndAt:     &end,
	})
	require.NoError(t, err)
	_, err = a.Auctions.StartAuction(ctx, resource.String(), authority.String())
	require.NoError(t, err)

	a.Start(ctx)
	require.NoError(t, a.Close())
}

func TestNew_JournalError(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o600))

	cfg := testConfig()
	cfg.JournalPath = filepath.Join(blocker, "journal", "events.db")

	_, err := New(cfg, nil)
	require.Error(t, err)
}

func TestApp_GatedAuctionEndsOnSchedule(t *testing.T) {
	a := newApp(t, testConfig())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	end := time.Now().Add(300 * time.Millisecond)
	_, err := a.Auctions.CreateAuction(ctx, service.CreateAuctionRequest{
		Resource:          resource.String(),
		Authority:         authority.String(),
		TokenMint:         mint.String(),
		GatekeeperNetwork: network.String(),
		EndAt:             &end,
	})
	require.NoError(t, err)
	_, err = a.Auctions.StartAuction(ctx, resource.String(), authority.String())
	require.NoError(t, err)

	token, err := a.Gatekeeper.Issue(alice, network, nil)
	require.NoError(t, err)

	_, err = a.Auctions.PlaceBid(ctx, service.PlaceBidRequest{
		Resource:     resource.String(),
		Bidder:       alice.String(),
		Amount:       200,
		GatewayToken: token.Address.String(),
	})
	require.NoError(t, err)

	_, err = a.Auctions.PlaceBid(ctx, service.PlaceBidRequest{
		Resource: resource.String(),
		Bidder:   bob.String(),
		Amount:   300,
	})
	require.ErrorIs(t, err, domain.ErrUnverified)

	a.Start(ctx)
	require.Eventually(t, func() bool {
		auction, err := a.Auctions.GetAuction(resource.String())
		return err == nil && auction.State == domain.AuctionStateEnded
	}, 5*time.Second, 20*time.Millisecond)

	auction, err := a.Auctions.GetAuction(resource.String())
	require.NoError(t, err)
	assert.Equal(t, []pubkey.PublicKey{alice}, auction.Winners)

	require.Eventually(t, func() bool {
		entries, err := a.Journal.ListByResource(ctx, resource)
		return err == nil && len(entries) == 4
	}, 5*time.Second, 20*time.Millisecond)

	entries, err := a.Journal.ListByResource(ctx, resource)
	require.NoError(t, err)
	last := entries[len(entries)-1]
	assert.Equal(t, domain.EventAuctionEnded, last.Type)
	assert.Equal(t, engine.TriggerSchedule, last.Trigger)

	_, err = a.Auctions.Claim(ctx, resource.String(), alice.String(), authority.String())
	require.NoError(t, err)
	assert.Equal(t, uint64(1200), a.Ledger.Balance(authority))
}
