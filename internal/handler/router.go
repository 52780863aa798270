package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/efreitasn/ledgerauction/internal/service"
)

// NewRouter creates the operational chi router: health, Prometheus metrics
// and read-only auction inspection, with request logging.
func NewRouter(
	auctionSvc *service.AuctionService,
	metricsHandler http.Handler,
	logger *slog.Logger,
) chi.Router {
	r := chi.NewRouter()

	// Global middleware.
	r.Use(requestLogging(logger))

	auctionH := NewAuctionHandler(auctionSvc)

	// Health check.
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	if metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}

	// Auction routes.
	r.Get("/auctions/{resource}", auctionH.GetAuction)
	r.Get("/auctions/{resource}/bids", auctionH.ListBids)
	r.Get("/auctions/{resource}/winners", auctionH.ListWinners)
	r.Get("/auctions/{resource}/events", auctionH.ListEvents)
	r.Get("/auctions/{resource}/history", auctionH.ListHistory)

	// Bidder routes.
	r.Get("/bidders/{bidder}/bids", auctionH.ListBidderBids)

	return r
}

// requestLogging returns middleware that logs each request's method, path,
// status code, and duration using slog.
func requestLogging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)
			logger.Info("request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.status),
				slog.Duration("duration", time.Since(start)),
			)
		})
	}
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.status = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}
