/*

HP/USD display price feed.

The HP/USDT peg is a constant (collateral.PegRateUSDTPerHP) and is never
fetched. The volatile HP/USD price is used only for the staking USD-value cap
and for display, so the feed caches aggressively and falls back to the last
good value when the upstream API misbehaves.

*/

package pricing

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"sync"
	"time"

	sdkmath "cosmossdk.io/math"

	"github.com/happy-paisa/hpe/internal/logger"
)

var priceLogger = logger.GetForComponent("price_feed")

var (
	ErrInvalidPriceData = errors.New("invalid price data received")
	ErrPriceUnavailable = errors.New("no price available")
)

const (
	DEFAULT_CACHE_TTL = 1 * time.Minute
	TIMEOUT_SECONDS   = 15
)

// PriceFeed supplies the current HP/USD price.
type PriceFeed interface {
	CurrentPrice() (sdkmath.LegacyDec, error)
}

// priceResponse is the upstream API payload.
type priceResponse struct {
	Symbol   string  `json:"symbol"`
	PriceUSD float64 `json:"price_usd"`
}

// HTTPFeed fetches the HP/USD price over HTTP with a TTL cache and a
// last-good-value fallback.
type HTTPFeed struct {
	url    string
	client *http.Client
	ttl    time.Duration

	mu        sync.Mutex
	lastPrice sdkmath.LegacyDec
	fetchedAt time.Time
}

// NewHTTPFeed creates a feed against the given price API URL.
func NewHTTPFeed(url string) (*HTTPFeed, error) {
	if url == "" {
		return nil, fmt.Errorf("price API URL is required")
	}
	return &HTTPFeed{
		url:    url,
		client: &http.Client{Timeout: TIMEOUT_SECONDS * time.Second},
		ttl:    DEFAULT_CACHE_TTL,
	}, nil
}

// CurrentPrice returns the cached price when fresh, otherwise refetches.
// A fetch failure falls back to the last good value if one exists.
func (f *HTTPFeed) CurrentPrice() (sdkmath.LegacyDec, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.lastPrice.IsNil() && time.Since(f.fetchedAt) < f.ttl {
		return f.lastPrice, nil
	}

	price, err := f.fetch()
	if err != nil {
		if !f.lastPrice.IsNil() {
			priceLogger.Warn().Err(err).
				Str("lastPrice", f.lastPrice.String()).
				Time("fetchedAt", f.fetchedAt).
				Msg("Price fetch failed, using last good value")
			return f.lastPrice, nil
		}
		return sdkmath.LegacyDec{}, fmt.Errorf("%w: %w", ErrPriceUnavailable, err)
	}

	f.lastPrice = price
	f.fetchedAt = time.Now()
	return price, nil
}

func (f *HTTPFeed) fetch() (sdkmath.LegacyDec, error) {
	resp, err := f.client.Get(f.url)
	if err != nil {
		return sdkmath.LegacyDec{}, fmt.Errorf("price API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return sdkmath.LegacyDec{}, fmt.Errorf("price API returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return sdkmath.LegacyDec{}, fmt.Errorf("failed to read price response: %w", err)
	}

	var payload priceResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return sdkmath.LegacyDec{}, fmt.Errorf("%w: %w", ErrInvalidPriceData, err)
	}
	if math.IsNaN(payload.PriceUSD) || math.IsInf(payload.PriceUSD, 0) || payload.PriceUSD <= 0 {
		return sdkmath.LegacyDec{}, fmt.Errorf("%w: price %f", ErrInvalidPriceData, payload.PriceUSD)
	}

	price, err := sdkmath.LegacyNewDecFromStr(fmt.Sprintf("%.8f", payload.PriceUSD))
	if err != nil {
		return sdkmath.LegacyDec{}, fmt.Errorf("%w: %w", ErrInvalidPriceData, err)
	}

	priceLogger.Debug().Str("price", price.String()).Msg("Fetched HP/USD price")
	return price, nil
}

// StaticFeed returns a fixed price. Used in tests and simulation runs.
type StaticFeed struct {
	Price sdkmath.LegacyDec
}

// CurrentPrice returns the fixed price.
func (s StaticFeed) CurrentPrice() (sdkmath.LegacyDec, error) {
	if s.Price.IsNil() || !s.Price.IsPositive() {
		return sdkmath.LegacyDec{}, ErrPriceUnavailable
	}
	return s.Price, nil
}
