package pricing

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/require"
)

func newTestFeed(t *testing.T, handler http.HandlerFunc) (*HTTPFeed, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	feed, err := NewHTTPFeed(srv.URL)
	require.NoError(t, err)
	return feed, srv
}

func TestHTTPFeedFetchesAndParses(t *testing.T) {
	feed, _ := newTestFeed(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"symbol":"HP","price_usd":1.25}`))
	})

	price, err := feed.CurrentPrice()
	require.NoError(t, err)
	require.True(t, price.Equal(sdkmath.LegacyNewDecWithPrec(125, 2)), "got %s", price)
}

func TestHTTPFeedCachesWithinTTL(t *testing.T) {
	var calls atomic.Int64
	feed, _ := newTestFeed(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{"symbol":"HP","price_usd":2}`))
	})

	for i := 0; i < 5; i++ {
		_, err := feed.CurrentPrice()
		require.NoError(t, err)
	}
	require.Equal(t, int64(1), calls.Load())
}

func TestHTTPFeedFallsBackToLastGoodValue(t *testing.T) {
	var fail atomic.Bool
	feed, _ := newTestFeed(t, func(w http.ResponseWriter, _ *http.Request) {
		if fail.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"symbol":"HP","price_usd":3}`))
	})
	feed.ttl = 0 // force a refetch on every call

	price, err := feed.CurrentPrice()
	require.NoError(t, err)
	require.True(t, price.Equal(sdkmath.LegacyNewDec(3)))

	fail.Store(true)
	price, err = feed.CurrentPrice()
	require.NoError(t, err)
	require.True(t, price.Equal(sdkmath.LegacyNewDec(3)))
}

func TestHTTPFeedRejectsBadPayloads(t *testing.T) {
	cases := map[string]string{
		"malformed json": `{"symbol":`,
		"zero price":     `{"symbol":"HP","price_usd":0}`,
		"negative price": `{"symbol":"HP","price_usd":-1}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			feed, _ := newTestFeed(t, func(w http.ResponseWriter, _ *http.Request) {
				w.Write([]byte(body))
			})
			_, err := feed.CurrentPrice()
			require.ErrorIs(t, err, ErrPriceUnavailable)
		})
	}
}

func TestHTTPFeedErrorsWithoutAnyPrice(t *testing.T) {
	feed, _ := newTestFeed(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := feed.CurrentPrice()
	require.ErrorIs(t, err, ErrPriceUnavailable)
}

func TestStaticFeed(t *testing.T) {
	price, err := StaticFeed{Price: sdkmath.LegacyNewDec(2)}.CurrentPrice()
	require.NoError(t, err)
	require.True(t, price.Equal(sdkmath.LegacyNewDec(2)))

	_, err = StaticFeed{}.CurrentPrice()
	require.ErrorIs(t, err, ErrPriceUnavailable)
}
