package osrs

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"ge-tracker/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c, err := NewClient(config.UpstreamConfig{
		SummaryURL:      srv.URL + "/summary.json",
		DetailURL:       srv.URL + "/items",
		PricesURL:       srv.URL + "/grandExchange?a=guidePrice",
		IconURL:         srv.URL + "/icons",
		Timeout:         5 * time.Second,
		DetailCacheSize: 16,
	}, zap.NewNop())
	require.NoError(t, err)
	return c
}

func TestSummaries(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"2":{"id":2,"name":"Cannonball","members":true,"sp":5},"6":{"name":"Cannon base","members":true}}`))
	}))

	got, err := c.Summaries(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Cannonball", got[2].Name)
	assert.Equal(t, int64(5), *got[2].StorePrice)
	assert.Equal(t, int64(6), got[6].ID)
	assert.Nil(t, got[6].StorePrice)
}

func TestDetail_CachesAndTreats404AsMissing(t *testing.T) {
	var hits atomic.Int64
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Path == "/items/4151.json" {
			w.Write([]byte(`{"examine":"A weapon from the abyss.","members":true,"highalch":72000,"lowalch":48000,"buy_limit":70}`))
			return
		}
		http.NotFound(w, r)
	}))
	ctx := context.Background()

	d, err := c.Detail(ctx, 4151)
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Equal(t, int64(72000), *d.HighAlch)
	assert.Equal(t, int64(70), *d.BuyLimit)
	require.NotNil(t, d.Members)
	assert.True(t, *d.Members)

	_, err = c.Detail(ctx, 4151)
	require.NoError(t, err)

	missing, err := c.Detail(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, missing)
	missing, err = c.Detail(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, missing)

	assert.Equal(t, int64(2), hits.Load())
}

func TestQuoteBatch_GuidePriceShape(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/grandExchange", r.URL.Path)
		assert.Equal(t, "guidePrice", r.URL.Query().Get("a"))
		assert.Equal(t, []string{"2", "6"}, r.URL.Query()["i"])
		w.Write([]byte(`{"2":{"overall":185,"buying":180,"buyingQuantity":1000,"selling":190,"sellingQuantity":800}}`))
	}))

	quotes, err := c.QuoteBatch(context.Background(), []int64{2, 6})
	require.NoError(t, err)
	require.Len(t, quotes, 1)
	assert.Equal(t, int64(180), *quotes[2].BuyPrice)
	assert.Equal(t, int64(190), *quotes[2].SellPrice)
	assert.Equal(t, int64(185), *quotes[2].AveragePrice)

	p := quotes[2].Price(2, time.Unix(0, 0))
	assert.Equal(t, int64(2), p.ItemID)
	assert.Equal(t, int64(1000), *p.BuyVolume)
	assert.Equal(t, int64(800), *p.SellVolume)

	_, err = c.QuoteBatch(context.Background(), make([]int64, MaxBatchSize+1))
	assert.ErrorIs(t, err, ErrBatchTooLarge)
}

func TestQuoteBatch_RejectsUnkeyedAnswer(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"2":{"high":5,"low":4}}}`))
	}))

	_, err := c.QuoteBatch(context.Background(), []int64{2})
	assert.ErrorIs(t, err, ErrUnrecognizedQuotes)
}

func TestQuotes_ChunksRequests(t *testing.T) {
	var requests atomic.Int64
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		ids := r.URL.Query()["i"]
		assert.LessOrEqual(t, len(ids), MaxBatchSize)
		var b strings.Builder
		b.WriteString(`{`)
		for i, id := range ids {
			if i > 0 {
				b.WriteString(",")
			}
			b.WriteString(`"` + id + `":{"buying":1}`)
		}
		b.WriteString("}")
		w.Write([]byte(b.String()))
	}))

	ids := make([]int64, 250)
	for i := range ids {
		ids[i] = int64(i + 1)
	}
	quotes, err := c.Quotes(context.Background(), ids)
	require.NoError(t, err)
	assert.Len(t, quotes, 250)
	assert.Equal(t, int64(3), requests.Load())
}

func TestQuotes_KeepsCompletedChunksOnFailure(t *testing.T) {
	var requests atomic.Int64
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requests.Add(1) > 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"1":{"buying":1}}`))
	}))

	ids := make([]int64, 150)
	for i := range ids {
		ids[i] = int64(i + 1)
	}
	quotes, err := c.Quotes(context.Background(), ids)
	assert.ErrorIs(t, err, ErrUpstream)
	var ue *UpstreamError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, http.StatusServiceUnavailable, ue.StatusCode)
	assert.Len(t, quotes, 1)
}

func TestChunk(t *testing.T) {
	assert.Empty(t, Chunk(nil, 100))
	chunks := Chunk([]int64{1, 2, 3, 4, 5}, 2)
	assert.Equal(t, [][]int64{{1, 2}, {3, 4}, {5}}, chunks)
}
