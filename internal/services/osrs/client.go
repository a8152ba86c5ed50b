// Package osrs talks to the external exchange data source: the item
// catalog summary, per-item metadata, bulk price quotes and item icons.
package osrs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	neturl "net/url"
	"strconv"
	"strings"
	"time"

	"ge-tracker/internal/config"
	"ge-tracker/internal/models"

	"github.com/go-resty/resty/v2"
	lru "github.com/hashicorp/golang-lru"
	"go.uber.org/zap"
)

// MaxBatchSize is the most ids one quote request may carry.
const MaxBatchSize = 100

var (
	ErrUpstream      = errors.New("upstream request failed")
	ErrBatchTooLarge = fmt.Errorf("quote batch exceeds %d ids", MaxBatchSize)
)

// UpstreamError is a non-200 answer from the data source.
type UpstreamError struct {
	URL        string
	StatusCode int
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream %s returned %d", e.URL, e.StatusCode)
}

func (e *UpstreamError) Unwrap() error { return ErrUpstream }

// Summary is one catalog entry.
type Summary struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Members    bool   `json:"members"`
	StorePrice *int64 `json:"sp"`
}

// Detail is the optional descriptive metadata of an item. Members is nil
// when the source leaves it out.
type Detail struct {
	Examine  string `json:"examine"`
	Members  *bool  `json:"members"`
	HighAlch *int64 `json:"highalch"`
	LowAlch  *int64 `json:"lowalch"`
	BuyLimit *int64 `json:"buy_limit"`
}

// Quote is one item's entry in a guide price response, which is keyed by
// item id: {"2":{"buying":180,"selling":190,...}}.
type Quote struct {
	BuyPrice     *int64 `json:"buying"`
	SellPrice    *int64 `json:"selling"`
	AveragePrice *int64 `json:"overall"`
	BuyVolume    *int64 `json:"buyingQuantity"`
	SellVolume   *int64 `json:"sellingQuantity"`
}

// Price turns the quote into a price observation taken at ts.
func (q Quote) Price(itemID int64, ts time.Time) models.Price {
	return models.Price{
		ItemID:       itemID,
		BuyPrice:     q.BuyPrice,
		SellPrice:    q.SellPrice,
		AveragePrice: q.AveragePrice,
		BuyVolume:    q.BuyVolume,
		SellVolume:   q.SellVolume,
		Timestamp:    ts,
	}
}

// ErrUnrecognizedQuotes is returned when a 200 quote answer holds entries
// but none of them is keyed by an item id.
var ErrUnrecognizedQuotes = errors.New("unrecognized quote response")

type Client struct {
	http    *resty.Client
	cfg     config.UpstreamConfig
	details *lru.Cache
	log     *zap.Logger
}

func NewClient(cfg config.UpstreamConfig, log *zap.Logger) (*Client, error) {
	size := cfg.DetailCacheSize
	if size <= 0 {
		size = 1024
	}
	cache, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &Client{
		http:    newHTTP(cfg),
		cfg:     cfg,
		details: cache,
		log:     log.Named("osrs"),
	}, nil
}

func newHTTP(cfg config.UpstreamConfig) *resty.Client {
	client := resty.New()
	client.SetTimeout(cfg.Timeout)
	if cfg.UserAgent != "" {
		client.SetHeader("User-Agent", cfg.UserAgent)
	}
	return client
}

// getJSON fetches url and decodes a 200 body into out. The second result
// is the status code for callers that treat some non-200s specially.
func (c *Client) getJSON(ctx context.Context, url string, query neturl.Values, out any) (int, error) {
	resp, err := c.http.R().SetContext(ctx).SetQueryParamsFromValues(query).Get(url)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return resp.StatusCode(), &UpstreamError{URL: url, StatusCode: resp.StatusCode()}
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return resp.StatusCode(), fmt.Errorf("decode %s: %w", url, err)
	}
	return resp.StatusCode(), nil
}

// Summaries returns the whole catalog keyed by item id.
func (c *Client) Summaries(ctx context.Context) (map[int64]Summary, error) {
	var raw map[string]Summary
	if _, err := c.getJSON(ctx, c.cfg.SummaryURL, nil, &raw); err != nil {
		return nil, err
	}

	out := make(map[int64]Summary, len(raw))
	for key, s := range raw {
		if s.ID == 0 {
			id, err := strconv.ParseInt(key, 10, 64)
			if err != nil {
				c.log.Warn("skip summary with bad id", zap.String("key", key))
				continue
			}
			s.ID = id
		}
		out[s.ID] = s
	}
	return out, nil
}

// Detail returns an item's metadata, or nil when the source has none.
func (c *Client) Detail(ctx context.Context, id int64) (*Detail, error) {
	if v, ok := c.details.Get(id); ok {
		return v.(*Detail), nil
	}

	url := fmt.Sprintf("%s/%d.json", strings.TrimRight(c.cfg.DetailURL, "/"), id)
	var d Detail
	status, err := c.getJSON(ctx, url, nil, &d)
	if status == http.StatusNotFound {
		c.details.Add(id, (*Detail)(nil))
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	c.details.Add(id, &d)
	return &d, nil
}

// QuoteBatch fetches prices for at most MaxBatchSize ids in one request,
// one repeated i parameter per id. Ids missing from the answer are absent
// from the result.
func (c *Client) QuoteBatch(ctx context.Context, ids []int64) (map[int64]Quote, error) {
	if len(ids) > MaxBatchSize {
		return nil, ErrBatchTooLarge
	}
	out := make(map[int64]Quote, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	query := neturl.Values{}
	for _, id := range ids {
		query.Add("i", strconv.FormatInt(id, 10))
	}
	var raw map[string]json.RawMessage
	if _, err := c.getJSON(ctx, c.cfg.PricesURL, query, &raw); err != nil {
		return nil, err
	}

	for key, body := range raw {
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			c.log.Warn("skip quote with bad id", zap.String("key", key))
			continue
		}
		var q Quote
		if err := json.Unmarshal(body, &q); err != nil {
			return nil, fmt.Errorf("decode quote %d: %w", id, err)
		}
		out[id] = q
	}
	if len(raw) > 0 && len(out) == 0 {
		return nil, fmt.Errorf("%w from %s", ErrUnrecognizedQuotes, c.cfg.PricesURL)
	}
	return out, nil
}

// Quotes fetches any number of ids in MaxBatchSize chunks. On failure it
// returns the quotes of the chunks that completed along with the error.
func (c *Client) Quotes(ctx context.Context, ids []int64) (map[int64]Quote, error) {
	out := make(map[int64]Quote, len(ids))
	for _, chunk := range Chunk(ids, MaxBatchSize) {
		quotes, err := c.QuoteBatch(ctx, chunk)
		if err != nil {
			return out, err
		}
		for id, q := range quotes {
			out[id] = q
		}
	}
	return out, nil
}

// Chunk splits ids into consecutive slices of at most size elements.
func Chunk(ids []int64, size int) [][]int64 {
	if size <= 0 {
		size = MaxBatchSize
	}
	var chunks [][]int64
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		chunks = append(chunks, ids[start:end])
	}
	return chunks
}
