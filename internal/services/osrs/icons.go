package osrs

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"ge-tracker/internal/config"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// IconFetcher downloads one PNG per item into a directory.
type IconFetcher struct {
	http        *resty.Client
	baseURL     string
	dir         string
	concurrency int
	log         *zap.Logger
}

func NewIconFetcher(cfg config.UpstreamConfig, dir string, concurrency int, log *zap.Logger) *IconFetcher {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &IconFetcher{
		http:        newHTTP(cfg),
		baseURL:     strings.TrimRight(cfg.IconURL, "/"),
		dir:         dir,
		concurrency: concurrency,
		log:         log.Named("icons"),
	}
}

// Path is where the icon of id is stored.
func (f *IconFetcher) Path(id int64) string {
	return filepath.Join(f.dir, fmt.Sprintf("%d.png", id))
}

// Fetch downloads the icons that are not on disk yet and returns how many
// were written. Items the source has no icon for are skipped.
func (f *IconFetcher) Fetch(ctx context.Context, ids []int64) (int, error) {
	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		return 0, fmt.Errorf("create icon dir: %w", err)
	}

	var written atomic.Int64
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(f.concurrency)
	for _, id := range ids {
		if _, err := os.Stat(f.Path(id)); err == nil {
			continue
		}
		g.Go(func() error {
			ok, err := f.fetchOne(ctx, id)
			if ok {
				written.Add(1)
			}
			return err
		})
	}
	err := g.Wait()
	return int(written.Load()), err
}

func (f *IconFetcher) fetchOne(ctx context.Context, id int64) (bool, error) {
	url := fmt.Sprintf("%s/%d.png", f.baseURL, id)
	resp, err := f.http.R().SetContext(ctx).Get(url)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	switch resp.StatusCode() {
	case http.StatusOK:
	case http.StatusNotFound:
		f.log.Debug("no icon", zap.Int64("item_id", id))
		return false, nil
	default:
		return false, &UpstreamError{URL: url, StatusCode: resp.StatusCode()}
	}

	tmp, err := os.CreateTemp(f.dir, fmt.Sprintf(".%d-*.png", id))
	if err != nil {
		return false, err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(resp.Body()); err != nil {
		tmp.Close()
		return false, err
	}
	if err := tmp.Close(); err != nil {
		return false, err
	}
	if err := os.Rename(tmp.Name(), f.Path(id)); err != nil {
		return false, err
	}
	return true, nil
}
