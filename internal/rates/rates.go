// Package rates exposes currency conversion rates for pricing crypto and
// bank transfer payments.
package rates

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/D-Honoured1/Kamisoft-sub002/internal/config"
	"github.com/D-Honoured1/Kamisoft-sub002/pkg/cache"
)

var (
	ErrRateUnavailable = errors.New("rate_unavailable")
	ErrFeedDisabled    = errors.New("rate_feed_disabled")
)

// Fetcher retrieves the conversion rates for one base currency.
type Fetcher interface {
	Fetch(ctx context.Context, base string) (map[string]float64, error)
}

// Service answers rate lookups through a TTL cache in front of the feed.
type Service interface {
	Rate(ctx context.Context, base, quote string) (float64, error)
}

type httpFetcher struct {
	url    string
	client *http.Client
}

// NewHTTPFetcher talks to a JSON feed shaped {"base":"USD","rates":{...}}.
func NewHTTPFetcher(url string) Fetcher {
	return &httpFetcher{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (f *httpFetcher) Fetch(ctx context.Context, base string) (map[string]float64, error) {
	if f.url == "" {
		return nil, ErrFeedDisabled
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url+"?base="+base, nil)
	if err != nil {
		return nil, err
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rate feed returned %d", resp.StatusCode)
	}

	var body struct {
		Base  string             `json:"base"`
		Rates map[string]float64 `json:"rates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, err
	}
	return body.Rates, nil
}

type Params struct {
	fx.In

	Config  config.Config
	Log     *zap.Logger
	Fetcher Fetcher
}

type service struct {
	log     *zap.Logger
	fetcher Fetcher
	cache   cache.Cache[string, map[string]float64]
	ttl     time.Duration
}

func NewService(p Params) Service {
	return &service{
		log:     p.Log.Named("rates.service"),
		fetcher: p.Fetcher,
		cache:   cache.NewTTLCache[string, map[string]float64](),
		ttl:     p.Config.RateTTL,
	}
}

func (s *service) Rate(ctx context.Context, base, quote string) (float64, error) {
	base = strings.ToUpper(strings.TrimSpace(base))
	quote = strings.ToUpper(strings.TrimSpace(quote))
	if base == quote {
		return 1, nil
	}

	table, ok := s.cache.Get(base)
	if !ok {
		fetched, err := s.fetcher.Fetch(ctx, base)
		if err != nil {
			s.log.Warn("rate feed fetch failed", zap.String("base", base), zap.Error(err))
			return 0, err
		}
		s.cache.Set(base, fetched, s.ttl)
		table = fetched
	}

	rate, ok := table[quote]
	if !ok || rate <= 0 {
		return 0, fmt.Errorf("%w: %s/%s", ErrRateUnavailable, base, quote)
	}
	return rate, nil
}

var Module = fx.Module("rates",
	fx.Provide(
		func(cfg config.Config) Fetcher { return NewHTTPFetcher(cfg.RateFeedURL) },
		NewService,
	),
)
