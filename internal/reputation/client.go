// Package reputation looks up client IPs in the ipapi.is service.
package reputation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"io"
	"log/slog"
	"net/http"
	"net/netip"
	"net/url"
	"strings"
	"time"

	"github.com/jellydator/ttlcache/v2"
	"golang.org/x/sync/singleflight"

	"trialgate/internal/platform/logger"
	"trialgate/internal/platform/metrics"
	"trialgate/internal/trial/models"
	dErrors "trialgate/pkg/domain-errors"
	"trialgate/pkg/platform/privacy"
	pstrings "trialgate/pkg/platform/strings"
)

const maxResponseBytes = 64 << 10

// Client queries ipapi.is with a rotating set of API keys. Results are cached
// per IP and concurrent lookups for the same IP share one request.
type Client struct {
	baseURL string
	keys    []string
	http    *http.Client
	cache   *ttlcache.Cache
	group   singleflight.Group
	metrics *metrics.Metrics
	logger  *slog.Logger
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.http = c }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(cl *Client) { cl.metrics = m }
}

func WithLogger(l *slog.Logger) Option {
	return func(cl *Client) { cl.logger = l }
}

// New builds a client. An empty key list disables lookups: every call then
// fails with ExternalUnavailable and the caller's fail mode applies.
func New(baseURL string, keys []string, timeout, cacheTTL time.Duration, opts ...Option) *Client {
	cache := ttlcache.NewCache()
	if cacheTTL > 0 {
		_ = cache.SetTTL(cacheTTL)
	}
	cache.SkipTTLExtensionOnHit(true)

	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		keys:    pstrings.CleanList(keys, nil),
		http:    &http.Client{Timeout: timeout},
		cache:   cache,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Close stops the cache janitor.
func (c *Client) Close() error {
	return c.cache.Close()
}

type apiResponse struct {
	IP       string `json:"ip"`
	IsVPN    bool   `json:"is_vpn"`
	IsTor    bool   `json:"is_tor"`
	IsProxy  bool   `json:"is_proxy"`
	Error    string `json:"error"`
	Location struct {
		CountryCode string `json:"country_code"`
	} `json:"location"`
}

// Lookup classifies ip. Private, loopback and link-local addresses are not
// sent to the provider.
func (c *Client) Lookup(ctx context.Context, ip string) (*models.IPReputation, error) {
	addr, err := netip.ParseAddr(strings.Trim(strings.TrimSpace(ip), "[]"))
	if err != nil {
		return nil, dErrors.New(dErrors.CodeValidation, "invalid ip address")
	}
	addr = addr.Unmap()
	if addr.IsPrivate() || addr.IsLoopback() || addr.IsLinkLocalUnicast() || addr.IsUnspecified() {
		c.metrics.IncrementReputation("skipped")
		return &models.IPReputation{IP: addr.String(), Skipped: true}, nil
	}
	key := addr.String()

	if v, err := c.cache.Get(key); err == nil {
		c.metrics.IncrementReputation("cache_hit")
		rep := *v.(*models.IPReputation)
		return &rep, nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		return c.fetch(ctx, key)
	})
	if err != nil {
		c.metrics.IncrementReputation("error")
		return nil, err
	}
	rep := v.(*models.IPReputation)
	_ = c.cache.Set(key, rep)
	c.metrics.IncrementReputation("ok")
	out := *rep
	return &out, nil
}

// fetch tries each key once, starting from one picked by a hash of the IP.
func (c *Client) fetch(ctx context.Context, ip string) (*models.IPReputation, error) {
	if len(c.keys) == 0 {
		return nil, dErrors.New(dErrors.CodeExternalUnavailable, "no reputation api keys configured")
	}
	start := keyIndex(ip, len(c.keys))
	var errs []error
	for i := range c.keys {
		k := c.keys[(start+i)%len(c.keys)]
		rep, err := c.query(ctx, ip, k)
		if err == nil {
			return rep, nil
		}
		c.logger.WarnContext(ctx, "reputation lookup failed",
			"ip", privacy.AnonymizeIP(ip),
			"key_index", (start+i)%len(c.keys),
			logger.Err(err),
		)
		errs = append(errs, err)
		if ctx.Err() != nil {
			break
		}
	}
	return nil, dErrors.Wrap(errors.Join(errs...), dErrors.CodeExternalUnavailable, "reputation lookup failed")
}

func (c *Client) query(ctx context.Context, ip, key string) (*models.IPReputation, error) {
	q := url.Values{}
	q.Set("q", ip)
	q.Set("key", key)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call ipapi: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return nil, fmt.Errorf("ipapi returned status %d", resp.StatusCode)
	}
	var body apiResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode ipapi response: %w", err)
	}
	if body.Error != "" {
		return nil, fmt.Errorf("ipapi error: %s", body.Error)
	}
	return &models.IPReputation{
		IP:          ip,
		IsVPN:       body.IsVPN,
		IsTor:       body.IsTor,
		IsProxy:     body.IsProxy,
		CountryCode: strings.ToUpper(body.Location.CountryCode),
	}, nil
}

func keyIndex(ip string, n int) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(ip))
	return int(h.Sum32() % uint32(n))
}
