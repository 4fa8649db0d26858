package pypi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"reqsift/internal/shared/observability"
	"reqsift/internal/shared/util"

	"github.com/charmbracelet/log"
	lru "github.com/hashicorp/golang-lru/v2"
)

// Options configures a Client. Zero fields fall back to the public index
// with conservative limits.
type Options struct {
	BaseURL    string
	SimpleURL  string
	Timeout    time.Duration
	RatePerSec float64
	Burst      int
	CacheSize  int
}

// Client answers existence and search queries against a PyPI-compatible
// index. One client lives for one run: the existence memo and the project
// list are never invalidated.
type Client struct {
	baseURL   string
	simpleURL string
	http      *http.Client
	limiter   *util.Limiter
	cache     *lru.Cache[string, bool]
	log       *log.Logger

	mu       sync.Mutex
	projects []string
	fetched  bool
}

func NewClient(opts Options, logger *log.Logger) (*Client, error) {
	if opts.BaseURL == "" {
		opts.BaseURL = "https://pypi.org"
	}
	if opts.SimpleURL == "" {
		opts.SimpleURL = "https://pypi.org/simple/"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.RatePerSec <= 0 {
		opts.RatePerSec = 10
	}
	if opts.Burst <= 0 {
		opts.Burst = 5
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = 512
	}

	cache, err := lru.New[string, bool](opts.CacheSize)
	if err != nil {
		return nil, err
	}

	return &Client{
		baseURL:   strings.TrimSuffix(opts.BaseURL, "/"),
		simpleURL: opts.SimpleURL,
		http:      &http.Client{Timeout: opts.Timeout},
		limiter:   util.NewLimiter(opts.RatePerSec, opts.Burst),
		cache:     cache,
		log:       logger,
	}, nil
}

// Exists reports whether pkg is published on the index. Results are
// memoized, so repeated probes for the same name cost one request.
func (c *Client) Exists(ctx context.Context, pkg string) (bool, error) {
	if found, ok := c.cache.Get(pkg); ok {
		observability.IndexCacheHitsTotal.Inc()
		return found, nil
	}

	if err := c.limiter.Wait(ctx, 1); err != nil {
		return false, err
	}
	observability.IndexRequestsTotal.WithLabelValues("exists").Inc()

	endpoint := fmt.Sprintf("%s/pypi/%s/json", c.baseURL, url.PathEscape(pkg))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		c.cache.Add(pkg, true)
		return true, nil
	case http.StatusNotFound:
		c.cache.Add(pkg, false)
		return false, nil
	default:
		return false, fmt.Errorf("package index returned %s for %s", resp.Status, pkg)
	}
}

// Search returns every project whose name contains all terms of the query.
// Underscores in the query split it into separate terms, matching how
// distribution names relate to module names.
func (c *Client) Search(ctx context.Context, query string) ([]string, error) {
	projects, err := c.allProjects(ctx)
	if err != nil {
		return nil, err
	}

	terms := strings.Fields(strings.ToLower(strings.ReplaceAll(query, "_", " ")))

	var matches []string
	for _, name := range projects {
		lower := strings.ToLower(name)
		found := true
		for _, term := range terms {
			if !strings.Contains(lower, term) {
				found = false
				break
			}
		}
		if found {
			matches = append(matches, name)
		}
	}
	return matches, nil
}

type simpleIndex struct {
	Projects []struct {
		Name string `json:"name"`
	} `json:"projects"`
}

// allProjects downloads the PEP 691 project list on first use and serves
// every later search from memory.
func (c *Client) allProjects(ctx context.Context) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fetched {
		return c.projects, nil
	}

	if err := c.limiter.Wait(ctx, 1); err != nil {
		return nil, err
	}
	observability.IndexRequestsTotal.WithLabelValues("search").Inc()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.simpleURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.pypi.simple.v1+json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("package index returned %s for the project list", resp.Status)
	}

	var index simpleIndex
	if err := json.NewDecoder(resp.Body).Decode(&index); err != nil {
		return nil, fmt.Errorf("decode project list: %w", err)
	}

	c.projects = make([]string, 0, len(index.Projects))
	for _, p := range index.Projects {
		c.projects = append(c.projects, p.Name)
	}
	c.fetched = true
	c.log.Debug("fetched project list", "count", len(c.projects))

	return c.projects, nil
}
