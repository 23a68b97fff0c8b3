// Command crawlerctl registers or updates the hosted crawler that
// re-indexes the live storefront (category and product pages).
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/fakestore/storesearch/internal/config"
	logpkg "github.com/fakestore/storesearch/internal/logger"
)

const requestTimeout = 30 * time.Second

// crawlerAction tells the crawler which records to extract on which paths.
type crawlerAction struct {
	IndexName    string   `json:"indexName"`
	PathsToMatch []string `json:"pathsToMatch"`
	Selectors    struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		Price       string `json:"price,omitempty"`
	} `json:"selectors"`
}

type crawlerSpec struct {
	Name   string `json:"name"`
	Config struct {
		StartURLs         []string        `json:"startUrls"`
		Schedule          string          `json:"schedule"`
		RenderJavaScript  bool            `json:"renderJavaScript"`
		RateLimit         int             `json:"rateLimit"`
		MaxURLs           int             `json:"maxUrls"`
		IgnoreQueryParams []string        `json:"ignoreQueryParams"`
		Actions           []crawlerAction `json:"actions"`
	} `json:"config"`
}

func buildSpec(cfg config.CrawlerConfig, name string) crawlerSpec {
	spec := crawlerSpec{Name: name}
	spec.Config.StartURLs = []string{cfg.SiteURL}
	spec.Config.Schedule = cfg.Schedule
	spec.Config.RenderJavaScript = true
	spec.Config.RateLimit = cfg.RateLimit
	spec.Config.MaxURLs = cfg.MaxURLs
	spec.Config.IgnoreQueryParams = []string{"utm_*", "ref"}

	categories := crawlerAction{
		IndexName:    "fakestore_categories",
		PathsToMatch: []string{cfg.SiteURL + "category/**"},
	}
	categories.Selectors.Name = "h1"
	categories.Selectors.Description = "p.text-gray-600"

	products := crawlerAction{
		IndexName:    "fakestore_products",
		PathsToMatch: []string{cfg.SiteURL + "product/**"},
	}
	products.Selectors.Name = "h1"
	products.Selectors.Description = "div.prose p"
	products.Selectors.Price = "span.text-3xl.font-bold"

	spec.Config.Actions = []crawlerAction{categories, products}
	return spec
}

func main() {
	name := flag.String("name", "fakestore-crawler", "crawler name")
	crawlerID := flag.String("id", "", "existing crawler id (update instead of create)")
	flag.Parse()

	_ = godotenv.Load(".env.local")

	env := config.GetEnv()
	cfg := config.MustLoad(env)

	logger, err := logpkg.New(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	if cfg.Crawler.BaseURL == "" || cfg.Crawler.SiteURL == "" {
		logger.Fatal("crawler.base_url and crawler.site_url must be configured")
	}

	spec := buildSpec(cfg.Crawler, *name)

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	status, body, err := submit(ctx, cfg.Crawler, *crawlerID, spec)
	if err != nil {
		logger.Fatal("Crawler API request failed", zap.Error(err))
	}
	if status >= 300 {
		logger.Fatal("Crawler API rejected the configuration",
			zap.Int("status", status),
			zap.ByteString("body", body),
		)
	}

	logger.Info("Crawler configured",
		zap.String("name", *name),
		zap.Int("status", status),
		zap.ByteString("response", body),
	)
}

// submit creates the crawler, or patches its config when an id is given.
func submit(ctx context.Context, cfg config.CrawlerConfig, crawlerID string, spec crawlerSpec) (int, []byte, error) {
	method := http.MethodPost
	url := cfg.BaseURL + "/api/1/crawlers"
	var payload any = spec
	if crawlerID != "" {
		method = http.MethodPatch
		url = fmt.Sprintf("%s/api/1/crawlers/%s/config", cfg.BaseURL, crawlerID)
		payload = spec.Config
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, fmt.Errorf("marshal crawler spec: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
	if err != nil {
		return 0, nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(cfg.UserID, cfg.APIKey)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, respBody, nil
}
