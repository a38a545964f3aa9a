package graphapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"fb_token_checker/internal/config"
	"fb_token_checker/internal/metrics"
	"fb_token_checker/types"

	"go.uber.org/zap"
)

const maxResponseBytes = 1 << 20

type ProfileClient interface {
	GetProfile(ctx context.Context, token string) *types.ProfileInfo
}

// HTTPDoer позволяет подменить транспорт в тестах
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

type LookupObserver interface {
	ObserveLookup(result string, d time.Duration)
}

type client struct {
	baseURL  string
	fields   string
	timeout  time.Duration
	http     HTTPDoer
	observer LookupObserver
	logger   *zap.Logger
}

func NewClient(cfg config.GraphAPIConfig, httpClient HTTPDoer, observer LookupObserver, logger *zap.Logger) ProfileClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	return &client{
		baseURL:  cfg.BaseURL,
		fields:   cfg.Fields,
		timeout:  cfg.Timeout,
		http:     httpClient,
		observer: observer,
		logger:   logger,
	}
}

// GetProfile возвращает профиль владельца токена или nil, если токен недействителен.
// Ошибки не возвращаются: они логируются и учитываются в метриках.
func (c *client) GetProfile(ctx context.Context, token string) *types.ProfileInfo {
	start := time.Now()

	profile, result, err := c.fetch(ctx, token)
	c.observe(result, time.Since(start))

	if err != nil {
		c.logger.Warn("error verifying token",
			zap.Error(err),
			zap.String("result", result),
			zap.String("token", types.DisplayToken(token)))
		return nil
	}

	c.logger.Debug("token verified", zap.String("profile_id", profile.ID))
	return profile
}

func (c *client) fetch(ctx context.Context, token string) (*types.ProfileInfo, string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.requestURL(token), nil)
	if err != nil {
		return nil, metrics.LookupTransportError, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, metrics.LookupTransportError, fmt.Errorf("failed to call profile endpoint: %w", redact(err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, metrics.LookupTransportError, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, metrics.LookupBadStatus, fmt.Errorf("profile endpoint returned status %d", resp.StatusCode)
	}

	profile, err := decodeProfile(body)
	if err != nil {
		return nil, metrics.LookupMalformed, err
	}

	return profile, metrics.LookupValid, nil
}

func (c *client) requestURL(token string) string {
	params := url.Values{}
	params.Set("access_token", token)
	params.Set("fields", c.fields)
	return c.baseURL + "?" + params.Encode()
}

func (c *client) observe(result string, d time.Duration) {
	if c.observer != nil {
		c.observer.ObserveLookup(result, d)
	}
}

// decodeProfile принимает только непустой JSON-объект
func decodeProfile(body []byte) (*types.ProfileInfo, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, fmt.Errorf("failed to decode profile response: %w", err)
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("profile response is empty")
	}

	var profile types.ProfileInfo
	if err := json.Unmarshal(body, &profile); err != nil {
		return nil, fmt.Errorf("failed to decode profile response: %w", err)
	}

	return &profile, nil
}

// url.Error включает полный URL запроса вместе с токеном
func redact(err error) error {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		return fmt.Errorf("%s: %w", uerr.Op, uerr.Err)
	}
	return err
}
