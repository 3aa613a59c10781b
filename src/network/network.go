package network

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"

	"crypto-tracker/src/helpers"
	"crypto-tracker/src/interfaces"
	"crypto-tracker/src/logger"
	"crypto-tracker/src/models"
)

const maxBodySize = 1 << 20

// blockedError marks 403/429 answers, which rotate the proxy before the next attempt.
type blockedError struct{ status int }

func (e *blockedError) Error() string {
	return fmt.Sprintf("blocked (status %d)", e.status)
}

// -----------------------------------------------------------------------------

type AsyncNetworkManager struct {
	Config       *models.MConfig
	ProxyManager interfaces.IProxyManager
	Logger       *logger.Logger

	mu     sync.RWMutex
	client *http.Client
}

// -----------------------------------------------------------------------------

func NewAsyncNetworkManager(cfg *models.MConfig, log *logger.Logger) *AsyncNetworkManager {
	var proxies []string
	if cfg.Network.Enabled {
		proxies = cfg.Network.Proxies
	}

	nm := &AsyncNetworkManager{
		Config:       cfg,
		ProxyManager: helpers.NewProxyManager(proxies, cfg.Network.UserAgent),
		Logger:       log,
	}
	nm.client = nm.createClient()
	return nm
}

// -----------------------------------------------------------------------------

func (nm *AsyncNetworkManager) createClient() *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()

	if nm.ProxyManager.HasProxies() {
		proxyStr, err := nm.ProxyManager.GetCurrentProxy()
		if err == nil && proxyStr != "" {
			proxyURL, err := url.Parse(proxyStr)
			if err == nil {
				transport.Proxy = http.ProxyURL(proxyURL)
			}
		}
	}

	return &http.Client{
		Transport: transport,
		Timeout:   nm.Config.RequestTimeout(),
	}
}

// -----------------------------------------------------------------------------

func (nm *AsyncNetworkManager) httpClient() *http.Client {
	nm.mu.RLock()
	defer nm.mu.RUnlock()
	return nm.client
}

// -----------------------------------------------------------------------------

func (nm *AsyncNetworkManager) rotateProxy() {
	if !nm.ProxyManager.HasProxies() {
		return
	}

	nm.ProxyManager.RotateProxy()
	client := nm.createClient()

	nm.mu.Lock()
	nm.client = client
	nm.mu.Unlock()
}

// -----------------------------------------------------------------------------

// Get performs a GET request with a fixed number of retries and proxy rotation.
func (nm *AsyncNetworkManager) Get(ctx context.Context, urlStr string, params map[string]string) ([]byte, error) {
	return nm.GetValidated(ctx, urlStr, params, nil)
}

// GetValidated is Get where a body rejected by validate counts as a failed
// attempt and is retried like a transport error.
func (nm *AsyncNetworkManager) GetValidated(ctx context.Context, urlStr string, params map[string]string, validate func([]byte) error) ([]byte, error) {
	reqUrl, err := url.Parse(urlStr)
	if err != nil {
		return nil, err
	}

	if len(params) > 0 {
		q := reqUrl.Query()
		for k, v := range params {
			q.Add(k, v)
		}
		reqUrl.RawQuery = q.Encode()
	}
	finalUrl := reqUrl.String()

	blocked := 0
	body, err := helpers.RetryFixed(ctx, "GET "+finalUrl, nm.Config.Network.MaxRetries, nm.Config.RetryDelay(),
		func(attempt int) ([]byte, error) {
			body, err := nm.doGet(ctx, finalUrl)
			if err != nil || validate == nil {
				return body, err
			}
			if err := validate(body); err != nil {
				return nil, fmt.Errorf("invalid body: %w", err)
			}
			return body, nil
		},
		func(f *helpers.TransientFetchFailure) {
			nm.Logger.Warning("Request failed (attempt %d/%d): %v", f.Attempt, nm.Config.Network.MaxRetries+1, f.Cause)
			if _, ok := f.Cause.(*blockedError); ok {
				blocked++
				nm.rotateProxy()
			}
		},
	)

	// Every attempt was blocked: try a fresh proxy list for the next call
	if err != nil && blocked > nm.Config.Network.MaxRetries && nm.Config.Network.Enabled {
		nm.Logger.Warning("Repeated blocks. Attempting to scrape new proxies...")
		if count, refreshErr := nm.ProxyManager.RefreshProxies(ctx); refreshErr == nil && count > 0 {
			nm.rotateProxy()
		} else {
			nm.Logger.Error("Failed to refresh proxies: %v", refreshErr)
		}
	}

	return body, err
}

// -----------------------------------------------------------------------------

func (nm *AsyncNetworkManager) doGet(ctx context.Context, finalUrl string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, finalUrl, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", nm.ProxyManager.GetUserAgent())
	req.Header.Set("Accept", "application/json")

	resp, err := nm.httpClient().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusForbidden {
		return nil, &blockedError{status: resp.StatusCode}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("bad status: %d", resp.StatusCode)
	}

	return io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
}
