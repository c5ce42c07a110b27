package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/nikolayk812/repairshop-cart/internal/domain"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	DefaultBaseURL = "https://gowtham1.pythonanywhere.com/api"
	DefaultTimeout = 10 * time.Second
)

type Config struct {
	BaseURL string
	Timeout time.Duration

	// consecutive failures before the breaker opens, and how long it stays open
	BreakerFailures uint32
	BreakerTimeout  time.Duration
}

// Client talks to the shop's REST API. Admin calls carry the bearer token
// obtained by Login.
type Client struct {
	baseURL string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[[]byte]
	logger  *slog.Logger

	mu    sync.RWMutex
	token string
}

func New(cfg Config, logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.BreakerFailures == 0 {
		cfg.BreakerFailures = 5
	}
	if cfg.BreakerTimeout <= 0 {
		cfg.BreakerTimeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	breaker := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:    "shop-api",
		Timeout: cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerFailures
		},
		IsSuccessful: func(err error) bool {
			// 4xx answers do not trip the breaker
			var se *StatusError
			if errors.As(err, &se) {
				return se.Code < http.StatusInternalServerError
			}
			return err == nil || errors.Is(err, ErrUnauthorized)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				slog.String("name", name), slog.String("from", from.String()), slog.String("to", to.String()))
		},
	})

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		breaker: breaker,
		logger:  logger,
	}
}

func (c *Client) ListParts(ctx context.Context) ([]domain.CatalogItem, error) {
	var items []domain.CatalogItem
	if err := c.getJSON(ctx, "/spare-parts", false, &items); err != nil {
		return nil, fmt.Errorf("c.getJSON: %w", err)
	}
	return items, nil
}

func (c *Client) ListServices(ctx context.Context) ([]domain.CatalogItem, error) {
	var items []domain.CatalogItem
	if err := c.getJSON(ctx, "/services", false, &items); err != nil {
		return nil, fmt.Errorf("c.getJSON: %w", err)
	}
	return items, nil
}

func (c *Client) SubmitContact(ctx context.Context, req ContactRequest) (Result, error) {
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Email) == "" {
		return Result{}, fmt.Errorf("name and email are required: %w", ErrInvalidInput)
	}

	return c.submit(ctx, http.MethodPost, "/contact", false, req)
}

func (c *Client) SubmitFeedback(ctx context.Context, fb Feedback) (Result, error) {
	if fb.Rating < 1 || fb.Rating > 5 {
		return Result{}, fmt.Errorf("rating[%d] must be between 1 and 5: %w", fb.Rating, ErrInvalidInput)
	}

	return c.submit(ctx, http.MethodPost, "/feedback", false, fb)
}

// ListFeedback returns the approved feedback shown on the public site.
func (c *Client) ListFeedback(ctx context.Context) ([]Feedback, error) {
	var list []Feedback
	if err := c.getJSON(ctx, "/feedback", false, &list); err != nil {
		return nil, fmt.Errorf("c.getJSON: %w", err)
	}
	return list, nil
}

func (c *Client) Login(ctx context.Context, username, password string) error {
	res, err := c.submit(ctx, http.MethodPost, "/admin/login", false, map[string]string{
		"username": username,
		"password": password,
	})
	if err != nil {
		return fmt.Errorf("c.submit: %w", err)
	}
	if res.Token == "" {
		return fmt.Errorf("login: %w", ErrRejected)
	}

	c.mu.Lock()
	c.token = res.Token
	c.mu.Unlock()

	return nil
}

func (c *Client) Logout() {
	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()
}

func (c *Client) Authenticated() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.token != ""
}

func (c *Client) getJSON(ctx context.Context, path string, auth bool, out any) error {
	body, err := c.do(ctx, http.MethodGet, path, auth, nil)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("json.Unmarshal: %w", err)
	}
	return nil
}

func (c *Client) submit(ctx context.Context, method, path string, auth bool, payload any) (Result, error) {
	body, err := c.do(ctx, method, path, auth, payload)
	if err != nil {
		return Result{}, err
	}

	var res Result
	if err := json.Unmarshal(body, &res); err != nil {
		return Result{}, fmt.Errorf("json.Unmarshal: %w", err)
	}
	if !res.Success {
		return res, fmt.Errorf("%s %s: %q: %w", method, path, res.Message, ErrRejected)
	}

	return res, nil
}

func (c *Client) do(ctx context.Context, method, path string, auth bool, payload any) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("json.Marshal: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("http.NewRequestWithContext: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	if auth {
		c.mu.RLock()
		token := c.token
		c.mu.RUnlock()

		if token == "" {
			return nil, fmt.Errorf("%s %s: no token: %w", method, path, ErrUnauthorized)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	body, err := c.breaker.Execute(func() ([]byte, error) {
		resp, err := c.http.Do(req)
		if err != nil {
			return nil, fmt.Errorf("http.Do: %w", err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("io.ReadAll: %w", err)
		}

		switch {
		case resp.StatusCode == http.StatusUnauthorized:
			return nil, fmt.Errorf("%s %s: %w", method, path, ErrUnauthorized)
		case resp.StatusCode < 200 || resp.StatusCode > 299:
			return nil, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
		}

		return body, nil
	})
	if errors.Is(err, ErrUnauthorized) && auth {
		c.logger.WarnContext(ctx, "shop api rejected token, dropping it", slog.String("path", path))
		c.Logout()
	}
	if err != nil {
		return nil, err
	}

	return body, nil
}

func resourcePath(res Resource, id domain.ItemID) string {
	path := "/admin/" + string(res)
	if id != "" {
		path += "/" + url.PathEscape(id.String())
	}
	return path
}
