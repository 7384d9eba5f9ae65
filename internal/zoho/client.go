package zoho

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"realty-backend/internal/metrics"
)

const (
	defaultAccountsURL = "https://accounts.zoho.in"
	defaultAPIURL      = "https://www.zohoapis.in"
	maxTokenRefreshes  = 3
)

var (
	ErrNotConfigured = errors.New("zoho: client not configured")
	ErrUnauthorized  = errors.New("zoho: unauthorized")
	ErrTokenRefresh  = errors.New("zoho: token refresh failed")
)

type Config struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
	AccountsURL  string
	APIURL       string
}

// Lead is the subset of the Zoho Leads module the site fills in.
type Lead struct {
	FirstName   string `json:"First_Name,omitempty"`
	LastName    string `json:"Last_Name"`
	Email       string `json:"Email,omitempty"`
	Phone       string `json:"Phone,omitempty"`
	City        string `json:"City,omitempty"`
	LeadSource  string `json:"Lead_Source,omitempty"`
	Description string `json:"Description,omitempty"`
}

type Client struct {
	cfg        Config
	oauth      *oauth2.Config
	httpClient *http.Client
	tokenHTTP  *http.Client
	log        *slog.Logger

	mu     sync.Mutex
	tokens oauth2.TokenSource
}

// NewClient returns nil when credentials are missing; a nil *Client reports ErrNotConfigured.
func NewClient(cfg Config, log *slog.Logger) *Client {
	if strings.TrimSpace(cfg.ClientID) == "" || strings.TrimSpace(cfg.ClientSecret) == "" || strings.TrimSpace(cfg.RefreshToken) == "" {
		return nil
	}
	if cfg.AccountsURL == "" {
		cfg.AccountsURL = defaultAccountsURL
	}
	if cfg.APIURL == "" {
		cfg.APIURL = defaultAPIURL
	}
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		cfg: cfg,
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint: oauth2.Endpoint{
				TokenURL:  strings.TrimRight(cfg.AccountsURL, "/") + "/oauth/v2/token",
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		httpClient: &http.Client{Timeout: 10 * time.Second},
		tokenHTTP: &http.Client{
			Timeout:   10 * time.Second,
			Transport: &metrics.Transport{Service: "zoho", Endpoint: "token"},
		},
		log: log,
	}
}

type leadRequest struct {
	Data    []Lead   `json:"data"`
	Trigger []string `json:"trigger,omitempty"`
}

type leadResponse struct {
	Data []struct {
		Code    string `json:"code"`
		Status  string `json:"status"`
		Message string `json:"message"`
		Details struct {
			ID string `json:"id"`
		} `json:"details"`
	} `json:"data"`
}

// CreateLead inserts a lead and returns its Zoho id. A 401 triggers a token
// refresh and a retry; at most three refreshes happen per call, after which the
// last token is tried once more before giving up.
func (c *Client) CreateLead(ctx context.Context, lead Lead) (string, error) {
	if c == nil {
		return "", ErrNotConfigured
	}
	if strings.TrimSpace(lead.LastName) == "" {
		return "", errors.New("zoho: lead last name is required")
	}

	refreshes := 0
	token, fetched, err := c.currentToken(ctx)
	if fetched {
		refreshes++
	}
	if err != nil {
		c.log.Warn("zoho token: initial fetch failed", slog.String("error", err.Error()))
	}

	staleRetried := false
	for {
		id, err := c.postLead(ctx, token, lead)
		if err == nil {
			return id, nil
		}
		if !errors.Is(err, ErrUnauthorized) {
			return "", err
		}
		if refreshes >= maxTokenRefreshes {
			if staleRetried {
				return "", err
			}
			staleRetried = true
			continue
		}
		refreshes++
		fresh, rerr := c.refresh(ctx)
		if rerr != nil {
			c.log.Warn("zoho token: refresh failed", slog.Int("attempt", refreshes), slog.String("error", rerr.Error()))
			continue
		}
		token = fresh
	}
}

// currentToken returns the cached access token, renewed by the token source when
// it nears expiry. fetched reports that a fresh exchange was forced.
func (c *Client) currentToken(ctx context.Context) (string, bool, error) {
	c.mu.Lock()
	src := c.tokens
	c.mu.Unlock()
	if src != nil {
		if tok, err := src.Token(); err == nil {
			return tok.AccessToken, false, nil
		}
	}
	fresh, err := c.refresh(ctx)
	return fresh, true, err
}

// refresh always exchanges the refresh token for a new access token and caches it.
func (c *Client) refresh(ctx context.Context) (string, error) {
	seed := &oauth2.Token{RefreshToken: c.cfg.RefreshToken}
	tok, err := c.oauth.TokenSource(c.tokenContext(ctx), seed).Token()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTokenRefresh, err)
	}
	if tok.RefreshToken == "" {
		tok.RefreshToken = c.cfg.RefreshToken
	}
	// expiring tokens are renewed a minute early
	next := oauth2.ReuseTokenSourceWithExpiry(tok, c.oauth.TokenSource(c.tokenContext(context.Background()), tok), time.Minute)
	c.mu.Lock()
	c.tokens = next
	c.mu.Unlock()
	return tok.AccessToken, nil
}

func (c *Client) tokenContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, c.tokenHTTP)
}

func (c *Client) postLead(ctx context.Context, token string, lead Lead) (string, error) {
	payload, err := json.Marshal(leadRequest{Data: []Lead{lead}, Trigger: []string{"workflow"}})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(c.cfg.APIURL, "/")+"/crm/v2/Leads", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Zoho-oauthtoken "+token)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.ObserveExternal("zoho", "leads", 0, time.Since(start))
		return "", err
	}
	defer resp.Body.Close()
	metrics.ObserveExternal("zoho", "leads", resp.StatusCode, time.Since(start))

	if resp.StatusCode == http.StatusUnauthorized {
		io.Copy(io.Discard, resp.Body)
		return "", ErrUnauthorized
	}

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("zoho: status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var parsed leadResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("zoho: decode response: %w", err)
	}
	if len(parsed.Data) == 0 {
		return "", errors.New("zoho: empty response")
	}
	item := parsed.Data[0]
	switch item.Code {
	case "SUCCESS", "DUPLICATE_DATA":
		return item.Details.ID, nil
	case "INVALID_TOKEN", "AUTHENTICATION_FAILURE":
		return "", ErrUnauthorized
	}
	return "", fmt.Errorf("zoho: %s: %s", item.Code, item.Message)
}
