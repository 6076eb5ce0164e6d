package lib

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"
)

const ttlockDefaultAPIURL = "https://euapi.ttlock.com"

// TTLockClient talks to the lock vendor's REST API. The vendor expects all
// parameters in the query string, including on POST.
type TTLockClient struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	BaseURL      string

	http *http.Client
}

var ttlockClient *TTLockClient

func GetTTLockClient() *TTLockClient {
	if ttlockClient != nil {
		return ttlockClient
	}
	baseURL := os.Getenv("TTLOCK_API_URL")
	if baseURL == "" {
		baseURL = ttlockDefaultAPIURL
	}
	c := &TTLockClient{
		ClientID:     os.Getenv("TTLOCK_CLIENT_ID"),
		ClientSecret: os.Getenv("TTLOCK_CLIENT_SECRET"),
		RedirectURI:  os.Getenv("TTLOCK_REDIRECT_URI"),
		BaseURL:      baseURL,
		http:         &http.Client{Timeout: 30 * time.Second},
	}
	ttlockClient = c
	return c
}

// NewTTLockClient replaces the shared client, used by tests to point at a
// fake vendor server.
func NewTTLockClient(c *TTLockClient) *TTLockClient {
	ttlockClient = c
	return c
}

func NewTTLockClientFor(baseURL string) *TTLockClient {
	return &TTLockClient{
		ClientID:     "test",
		ClientSecret: "test",
		BaseURL:      baseURL,
		http:         &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *TTLockClient) IsConfigured() bool {
	return c != nil && c.ClientID != "" && c.ClientSecret != ""
}

type ttlockEnvelope struct {
	Errcode       int    `json:"errcode"`
	Errmsg        string `json:"errmsg"`
	KeyboardPwdID int64  `json:"keyboardPwdId"`
	LockID        int64  `json:"lockId"`
	LockAlias     string `json:"lockAlias"`
	ElectricQty   int    `json:"electricQuantity"`
	AccessToken   string `json:"access_token"`
	RefreshToken  string `json:"refresh_token"`
	ExpiresIn     int64  `json:"expires_in"`
}

func (c *TTLockClient) call(ctx context.Context, method, path string, params url.Values) (*ttlockEnvelope, error) {
	endpoint := fmt.Sprintf("%s%s?%s", c.BaseURL, path, params.Encode())
	req, err := http.NewRequestWithContext(ctx, method, endpoint, nil)
	if err != nil {
		return nil, err
	}
	res, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	var env ttlockEnvelope
	if err := json.NewDecoder(res.Body).Decode(&env); err != nil {
		return nil, err
	}
	if env.Errcode != 0 {
		return nil, fmt.Errorf("lock vendor error %d: %s", env.Errcode, env.Errmsg)
	}
	return &env, nil
}

type TTLockToken struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64
}

// ExchangeCode trades an OAuth authorization code for a token pair.
func (c *TTLockClient) ExchangeCode(ctx context.Context, code string) (*TTLockToken, error) {
	params := url.Values{}
	params.Set("client_id", c.ClientID)
	params.Set("client_secret", c.ClientSecret)
	params.Set("grant_type", "authorization_code")
	params.Set("code", code)
	params.Set("redirect_uri", c.RedirectURI)
	env, err := c.call(ctx, http.MethodPost, "/oauth2/token", params)
	if err != nil {
		return nil, err
	}
	return &TTLockToken{AccessToken: env.AccessToken, RefreshToken: env.RefreshToken, ExpiresIn: env.ExpiresIn}, nil
}

func (c *TTLockClient) RefreshToken(ctx context.Context, refreshToken string) (*TTLockToken, error) {
	params := url.Values{}
	params.Set("client_id", c.ClientID)
	params.Set("client_secret", c.ClientSecret)
	params.Set("grant_type", "refresh_token")
	params.Set("refresh_token", refreshToken)
	env, err := c.call(ctx, http.MethodPost, "/oauth2/token", params)
	if err != nil {
		return nil, err
	}
	return &TTLockToken{AccessToken: env.AccessToken, RefreshToken: env.RefreshToken, ExpiresIn: env.ExpiresIn}, nil
}

// CreatePasscode registers a time-bounded keyboard passcode on a lock and
// returns the vendor's passcode id.
func (c *TTLockClient) CreatePasscode(ctx context.Context, accessToken string, lockID int64, code string, validFrom, validUntil time.Time, label string) (int64, error) {
	if label == "" {
		label = "Guest Access"
	}
	params := url.Values{}
	params.Set("clientId", c.ClientID)
	params.Set("accessToken", accessToken)
	params.Set("lockId", strconv.FormatInt(lockID, 10))
	params.Set("keyboardPwd", code)
	params.Set("keyboardPwdName", label)
	params.Set("startDate", strconv.FormatInt(validFrom.UnixMilli(), 10))
	params.Set("endDate", strconv.FormatInt(validUntil.UnixMilli(), 10))
	// addType 2 = custom passcode
	params.Set("addType", "2")
	params.Set("date", strconv.FormatInt(time.Now().UnixMilli(), 10))
	env, err := c.call(ctx, http.MethodPost, "/v3/keyboardPwd/add", params)
	if err != nil {
		return 0, err
	}
	return env.KeyboardPwdID, nil
}

// Unlock triggers a remote unlock. Requires the lock to have a gateway.
func (c *TTLockClient) Unlock(ctx context.Context, accessToken string, lockID int64) error {
	params := url.Values{}
	params.Set("clientId", c.ClientID)
	params.Set("accessToken", accessToken)
	params.Set("lockId", strconv.FormatInt(lockID, 10))
	params.Set("date", strconv.FormatInt(time.Now().UnixMilli(), 10))
	_, err := c.call(ctx, http.MethodPost, "/v3/lock/unlock", params)
	return err
}

// BatteryLevel queries the lock's charge percentage.
func (c *TTLockClient) BatteryLevel(ctx context.Context, accessToken string, lockID int64) (int, error) {
	params := url.Values{}
	params.Set("clientId", c.ClientID)
	params.Set("accessToken", accessToken)
	params.Set("lockId", strconv.FormatInt(lockID, 10))
	params.Set("date", strconv.FormatInt(time.Now().UnixMilli(), 10))
	env, err := c.call(ctx, http.MethodGet, "/v3/lock/detail", params)
	if err != nil {
		return 0, err
	}
	return env.ElectricQty, nil
}
