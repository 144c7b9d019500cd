// Package paas implements the PaaS collaborator: list_apps,
// update_instances and get_app_stats against a Cloud Foundry v2-shaped
// API. No Cloud Foundry Go SDK exists in the wider ecosystem the rest of
// this repository draws from, so this is a small context-bound
// net/http client in the style the rest of the codebase uses for HTTP
// collaborators, rather than a generated or vendored client.
package paas

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/OldStager01/paas-autoscaler/internal/resilience"
)

var (
	// ErrAuthFailure is returned when credential exchange with the PaaS
	// fails. Callers (the orchestrator) back off 5 minutes and reset
	// the cached client rather than retrying immediately, to avoid an
	// account lockout from repeated failed logins.
	ErrAuthFailure = errors.New("paas: authentication failed")

	// ErrDeploymentInFlight mirrors the CF-ScaleDisabledDuringDeployment
	// error code: a 422 response while a deployment is already
	// in-flight for the app. The decision engine logs this at info and
	// swallows it; the next tick retries.
	ErrDeploymentInFlight = errors.New("paas: scale disabled, deployment in flight")

	ErrAppNotFound = errors.New("paas: app not found")
)

// AppInfo is one entry of the org/space app inventory returned by
// ListApps: a name, its CF guid, and its current instance count.
type AppInfo struct {
	Name      string `json:"name"`
	GUID      string `json:"guid"`
	Instances int    `json:"instances"`
}

// InstanceStats is the per-instance-index CPU usage fraction returned
// by GetAppStats, keyed by instance index as CF itself does.
type InstanceStats struct {
	CPUFraction float64
}

// Config configures the client: API base URL, credentials, and the
// per-call timeout every collaborator in this system is bound by.
type Config struct {
	APIURL   string
	Username string
	Password string
	Timeout  time.Duration

	HTTPProxy  string
	HTTPSProxy string
}

// Client is a lazily-authenticating, process-cached PaaS client. It is
// safe to construct once at startup and reuse across ticks; on auth or
// transport failure the orchestrator calls Reset so the next tick
// re-authenticates from scratch. Transport failures distinct from auth
// (a slow or unreachable API, independent of credentials) trip an
// internal circuit breaker so a struggling PaaS endpoint isn't hammered
// every tick while it recovers.
type Client struct {
	cfg        Config
	httpClient *http.Client
	token      string
	breaker    *resilience.CircuitBreaker
}

func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		breaker: resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
			Name:        "paas",
			MaxFailures: 5,
			Timeout:     30 * time.Second,
		}),
	}
}

// Reset drops the cached bearer token, forcing re-authentication on the
// next call. Used after an auth failure or any transport error that
// might indicate a stale session.
func (c *Client) Reset() {
	c.token = ""
}

func (c *Client) authenticate(ctx context.Context) error {
	if c.token != "" {
		return nil
	}

	form := url.Values{}
	form.Set("grant_type", "password")
	form.Set("username", c.cfg.Username)
	form.Set("password", c.cfg.Password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.APIURL+"/oauth/token", nil)
	if err != nil {
		return fmt.Errorf("%w: build auth request: %v", ErrAuthFailure, err)
	}
	req.URL.RawQuery = form.Encode()
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAuthFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrAuthFailure, resp.StatusCode)
	}

	var body struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("%w: decode token response: %v", ErrAuthFailure, err)
	}
	if body.AccessToken == "" {
		return fmt.Errorf("%w: empty access token", ErrAuthFailure)
	}

	c.token = body.AccessToken
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	if err := c.authenticate(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.APIURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("paas: build request: %w", err)
	}
	req.Header.Set("Authorization", "bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	var resp *http.Response
	err = c.breaker.Execute(func() error {
		var doErr error
		resp, doErr = c.httpClient.Do(req)
		return doErr
	})
	if errors.Is(err, resilience.ErrCircuitOpen) {
		return nil, fmt.Errorf("paas: circuit open, backing off: %w", err)
	}
	return resp, err
}

type cfOrg struct {
	Metadata struct {
		GUID string `json:"guid"`
	} `json:"metadata"`
	Entity struct {
		Name string `json:"name"`
	} `json:"entity"`
}

type cfSpace struct {
	Metadata struct {
		GUID string `json:"guid"`
	} `json:"metadata"`
	Entity struct {
		Name string `json:"name"`
	} `json:"entity"`
}

type cfApp struct {
	Metadata struct {
		GUID string `json:"guid"`
	} `json:"metadata"`
	Entity struct {
		Name      string `json:"name"`
		Instances int    `json:"instances"`
	} `json:"entity"`
}

type cfListResponse[T any] struct {
	Resources []T `json:"resources"`
}

// ListApps fetches the org/space snapshot: name -> {guid, instances}
// for every app in the configured organization and space. On auth
// failure it returns ErrAuthFailure so the orchestrator can apply the
// 5-minute backoff policy; any other failure is wrapped and returned,
// also treated by the caller as "this tick's snapshot is empty".
func (c *Client) ListApps(ctx context.Context, org, space string) (map[string]AppInfo, error) {
	orgGUID, err := c.findOrgGUID(ctx, org)
	if err != nil {
		return nil, err
	}
	spaceGUID, err := c.findSpaceGUID(ctx, orgGUID, space)
	if err != nil {
		return nil, err
	}

	resp, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/v2/spaces/%s/apps", spaceGUID), nil)
	if err != nil {
		return nil, fmt.Errorf("paas: list apps: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("paas: list apps: unexpected status %d", resp.StatusCode)
	}

	var parsed cfListResponse[cfApp]
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("paas: decode app list: %w", err)
	}

	out := make(map[string]AppInfo, len(parsed.Resources))
	for _, a := range parsed.Resources {
		out[a.Entity.Name] = AppInfo{
			Name:      a.Entity.Name,
			GUID:      a.Metadata.GUID,
			Instances: a.Entity.Instances,
		}
	}
	return out, nil
}

func (c *Client) findOrgGUID(ctx context.Context, org string) (string, error) {
	resp, err := c.do(ctx, http.MethodGet, "/v2/organizations?q=name:"+url.QueryEscape(org), nil)
	if err != nil {
		return "", fmt.Errorf("paas: find org: %w", err)
	}
	defer resp.Body.Close()

	var parsed cfListResponse[cfOrg]
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("paas: decode org list: %w", err)
	}
	if len(parsed.Resources) == 0 {
		return "", fmt.Errorf("paas: organization %q not found", org)
	}
	return parsed.Resources[0].Metadata.GUID, nil
}

func (c *Client) findSpaceGUID(ctx context.Context, orgGUID, space string) (string, error) {
	resp, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/v2/organizations/%s/spaces?q=name:%s", orgGUID, url.QueryEscape(space)), nil)
	if err != nil {
		return "", fmt.Errorf("paas: find space: %w", err)
	}
	defer resp.Body.Close()

	var parsed cfListResponse[cfSpace]
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("paas: decode space list: %w", err)
	}
	if len(parsed.Resources) == 0 {
		return "", fmt.Errorf("paas: space %q not found", space)
	}
	return parsed.Resources[0].Metadata.GUID, nil
}

// UpdateInstances issues the scale RPC against one app's guid.
func (c *Client) UpdateInstances(ctx context.Context, guid string, instances int) error {
	payload, err := json.Marshal(map[string]int{"instances": instances})
	if err != nil {
		return fmt.Errorf("paas: encode scale payload: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPut, "/v2/apps/"+guid, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("paas: update instances: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
		return nil
	case http.StatusUnprocessableEntity:
		body, _ := io.ReadAll(resp.Body)
		if containsScaleDisabled(body) {
			return ErrDeploymentInFlight
		}
		return fmt.Errorf("paas: update instances: status 422: %s", string(body))
	case http.StatusNotFound:
		return ErrAppNotFound
	default:
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("paas: update instances: status %d: %s", resp.StatusCode, string(body))
	}
}

func containsScaleDisabled(body []byte) bool {
	var parsed struct {
		ErrorCode string `json:"error_code"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return false
	}
	return parsed.ErrorCode == "CF-ScaleDisabledDuringDeployment"
}

// GetAppStats returns the per-instance CPU usage fraction for the app
// with the given guid, matching get_app_stats's {index -> {stats:{usage:{cpu}}}} shape.
func (c *Client) GetAppStats(ctx context.Context, guid string) (map[string]InstanceStats, error) {
	resp, err := c.do(ctx, http.MethodGet, "/v2/apps/"+guid+"/stats", nil)
	if err != nil {
		return nil, fmt.Errorf("paas: get app stats: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("paas: get app stats: unexpected status %d", resp.StatusCode)
	}

	var raw map[string]struct {
		Stats struct {
			Usage struct {
				CPU float64 `json:"cpu"`
			} `json:"usage"`
		} `json:"stats"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("paas: decode app stats: %w", err)
	}

	out := make(map[string]InstanceStats, len(raw))
	for idx, v := range raw {
		out[idx] = InstanceStats{CPUFraction: v.Stats.Usage.CPU}
	}
	return out, nil
}

