// ABOUTME: HTTP client for the analytics host API (Looker API 4.0 shape).
// ABOUTME: Logs in with client credentials and fetches dashboard metadata and embed URLs.
package host

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/2389-research/dashmatch/internal/models"
	"github.com/2389-research/dashmatch/internal/remote"
)

const (
	apiPrefix = "/api/4.0"

	// tokenSkew refreshes the session token slightly before the host expires it.
	tokenSkew = 30 * time.Second

	defaultTokenLifetime = time.Hour
)

// Client is an authenticated session against the analytics host.
type Client struct {
	baseURL      string
	clientID     string
	clientSecret string
	client       *http.Client
	now          func() time.Time

	mu     sync.Mutex
	token  string
	expiry time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.client = hc
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.client = &http.Client{Timeout: d}
	}
}

// NewClient creates a host client. baseURL may include a trailing /api/4.0.
func NewClient(baseURL, clientID, clientSecret string, opts ...Option) *Client {
	c := &Client{
		baseURL:      NormalizeURL(baseURL),
		clientID:     clientID,
		clientSecret: clientSecret,
		client:       &http.Client{Timeout: 30 * time.Second},
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NormalizeURL trims trailing slashes and a trailing API version prefix.
func NormalizeURL(raw string) string {
	u := strings.TrimRight(strings.TrimSpace(raw), "/")
	u = strings.TrimSuffix(u, apiPrefix)
	return strings.TrimRight(u, "/")
}

// BaseURL returns the normalized host URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// loginResponse is the body returned by POST /login.
type loginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// Login exchanges the client credentials for an access token.
func (c *Client) Login(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loginLocked(ctx)
}

func (c *Client) loginLocked(ctx context.Context) error {
	form := url.Values{}
	form.Set("client_id", c.clientID)
	form.Set("client_secret", c.clientSecret)

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+apiPrefix+"/login", strings.NewReader(form.Encode()))
	if err != nil {
		return remote.Wrap(remote.ServiceHost, "login", fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var lr loginResponse
	if err := remote.DoJSON(c.client, remote.ServiceHost, "login", req, &lr); err != nil {
		return err
	}
	if lr.AccessToken == "" {
		return remote.Wrap(remote.ServiceHost, "login", fmt.Errorf("response contained no access token"))
	}

	lifetime := time.Duration(lr.ExpiresIn) * time.Second
	if lifetime <= 0 {
		lifetime = defaultTokenLifetime
	}
	c.token = lr.AccessToken
	c.expiry = c.now().Add(lifetime - tokenSkew)
	return nil
}

// accessToken returns a valid token, logging in first when needed.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token == "" || !c.now().Before(c.expiry) {
		if err := c.loginLocked(ctx); err != nil {
			return "", err
		}
	}
	return c.token, nil
}

// get performs an authenticated GET and decodes the JSON body into out.
func (c *Client) get(ctx context.Context, op, path string, query url.Values, out any) error {
	token, err := c.accessToken(ctx)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+apiPrefix+path, nil)
	if err != nil {
		return remote.Wrap(remote.ServiceHost, op, fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Authorization", "token "+token)
	req.Header.Set("Accept", "application/json")
	if len(query) > 0 {
		req.URL.RawQuery = query.Encode()
	}

	return remote.DoJSON(c.client, remote.ServiceHost, op, req, out)
}

// apiDashboard maps a dashboard from the host API.
type apiDashboard struct {
	ID                string       `json:"id"`
	Title             string       `json:"title"`
	Description       string       `json:"description"`
	DashboardElements []apiElement `json:"dashboard_elements"`
}

// apiElement maps a single tile on a dashboard.
type apiElement struct {
	Title        string `json:"title"`
	SubtitleText string `json:"subtitle_text"`
	NoteText     string `json:"note_text"`
}

func (d apiDashboard) toModel() models.Dashboard {
	out := models.Dashboard{
		ID:          d.ID,
		Title:       d.Title,
		Description: d.Description,
	}
	for _, el := range d.DashboardElements {
		if el.Title == "" && el.SubtitleText == "" && el.NoteText == "" {
			continue
		}
		out.Tiles = append(out.Tiles, models.Tile{
			Title:    el.Title,
			Subtitle: el.SubtitleText,
			Note:     el.NoteText,
		})
	}
	return out
}

// ListDashboards returns summaries (id, title, description) of every
// dashboard visible to the session, in host order.
func (c *Client) ListDashboards(ctx context.Context) ([]models.Dashboard, error) {
	q := url.Values{}
	q.Set("fields", "id,title,description")

	var raw []apiDashboard
	if err := c.get(ctx, "list dashboards", "/dashboards", q, &raw); err != nil {
		return nil, err
	}

	dashboards := make([]models.Dashboard, 0, len(raw))
	for _, d := range raw {
		if d.ID == "" {
			continue
		}
		dashboards = append(dashboards, d.toModel())
	}
	return dashboards, nil
}

// Dashboard fetches full metadata, including tile text, for one dashboard.
func (c *Client) Dashboard(ctx context.Context, id string) (*models.Dashboard, error) {
	if id == "" {
		return nil, fmt.Errorf("dashboard id is required")
	}
	q := url.Values{}
	q.Set("fields", "id,title,description,dashboard_elements(title,subtitle_text,note_text)")

	var raw apiDashboard
	if err := c.get(ctx, "get dashboard", "/dashboards/"+url.PathEscape(id), q, &raw); err != nil {
		return nil, err
	}
	if raw.ID == "" {
		raw.ID = id
	}
	d := raw.toModel()
	return &d, nil
}

// EmbedURL returns the URL the host serves for an embedded dashboard viewer.
func (c *Client) EmbedURL(dashboardID string) string {
	return c.baseURL + "/embed/dashboards/" + url.PathEscape(dashboardID)
}
