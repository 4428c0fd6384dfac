package places

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"github.com/campuslink/campuslink-server/internal/directory"
	"github.com/campuslink/campuslink-server/internal/httpclient"
)

// DefaultEndpoint is the Places web service base URL
const DefaultEndpoint = "https://maps.googleapis.com/maps/api/place"

// Client implements StatusSource and PlaceFinder against the Places web service
type Client struct {
	http     httpclient.Client
	endpoint string
	apiKey   string
}

var (
	_ StatusSource = (*Client)(nil)
	_ PlaceFinder  = (*Client)(nil)
)

// Option configures a Client
type Option func(*Client) error

// WithEndpoint overrides the Places base URL
func WithEndpoint(endpoint string) Option {
	return func(c *Client) error {
		u, err := url.Parse(endpoint)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("invalid places endpoint %q", endpoint)
		}
		c.endpoint = strings.TrimRight(endpoint, "/")
		return nil
	}
}

// WithHTTPClient sets the HTTP client used for requests
func WithHTTPClient(client httpclient.Client) Option {
	return func(c *Client) error {
		if client == nil {
			return fmt.Errorf("http client cannot be nil")
		}
		c.http = client
		return nil
	}
}

// NewClient creates a Places client for the given API key
func NewClient(apiKey string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("places API key is required")
	}
	c := &Client{
		endpoint: DefaultEndpoint,
		apiKey:   apiKey,
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	if c.http == nil {
		c.http = httpclient.NewDefaultClient(0)
	}
	return c, nil
}

type detailsResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Result       struct {
		OpeningHours *struct {
			OpenNow *bool `json:"open_now"`
		} `json:"opening_hours"`
	} `json:"result"`
}

// FetchOpenStatus asks Places details for result.opening_hours.open_now
func (c *Client) FetchOpenStatus(ctx context.Context, ref string) (bool, error) {
	if strings.TrimSpace(ref) == "" {
		return false, fmt.Errorf("place reference is required")
	}

	q := url.Values{}
	q.Set("place_id", ref)
	q.Set("fields", "opening_hours")
	q.Set("key", c.apiKey)

	body, err := c.http.Get(ctx, c.endpoint+"/details/json?"+q.Encode())
	if err != nil {
		return false, fmt.Errorf("places details for %s: %w", ref, err)
	}

	var resp detailsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return false, fmt.Errorf("places details for %s: malformed response: %w", ref, err)
	}

	switch resp.Status {
	case StatusOK:
	case StatusZeroResults, StatusNotFound:
		return false, fmt.Errorf("%w: place %s: %s", ErrStatusUnknown, ref, resp.Status)
	default:
		return false, &APIError{Operation: "details", Status: resp.Status, Message: resp.ErrorMessage}
	}

	if resp.Result.OpeningHours == nil || resp.Result.OpeningHours.OpenNow == nil {
		return false, fmt.Errorf("%w: place %s has no open_now", ErrStatusUnknown, ref)
	}
	return *resp.Result.OpeningHours.OpenNow, nil
}

type findPlaceResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Candidates   []struct {
		PlaceID          string `json:"place_id"`
		FormattedAddress string `json:"formatted_address"`
		Geometry         *struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
	} `json:"candidates"`
}

// FindPlace runs a text search biased to a circle around near
func (c *Client) FindPlace(
	ctx context.Context,
	query string,
	near directory.Location,
	radiusMeters int,
) (*Candidate, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("query is required")
	}
	if radiusMeters <= 0 {
		return nil, fmt.Errorf("radius must be positive, got %d", radiusMeters)
	}

	q := url.Values{}
	q.Set("input", query)
	q.Set("inputtype", "textquery")
	q.Set("locationbias", "circle:"+strconv.Itoa(radiusMeters)+"@"+
		strconv.FormatFloat(near.Lat, 'f', -1, 64)+","+strconv.FormatFloat(near.Lng, 'f', -1, 64))
	q.Set("fields", "place_id,formatted_address,geometry")
	q.Set("key", c.apiKey)

	body, err := c.http.Get(ctx, c.endpoint+"/findplacefromtext/json?"+q.Encode())
	if err != nil {
		return nil, fmt.Errorf("places find %q: %w", query, err)
	}

	var resp findPlaceResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("places find %q: malformed response: %w", query, err)
	}

	switch resp.Status {
	case StatusOK:
	case StatusZeroResults, StatusNotFound:
		return nil, fmt.Errorf("%w: %q", ErrNoCandidate, query)
	default:
		return nil, &APIError{Operation: "findplacefromtext", Status: resp.Status, Message: resp.ErrorMessage}
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].PlaceID == "" {
		return nil, fmt.Errorf("%w: %q", ErrNoCandidate, query)
	}
	if len(resp.Candidates) > 1 {
		slog.DebugContext(ctx, "Multiple place candidates, using the first",
			"query", query, "candidates", len(resp.Candidates))
	}

	first := resp.Candidates[0]
	candidate := &Candidate{
		PlaceID: first.PlaceID,
		Address: first.FormattedAddress,
	}
	if first.Geometry != nil {
		candidate.Location = &directory.Location{Lat: first.Geometry.Location.Lat, Lng: first.Geometry.Location.Lng}
	}
	return candidate, nil
}
