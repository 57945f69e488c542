// Package hibp implements the BreachClient port against the Have I Been
// Pwned services: the free Pwned Passwords range endpoint and the keyed
// breached-account endpoint.
package hibp

import (
	"bufio"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gregjones/httpcache"

	"github.com/securevault/securevault/internal/domain/port/driven"
)

const (
	defaultPwnedBaseURL = "https://api.pwnedpasswords.com"
	defaultHIBPBaseURL  = "https://haveibeenpwned.com/api/v3"

	userAgent      = "securevault"
	requestTimeout = 15 * time.Second

	hashPrefixLen = 5
)

// Compile-time interface satisfaction check.
var _ driven.BreachClient = (*Client)(nil)

// Client implements the driven.BreachClient port over plain HTTPS. The
// password range endpoint sits behind an in-memory caching transport; range
// responses are served with cache-friendly headers by the provider, so
// repeated sweeps of an unchanged vault hit the local cache instead of the
// network.
type Client struct {
	httpClient   *http.Client
	pwnedBaseURL string
	hibpBaseURL  string
	apiKey       string
}

// NewClient creates a breach-intelligence client for the production
// endpoints. apiKey may be empty; the password check never needs it, and
// CheckEmail reports ErrAPIKeyNotSet when called without one.
func NewClient(apiKey string) *Client {
	return &Client{
		httpClient: &http.Client{
			Transport: httpcache.NewMemoryCacheTransport(),
			Timeout:   requestTimeout,
		},
		pwnedBaseURL: defaultPwnedBaseURL,
		hibpBaseURL:  defaultHIBPBaseURL,
		apiKey:       apiKey,
	}
}

// NewClientWithHTTPClient creates a Client with a custom http.Client and base
// URLs. This constructor is intended for testing, allowing injection of an
// httptest server.
func NewClientWithHTTPClient(httpClient *http.Client, pwnedBaseURL, hibpBaseURL, apiKey string) *Client {
	return &Client{
		httpClient:   httpClient,
		pwnedBaseURL: strings.TrimSuffix(pwnedBaseURL, "/"),
		hibpBaseURL:  strings.TrimSuffix(hibpBaseURL, "/"),
		apiKey:       apiKey,
	}
}

// CheckPassword checks a plaintext password against the Pwned Passwords
// corpus using k-anonymity. The password is SHA-1 hashed locally and only
// the first 5 hex characters of the hash are sent; the service returns every
// suffix sharing that prefix and the match is confirmed locally.
func (c *Client) CheckPassword(ctx context.Context, password string) (driven.PasswordBreach, error) {
	sum := sha1.Sum([]byte(password))
	digest := strings.ToUpper(hex.EncodeToString(sum[:]))
	prefix, suffix := digest[:hashPrefixLen], digest[hashPrefixLen:]

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.pwnedBaseURL+"/range/"+prefix, nil)
	if err != nil {
		return driven.PasswordBreach{}, fmt.Errorf("build range request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return driven.PasswordBreach{}, fmt.Errorf("query range endpoint: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		// Fall through to parse the suffix list.
	case http.StatusNotFound:
		// No hashes share this prefix; the password is not in the corpus.
		return driven.PasswordBreach{}, nil
	default:
		return driven.PasswordBreach{}, &StatusError{Endpoint: "range", StatusCode: resp.StatusCode}
	}

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		candidate, countStr, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		if candidate != suffix {
			continue
		}

		count, err := strconv.Atoi(strings.TrimSpace(countStr))
		if err != nil {
			return driven.PasswordBreach{}, fmt.Errorf("parse range count %q: %w", countStr, err)
		}
		return driven.PasswordBreach{Breached: true, Count: count}, nil
	}
	if err := scanner.Err(); err != nil {
		return driven.PasswordBreach{}, fmt.Errorf("read range response: %w", err)
	}

	return driven.PasswordBreach{}, nil
}

// breachRecord is the subset of the HIBP breach object the client consumes.
type breachRecord struct {
	Name string `json:"Name"`
}

// CheckEmail looks up an email address in the breached-account index. This
// check sends the actual address to the provider, unlike CheckPassword, and
// requires an API key.
func (c *Client) CheckEmail(ctx context.Context, email string) (driven.EmailBreach, error) {
	if c.apiKey == "" {
		return driven.EmailBreach{}, ErrAPIKeyNotSet
	}

	endpoint := c.hibpBaseURL + "/breachedaccount/" + url.PathEscape(email) + "?truncateResponse=true"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return driven.EmailBreach{}, fmt.Errorf("build breachedaccount request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("hibp-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return driven.EmailBreach{}, fmt.Errorf("query breachedaccount endpoint: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		// Fall through to decode the breach list.
	case http.StatusNotFound:
		return driven.EmailBreach{Breached: false, Breaches: []string{}}, nil
	default:
		return driven.EmailBreach{}, &StatusError{Endpoint: "breachedaccount", StatusCode: resp.StatusCode}
	}

	var records []breachRecord
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return driven.EmailBreach{}, fmt.Errorf("decode breachedaccount response: %w", err)
	}

	names := make([]string, 0, len(records))
	for _, rec := range records {
		names = append(names, rec.Name)
	}

	return driven.EmailBreach{Breached: true, Breaches: names}, nil
}
