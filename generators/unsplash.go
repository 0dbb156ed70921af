package generators

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const DefaultUnsplashBaseURL = "https://api.unsplash.com"

type UnsplashClient struct {
	client    *http.Client
	accessKey string
	baseURL   string
	// pick chooses one of n results.
	pick func(n int) int
}

func NewUnsplashClient(accessKey, baseURL string, client *http.Client) *UnsplashClient {
	baseURL = strings.TrimRight(baseURL, "/")
	if baseURL == "" {
		baseURL = DefaultUnsplashBaseURL
	}
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &UnsplashClient{client: client, accessKey: accessKey, baseURL: baseURL, pick: rand.IntN}
}

func (u *UnsplashClient) Configured() bool {
	return u != nil && u.accessKey != ""
}

type unsplashSearchResponse struct {
	Results []struct {
		URLs struct {
			Regular string `json:"regular"`
		} `json:"urls"`
	} `json:"results"`
}

// SearchImage returns the regular-size URL of a random squarish photo
// matching query, or "" when nothing matched.
func (u *UnsplashClient) SearchImage(ctx context.Context, query string) (string, error) {
	query = strings.TrimSpace(query)
	if !u.Configured() || query == "" {
		return "", nil
	}

	params := url.Values{}
	params.Set("query", query)
	params.Set("per_page", "10")
	params.Set("orientation", "squarish")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.baseURL+"/search/photos?"+params.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("unsplash: create request: %w", err)
	}
	req.Header.Set("Authorization", "Client-ID "+u.accessKey)

	resp, err := u.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("unsplash: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", &statusError{service: "unsplash", code: resp.StatusCode, body: strings.TrimSpace(string(body))}
	}

	var decoded unsplashSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("unsplash: decode response: %w", err)
	}
	if len(decoded.Results) == 0 {
		return "", nil
	}
	return decoded.Results[u.pick(len(decoded.Results))].URLs.Regular, nil
}
