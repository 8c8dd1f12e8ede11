package searchfn

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// SerpAPI implements the Provider interface using SerpAPI's
// google_reverse_image engine.
type SerpAPI struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// serpResponse is the subset of the SerpAPI payload the handler consumes.
type serpResponse struct {
	SearchMetadata struct {
		Status string `json:"status"`
	} `json:"search_metadata"`
	ImageResults []ImageMatch `json:"image_results"`
	Error        string       `json:"error"`
}

// NewSerpAPI creates a SerpAPI provider.
func NewSerpAPI(apiKey string) (*SerpAPI, error) {
	return NewSerpAPIWithBaseURL(apiKey, "https://serpapi.com")
}

// NewSerpAPIWithBaseURL creates a SerpAPI provider against a custom
// endpoint for testing.
func NewSerpAPIWithBaseURL(apiKey, baseURL string) (*SerpAPI, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("serpapi key is required")
	}
	return &SerpAPI{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 60 * time.Second},
	}, nil
}

// SearchByImage runs a reverse image search for the image at imageURL.
func (s *SerpAPI) SearchByImage(ctx context.Context, imageURL string) ([]ImageMatch, error) {
	params := url.Values{}
	params.Set("engine", "google_reverse_image")
	params.Set("image_url", imageURL)
	params.Set("api_key", s.apiKey)

	reqURL := fmt.Sprintf("%s/search.json?%s", s.baseURL, params.Encode())
	req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling serpapi: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("serpapi error (status %d): %s", resp.StatusCode, string(body))
	}

	var serpResp serpResponse
	if err := json.NewDecoder(resp.Body).Decode(&serpResp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	if serpResp.Error != "" {
		return nil, fmt.Errorf("serpapi error: %s", serpResp.Error)
	}
	return serpResp.ImageResults, nil
}
