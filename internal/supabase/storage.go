package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// TokenSource yields the bearer token a storage request runs under. The
// client CLI uses the signed-in user's session token; the server uses the
// service key.
type TokenSource func(ctx context.Context) (string, error)

// StaticToken returns a TokenSource that always yields token.
func StaticToken(token string) TokenSource {
	return func(ctx context.Context) (string, error) {
		return token, nil
	}
}

// StorageClient talks to a Supabase Storage bucket over its REST API.
type StorageClient struct {
	baseURL string
	apiKey  string
	bucket  string
	tokens  TokenSource
	client  *http.Client
}

// NewStorageClient creates a storage client for one bucket.
func NewStorageClient(baseURL, apiKey, bucket string, tokens TokenSource) *StorageClient {
	return &StorageClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		bucket:  bucket,
		tokens:  tokens,
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

// Upload stores an object under key. Existing objects are never
// overwritten (x-upsert is always false).
func (s *StorageClient) Upload(ctx context.Context, key string, data []byte, contentType string) error {
	url := fmt.Sprintf("%s/storage/v1/object/%s/%s", s.baseURL, s.bucket, key)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("x-upsert", "false")
	if err := s.authorize(ctx, req); err != nil {
		return err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("calling storage API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("storage API error (status %d): %s", resp.StatusCode, string(body))
	}
	return nil
}

// Remove deletes the object under key.
func (s *StorageClient) Remove(ctx context.Context, key string) error {
	url := fmt.Sprintf("%s/storage/v1/object/%s/%s", s.baseURL, s.bucket, key)
	req, err := http.NewRequestWithContext(ctx, "DELETE", url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if err := s.authorize(ctx, req); err != nil {
		return err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("calling storage API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("storage API error (status %d): %s", resp.StatusCode, string(body))
	}
	return nil
}

// SignedURL creates a time-boxed URL granting read access to the object
// under key.
func (s *StorageClient) SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	body := map[string]int{"expiresIn": int(ttl.Seconds())}
	jsonData, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	url := fmt.Sprintf("%s/storage/v1/object/sign/%s/%s", s.baseURL, s.bucket, key)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if err := s.authorize(ctx, req); err != nil {
		return "", err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling storage API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("storage API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var signResp struct {
		SignedURL string `json:"signedURL"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&signResp); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}
	if signResp.SignedURL == "" {
		return "", fmt.Errorf("storage API returned no signed URL")
	}
	// The API returns a path relative to the storage root.
	return fmt.Sprintf("%s/storage/v1%s", s.baseURL, signResp.SignedURL), nil
}

func (s *StorageClient) authorize(ctx context.Context, req *http.Request) error {
	token, err := s.tokens(ctx)
	if err != nil {
		return fmt.Errorf("resolving storage token: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("apikey", s.apiKey)
	return nil
}
