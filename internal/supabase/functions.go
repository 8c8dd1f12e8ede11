package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/veilscan/veilscan/internal/scan"
)

// SearchFunctionName is the deployed name of the reverse-image-search
// function.
const SearchFunctionName = "reverse-image-search"

// FunctionsClient invokes edge functions. It implements scan.Gateway.
type FunctionsClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewFunctionsClient creates a functions client for the project at
// baseURL. The timeout is generous because the search function blocks on
// the upstream provider.
func NewFunctionsClient(baseURL, apiKey string) *FunctionsClient {
	return &FunctionsClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 120 * time.Second},
	}
}

// Search invokes the reverse-image-search function with the storage key of
// an uploaded image. Transport failures surface as FUNCTION_ERROR and a
// bodyless response as EMPTY_RESPONSE; HTTP status is otherwise ignored
// because success and failure share one envelope shape.
func (f *FunctionsClient) Search(ctx context.Context, token, imagePath string) (*scan.SearchResponse, error) {
	payload := scan.SearchRequest{ImagePath: imagePath}
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, scan.NewError(scan.CodeFunction, fmt.Sprintf("marshaling request: %v", err))
	}

	url := fmt.Sprintf("%s/functions/v1/%s", f.baseURL, SearchFunctionName)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, scan.NewError(scan.CodeFunction, fmt.Sprintf("creating request: %v", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("apikey", f.apiKey)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, scan.NewError(scan.CodeFunction, fmt.Sprintf("calling search function: %v", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, scan.NewError(scan.CodeFunction, fmt.Sprintf("reading response: %v", err))
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, scan.NewError(scan.CodeEmptyResponse, "search function returned no body")
	}

	var searchResp scan.SearchResponse
	if err := json.Unmarshal(body, &searchResp); err != nil {
		return nil, scan.NewError(scan.CodeFunction, fmt.Sprintf("decoding response (status %d): %v", resp.StatusCode, err))
	}
	return &searchResp, nil
}
