// Package searchfn hosts the reverse-image-search function: it validates
// caller auth, signs a short-lived URL for the uploaded image, proxies the
// external search provider, and normalizes the matches.
package searchfn

import "context"

// ImageMatch is one raw match returned by the search provider.
type ImageMatch struct {
	Position  int    `json:"position"`
	Title     string `json:"title"`
	Link      string `json:"link"`
	Source    string `json:"source"`
	Snippet   string `json:"snippet"`
	Thumbnail string `json:"thumbnail"`
	Original  string `json:"original"`
}

// Provider defines the interface for reverse image search.
type Provider interface {
	// SearchByImage finds pages containing the image reachable at
	// imageURL.
	SearchByImage(ctx context.Context, imageURL string) ([]ImageMatch, error)
}
