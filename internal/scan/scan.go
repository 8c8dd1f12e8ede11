package scan

import "time"

// Status is the lifecycle tag for one scan session. Exactly one status
// holds at a time.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusCapturing Status = "capturing"
	StatusUploading Status = "uploading"
	StatusSearching Status = "searching"
	StatusComplete  Status = "complete"
	StatusError     Status = "error"
)

// CategoryStatus tracks the coarse progress of one scan category.
type CategoryStatus string

const (
	CategoryPending  CategoryStatus = "pending"
	CategoryScanning CategoryStatus = "scanning"
	CategoryComplete CategoryStatus = "complete"
)

// Category is a progress-tracking unit shown while a scan runs. Categories
// are cosmetic: the search call succeeds or fails atomically regardless of
// how many of them are marked complete.
type Category struct {
	ID     string         `json:"id"`
	Label  string         `json:"label"`
	Status CategoryStatus `json:"status"`
}

// DefaultCategories returns the category set a fresh session starts with.
func DefaultCategories() []Category {
	return []Category{
		{ID: "upload", Label: "Uploading image", Status: CategoryPending},
		{ID: "search", Label: "Searching the web", Status: CategoryPending},
		{ID: "analyze", Label: "Analyzing matches", Status: CategoryPending},
	}
}

// Image is a captured photograph held only in memory or ephemeral local
// storage. Data may be pre-populated; otherwise bytes are read from Path
// when the scan runs.
type Image struct {
	Path   string
	Width  int
	Height int
	Data   []byte
}

// Result is one matched image found by the search provider. Results are
// immutable once constructed server-side.
type Result struct {
	ID           string    `json:"id"`
	ImageURL     string    `json:"imageUrl"`
	ThumbnailURL string    `json:"thumbnailUrl"`
	SourceURL    string    `json:"sourceUrl"`
	SourceDomain string    `json:"sourceDomain"`
	Title        string    `json:"title"`
	Snippet      string    `json:"snippet,omitempty"`
	FoundAt      time.Time `json:"foundAt"`
}

// SearchRequest is the wire payload sent to the search function.
type SearchRequest struct {
	ImagePath string `json:"imagePath"`
}

// SearchResponse is the envelope returned by the search function for both
// success and failure. Error paths always carry empty Results and a zero
// TotalFound so clients only ever handle one shape.
type SearchResponse struct {
	Success    bool     `json:"success"`
	Results    []Result `json:"results"`
	TotalFound int      `json:"totalFound"`
	Error      string   `json:"error,omitempty"`
}
