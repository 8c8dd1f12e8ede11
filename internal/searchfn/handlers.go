package searchfn

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/veilscan/veilscan/internal/scan"
)

// writeJSON encodes v as the response body with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// writeFailure writes the unified failure envelope. Every error path,
// whatever the status, returns this one shape.
func writeFailure(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, scan.SearchResponse{
		Success:    false,
		Error:      message,
		Results:    []scan.Result{},
		TotalFound: 0,
	})
}

// authUser verifies the bearer token on a request. On failure it writes a
// 401 and returns nil; the storage and search providers are never reached.
func (s *Server) authUser(w http.ResponseWriter, r *http.Request) *scan.User {
	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		writeFailure(w, http.StatusUnauthorized, "Missing authorization header")
		return nil
	}
	token := strings.TrimPrefix(auth, "Bearer ")

	user, err := s.verifier.VerifyToken(r.Context(), token)
	if err != nil {
		slog.Warn("Token verification failed", "error", err)
		writeFailure(w, http.StatusUnauthorized, "Invalid or expired token")
		return nil
	}
	return user
}

// handleSearch runs one reverse image search for an uploaded object.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	user := s.authUser(w, r)
	if user == nil {
		return
	}

	var req scan.SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ImagePath == "" {
		writeFailure(w, http.StatusBadRequest, "imagePath is required")
		return
	}

	if !s.limiter.Allow() {
		writeFailure(w, http.StatusTooManyRequests, "Too many scan requests, try again shortly")
		return
	}

	signedURL, err := s.signer.SignedURL(r.Context(), req.ImagePath, signedURLTTL)
	if err != nil {
		slog.Error("Failed to sign image URL", "image_path", req.ImagePath, "error", err)
		writeFailure(w, http.StatusInternalServerError, "Could not access uploaded image")
		return
	}

	matches, err := s.provider.SearchByImage(r.Context(), signedURL)
	if err != nil {
		// Upstream status codes stay in the log, not the client message.
		slog.Error("Reverse image search failed", "image_path", req.ImagePath, "error", err)
		writeFailure(w, http.StatusInternalServerError, "Reverse image search failed")
		return
	}

	now := s.now().UTC()
	results := mapMatches(matches, now)

	record := &ScanRecord{
		ID:         uuid.NewString(),
		UserID:     user.ID,
		ImagePath:  req.ImagePath,
		TotalFound: len(results),
		CreatedAt:  now,
	}
	if err := s.history.SaveScan(record); err != nil {
		slog.Warn("Failed to record scan history", "user_id", user.ID, "error", err)
	}

	writeJSON(w, http.StatusOK, scan.SearchResponse{
		Success:    true,
		Results:    results,
		TotalFound: len(results),
	})
}

// handleHistory returns the caller's scan history, newest first.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	user := s.authUser(w, r)
	if user == nil {
		return
	}

	records, err := s.history.ListScans(user.ID)
	if err != nil {
		slog.Error("Error listing scan history", "user_id", user.ID, "error", err)
		writeFailure(w, http.StatusInternalServerError, "Could not load scan history")
		return
	}

	writeJSON(w, http.StatusOK, records)
}

// mapMatches normalizes raw provider matches into wire results. All
// results in one response share a single foundAt timestamp.
func mapMatches(matches []ImageMatch, foundAt time.Time) []scan.Result {
	results := make([]scan.Result, 0, len(matches))
	for _, match := range matches {
		imageURL := match.Original
		if imageURL == "" {
			imageURL = match.Thumbnail
		}
		results = append(results, scan.Result{
			ID:           resultID(match.Link),
			ImageURL:     imageURL,
			ThumbnailURL: match.Thumbnail,
			SourceURL:    match.Link,
			SourceDomain: sourceDomain(match.Link),
			Title:        match.Title,
			Snippet:      match.Snippet,
			FoundAt:      foundAt,
		})
	}
	return results
}

// resultID derives a stable id from the match's source URL so repeated
// identical searches yield identical ids.
func resultID(link string) string {
	sum := sha256.Sum256([]byte(link))
	return "result-" + hex.EncodeToString(sum[:6])
}

// sourceDomain extracts the host of the match's link, falling back to
// "Unknown" when the link does not parse.
func sourceDomain(link string) string {
	parsed, err := url.Parse(link)
	if err != nil || parsed.Hostname() == "" {
		return "Unknown"
	}
	return parsed.Hostname()
}
