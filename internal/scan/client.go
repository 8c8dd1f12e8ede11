package scan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"
	"time"
)

// User is the authenticated identity a scan runs under.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Identity resolves the current authenticated user and a fresh access
// token for the session.
type Identity interface {
	// CurrentUser returns the signed-in user, or nil when nobody is
	// signed in.
	CurrentUser(ctx context.Context) (*User, error)

	// AccessToken returns a token valid for calling the search function,
	// refreshing the session if needed. It fails when the session is
	// absent or expired.
	AccessToken(ctx context.Context) (string, error)
}

// ObjectStore uploads and deletes the temporary scan image. Upload must
// never overwrite an existing object.
type ObjectStore interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) error
	Remove(ctx context.Context, key string) error
}

// Gateway invokes the reverse-image-search function with the storage key
// of an uploaded image.
type Gateway interface {
	Search(ctx context.Context, token, imagePath string) (*SearchResponse, error)
}

// FileReader reads the captured image bytes from a local path.
type FileReader func(path string) ([]byte, error)

// TimeSource provides the current time.
type TimeSource interface {
	Now() time.Time
}

type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Client sequences one scan: resolve identity, read and normalize the
// captured image, upload it under a unique per-user key, invoke the search
// function, and unconditionally delete the uploaded object afterwards.
// The client owns no persistent state.
type Client struct {
	identity   Identity
	objects    ObjectStore
	gateway    Gateway
	readFile   FileReader
	timeSource TimeSource
	inFlight   atomic.Bool
}

// NewClient creates a scan client reading images from the local
// filesystem.
func NewClient(identity Identity, objects ObjectStore, gateway Gateway) *Client {
	return NewClientWithDeps(identity, objects, gateway, os.ReadFile, &defaultTimeSource{})
}

// NewClientWithDeps creates a scan client with custom dependencies for
// testing.
func NewClientWithDeps(identity Identity, objects ObjectStore, gateway Gateway, readFile FileReader, timeSource TimeSource) *Client {
	return &Client{
		identity:   identity,
		objects:    objects,
		gateway:    gateway,
		readFile:   readFile,
		timeSource: timeSource,
	}
}

// Run performs one scan for the captured image. Steps run in strict
// sequence with no retries; any failure surfaces immediately as a typed
// *Error. Exactly one upload and, once the upload succeeded, exactly one
// delete happen per invocation regardless of the outcome of later steps.
//
// A second Run while one is in flight is rejected with SCAN_IN_PROGRESS.
func (c *Client) Run(ctx context.Context, img *Image) (*SearchResponse, error) {
	if !c.inFlight.CompareAndSwap(false, true) {
		return nil, NewError(CodeScanInProgress, "a scan is already in progress")
	}
	defer c.inFlight.Store(false)

	user, err := c.identity.CurrentUser(ctx)
	if err != nil {
		return nil, NewError(CodeAuthRequired, fmt.Sprintf("resolving user: %v", err))
	}
	if user == nil {
		return nil, NewError(CodeAuthRequired, "you must be signed in to scan")
	}

	data := img.Data
	if data == nil {
		data, err = c.readFile(img.Path)
		if err != nil {
			return nil, NewError(CodeFileRead, fmt.Sprintf("reading captured image: %v", err))
		}
	}
	jpegData, width, height, err := PrepareJPEG(data)
	if err != nil {
		return nil, NewError(CodeFileRead, fmt.Sprintf("preparing captured image: %v", err))
	}
	if img.Width == 0 || img.Height == 0 {
		img.Width, img.Height = width, height
	}

	key := fmt.Sprintf("%s/scan-%d.jpg", user.ID, c.timeSource.Now().UnixMilli())
	if err := c.objects.Upload(ctx, key, jpegData, "image/jpeg"); err != nil {
		return nil, NewError(CodeUpload, fmt.Sprintf("Image upload failed: %v", err))
	}

	// The temporary object is deleted no matter which later step fails.
	// A failed delete orphans the object; surface it instead of
	// swallowing it.
	defer func() {
		if err := c.objects.Remove(ctx, key); err != nil {
			slog.Warn("Failed to delete temporary scan image", "key", key, "error", err)
		}
	}()

	token, err := c.identity.AccessToken(ctx)
	if err != nil {
		return nil, NewError(CodeSessionExpired, fmt.Sprintf("refreshing session: %v", err))
	}

	resp, err := c.gateway.Search(ctx, token, key)
	if err != nil {
		var scanErr *Error
		if errors.As(err, &scanErr) {
			return nil, scanErr
		}
		return nil, NewError(CodeFunction, err.Error())
	}
	if resp == nil {
		return nil, NewError(CodeEmptyResponse, "search function returned no body")
	}
	if !resp.Success {
		message := resp.Error
		if message == "" {
			message = "search failed"
		}
		return nil, NewError(CodeSearch, message)
	}
	return resp, nil
}
