package scan

import (
	"fmt"
	"sync"
)

// Session is a read-only snapshot of a Store.
type Session struct {
	Status        Status
	CapturedImage *Image
	Results       []Result
	Progress      int
	Err           string
	Categories    []Category
}

// Store is the single source of truth for in-progress scan state. It is an
// explicit object created at flow entry and reset at flow exit; nothing is
// ever persisted, so a process restart loses all scan state.
//
// SetStatus only accepts valid successor states. SetResults, SetError and
// Reset are forcing actions that may fire from any state.
type Store struct {
	mu            sync.Mutex
	status        Status
	capturedImage *Image
	results       []Result
	progress      int
	err           string
	categories    []Category
}

// validNext maps each status to the statuses SetStatus may move it to.
var validNext = map[Status][]Status{
	StatusIdle:      {StatusCapturing},
	StatusCapturing: {StatusUploading, StatusIdle},
	StatusUploading: {StatusSearching},
	StatusSearching: {StatusComplete},
	StatusComplete:  {},
	StatusError:     {},
}

// NewStore creates a session store in the idle state with all categories
// pending.
func NewStore() *Store {
	return &Store{
		status:     StatusIdle,
		results:    []Result{},
		categories: DefaultCategories(),
	}
}

// SetCapturedImage sets the captured image and derives the status:
// capturing when an image is present, idle otherwise. Image content is not
// validated.
func (s *Store) SetCapturedImage(img *Image) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.capturedImage = img
	if img != nil {
		s.status = StatusCapturing
	} else {
		s.status = StatusIdle
	}
}

// SetStatus moves the session to next. Setting the current status again is
// a no-op; any other invalid transition is rejected with an
// INVALID_TRANSITION error.
func (s *Store) SetStatus(next Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if next == s.status {
		return nil
	}
	for _, allowed := range validNext[s.status] {
		if next == allowed {
			s.status = next
			return nil
		}
	}
	return NewError(CodeInvalidTransition,
		fmt.Sprintf("invalid status transition: %s -> %s", s.status, next))
}

// SetProgress stores a raw percentage. No clamping happens here; display
// layers clamp to 0..100.
func (s *Store) SetProgress(pct int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.progress = pct
}

// SetResults stores the results and forces the status to complete.
func (s *Store) SetResults(results []Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if results == nil {
		results = []Result{}
	}
	s.results = results
	s.status = StatusComplete
}

// SetError stores the error message and forces the status to error. An
// empty message clears the error and returns the session to idle.
func (s *Store) SetError(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = message
	if message != "" {
		s.status = StatusError
	} else {
		s.status = StatusIdle
	}
}

// UpdateCategoryStatus replaces one category's status by id. Unknown ids
// are ignored.
func (s *Store) UpdateCategoryStatus(id string, status CategoryStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.categories {
		if s.categories[i].ID == id {
			s.categories[i].Status = status
			return
		}
	}
}

// Reset restores all fields to their initial values and re-seeds the
// categories to pending.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = StatusIdle
	s.capturedImage = nil
	s.results = []Result{}
	s.progress = 0
	s.err = ""
	s.categories = DefaultCategories()
}

// Snapshot returns a copy of the current session state.
func (s *Store) Snapshot() Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	results := make([]Result, len(s.results))
	copy(results, s.results)
	categories := make([]Category, len(s.categories))
	copy(categories, s.categories)
	return Session{
		Status:        s.status,
		CapturedImage: s.capturedImage,
		Results:       results,
		Progress:      s.progress,
		Err:           s.err,
		Categories:    categories,
	}
}

// CurrentStatus returns the current status tag.
func (s *Store) CurrentStatus() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}
