package copier

import "sync"

// Failure records one file or folder that could not be copied.
type Failure struct {
	// Path is the site-relative path of the failed item.
	Path string
	// Reason is the error message.
	Reason string
}

// Summary aggregates the outcome of one run. A single Summary is shared by
// the whole walk; all mutation goes through the mutex because file uploads
// within a folder may run on concurrent workers.
type Summary struct {
	mu sync.Mutex

	// Discovered counts file entries seen during the walk.
	Discovered int
	// Copied counts files uploaded successfully.
	Copied int
	// Failed counts files (and folder listings) that errored.
	Failed int
	// BytesCopied is the total size of successfully uploaded files.
	BytesCopied int64
	// Failures lists each failed item with its reason.
	Failures []Failure
}

func (s *Summary) noteDiscovered() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Discovered++
}

func (s *Summary) noteCopied(size int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Copied++
	s.BytesCopied += size
}

func (s *Summary) noteFailure(path string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Failed++
	s.Failures = append(s.Failures, Failure{Path: path, Reason: err.Error()})
}
