package manager

import (
	"errors"

	"github.com/loykin/bgrun/internal/logtail"
)

// Error taxonomy for user-facing operations. Raw OS and filesystem errors
// are wrapped at the component boundary; callers match with errors.Is.
var (
	// ErrAlreadyRunning: a live record with the same name exists in scope.
	// Recoverable: pick another name or stop the existing process first.
	ErrAlreadyRunning = errors.New("process already running")

	// ErrSpawnFailed: the OS refused to create the child. The underlying
	// error text is attached; no record is left behind.
	ErrSpawnFailed = errors.New("failed to start process")

	// ErrNotFound: stop/logs referenced a name with no record in scope.
	ErrNotFound = errors.New("process not found")

	// ErrLogNotFound: the record exists but its log file is gone.
	ErrLogNotFound = logtail.ErrLogNotFound
)
