package detector

// Detector is a strategy that determines if a process is running.
// Implementations must be safe for concurrent use. Liveness is always
// re-derived at call time; a Detector never caches a positive answer.
type Detector interface {
	// Alive returns true if the process is detected as running.
	Alive() (bool, error)
	// Describe returns a human-readable description of the detection method.
	Describe() string
}
