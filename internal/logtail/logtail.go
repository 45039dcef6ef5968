// Package logtail reads captured process output with bounded cost. Logs are
// single-writer append files; reads only need a reasonably-recent snapshot,
// so no locking is involved.
package logtail

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// DefaultMaxScanBytes caps how much of a log file a Tail call will read.
// Large files are scanned from the end only.
const DefaultMaxScanBytes = 256 * 1024

// ErrLogNotFound is returned when the log file does not exist, e.g. it was
// deleted externally after the process was recorded.
var ErrLogNotFound = errors.New("log not found")

// Result is a bounded view of the end of a log file.
type Result struct {
	Content      string // the returned lines, newline-joined
	Lines        int    // number of lines in Content
	OmittedLines int    // lines dropped by the line limit (within the scanned window)
	OmittedBytes int64  // bytes before the scanned window, 0 when the whole file was read
	TotalSize    int64  // log file size at read time
}

// Truncated reports whether any content was clipped.
func (r Result) Truncated() bool { return r.OmittedLines > 0 || r.OmittedBytes > 0 }

// Render produces the user-facing text: the content, preceded by an explicit
// truncation marker when anything was omitted. Clipping is never silent.
func (r Result) Render() string {
	if !r.Truncated() {
		return r.Content
	}
	var b strings.Builder
	switch {
	case r.OmittedBytes > 0 && r.OmittedLines > 0:
		fmt.Fprintf(&b, "... (%d earlier bytes and %d earlier lines omitted)\n", r.OmittedBytes, r.OmittedLines)
	case r.OmittedBytes > 0:
		fmt.Fprintf(&b, "... (%d earlier bytes omitted)\n", r.OmittedBytes)
	default:
		fmt.Fprintf(&b, "... (%d earlier lines omitted)\n", r.OmittedLines)
	}
	b.WriteString(r.Content)
	return b.String()
}

// Tail returns at most the last maxLines lines of the file at path, scanning
// at most maxScanBytes from the end. maxLines <= 0 means no line limit;
// maxScanBytes <= 0 selects DefaultMaxScanBytes.
func Tail(path string, maxLines int, maxScanBytes int64) (Result, error) {
	if maxScanBytes <= 0 {
		maxScanBytes = DefaultMaxScanBytes
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{}, ErrLogNotFound
		}
		return Result{}, fmt.Errorf("open log: %w", err)
	}
	defer func() { _ = f.Close() }()

	st, err := f.Stat()
	if err != nil {
		return Result{}, fmt.Errorf("stat log: %w", err)
	}
	res := Result{TotalSize: st.Size()}

	offset := int64(0)
	if st.Size() > maxScanBytes {
		offset = st.Size() - maxScanBytes
		if _, err := f.Seek(offset, io.SeekStart); err != nil {
			return Result{}, fmt.Errorf("seek log: %w", err)
		}
	}
	data, err := io.ReadAll(f)
	if err != nil {
		return Result{}, fmt.Errorf("read log: %w", err)
	}

	text := string(data)
	if offset > 0 {
		// Drop the partial first line of the window; count its bytes as
		// omitted too.
		if i := strings.IndexByte(text, '\n'); i >= 0 {
			offset += int64(i + 1)
			text = text[i+1:]
		} else {
			offset += int64(len(text))
			text = ""
		}
		res.OmittedBytes = offset
	}

	lines := splitLines(text)
	if maxLines > 0 && len(lines) > maxLines {
		res.OmittedLines = len(lines) - maxLines
		lines = lines[len(lines)-maxLines:]
		text = strings.Join(lines, "\n")
		if len(text) > 0 {
			text += "\n"
		}
	}
	res.Content = text
	res.Lines = len(lines)
	return res, nil
}

// ReadAll returns the complete log content. Meant for explicit requests, not
// the periodic status path, which always uses the bounded Tail.
func ReadAll(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrLogNotFound
		}
		return "", fmt.Errorf("read log: %w", err)
	}
	return string(data), nil
}

// splitLines splits on '\n' without producing a trailing empty line for a
// newline-terminated file.
func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	trimmed := strings.TrimSuffix(s, "\n")
	if trimmed == "" {
		return []string{""}
	}
	return strings.Split(trimmed, "\n")
}
