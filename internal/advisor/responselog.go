package advisor

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ResponseLog appends every model interaction to a JSON-lines file so
// raw responses stay auditable even when parsing fails.
type ResponseLog struct {
	path string
}

func NewResponseLog(path string) *ResponseLog {
	return &ResponseLog{path: path}
}

type responseEntry struct {
	Timestamp   string          `json:"timestamp"`
	Model       string          `json:"model"`
	Response    *Recommendation `json:"response"`
	RawResponse string          `json:"raw_response"`
}

// Append writes one line with the timestamp, model, parsed envelope
// (null when parsing failed) and the raw response text.
func (l *ResponseLog) Append(model string, rec *Recommendation, raw string) error {
	entry := responseEntry{
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
		Model:       model,
		Response:    rec,
		RawResponse: raw,
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode response entry: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("create response log dir: %w", err)
	}
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open response log: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("append response log: %w", err)
	}
	return nil
}
