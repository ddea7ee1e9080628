package usagelog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// rawRecord mirrors one log line. The current schema nests usage under
// message; the legacy schema keeps usage, model and message_id top-level.
type rawRecord struct {
	Timestamp string      `json:"timestamp"`
	SessionID string      `json:"sessionId"`
	Version   string      `json:"version,omitempty"`
	CWD       string      `json:"cwd,omitempty"`
	Message   *rawMessage `json:"message,omitempty"`
	Usage     *rawUsage   `json:"usage,omitempty"`
	Model     string      `json:"model,omitempty"`
	MessageID string      `json:"message_id,omitempty"`
	RequestID string      `json:"requestId,omitempty"`
	CostUSD   *float64    `json:"costUSD,omitempty"`
}

type rawMessage struct {
	ID    string    `json:"id"`
	Model string    `json:"model"`
	Usage *rawUsage `json:"usage,omitempty"`
}

type rawUsage struct {
	InputTokens              int64 `json:"input_tokens"`
	OutputTokens             int64 `json:"output_tokens"`
	CacheCreationInputTokens int64 `json:"cache_creation_input_tokens"`
	CacheReadInputTokens     int64 `json:"cache_read_input_tokens"`
}

// Parse failure categories. Lines without usage data at all are not
// failures: they are other record types sharing the log and are skipped.
var (
	ErrMalformed    = errors.New("malformed json")
	ErrMissingUsage = errors.New("missing usage payload")
	ErrBadTimestamp = errors.New("bad timestamp")
)

// Origin identifies the file a line came from and the identifiers derived
// from its path.
type Origin struct {
	Path     string
	Project  string
	Instance string
}

const projectsDirName = "projects"

// OriginForPath derives project (path component directly under "projects")
// and instance (file stem) identifiers for a log file.
func OriginForPath(path string) Origin {
	o := Origin{Path: path, Project: "unknown"}

	base := filepath.Base(path)
	o.Instance = strings.TrimSuffix(base, filepath.Ext(base))

	parts := strings.Split(filepath.ToSlash(path), "/")
	for i, part := range parts {
		if part == projectsDirName {
			if i+1 < len(parts)-1 {
				o.Project = parts[i+1]
			}
			break
		}
	}
	return o
}

var usageMarker = []byte("input_tokens")

// hasUsageMarker is the cheap pre-filter applied before JSON decoding.
func hasUsageMarker(line []byte) bool {
	return bytes.Contains(line, usageMarker)
}

// ParseLine turns one log line into an Event.
// Returns (nil, nil) for benign skips: blank lines and records that carry
// no usage data. Returns a categorized error for lines that look like
// usage records but cannot be decoded.
func ParseLine(line []byte, origin Origin) (*Event, error) {
	if len(bytes.TrimSpace(line)) == 0 {
		return nil, nil
	}
	if !hasUsageMarker(line) {
		return nil, nil
	}

	var raw rawRecord
	if err := json.Unmarshal(line, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	schema := SchemaCurrent
	usage := raw.Usage
	model := raw.Model
	messageID := raw.MessageID
	if raw.Message != nil && raw.Message.Usage != nil {
		usage = raw.Message.Usage
		model = raw.Message.Model
		messageID = raw.Message.ID
	} else if usage != nil {
		schema = SchemaLegacy
	}
	if usage == nil {
		return nil, ErrMissingUsage
	}

	ts, err := time.Parse(time.RFC3339, raw.Timestamp)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrBadTimestamp, raw.Timestamp)
	}

	sessionID := raw.SessionID
	if sessionID == "" {
		sessionID = origin.Instance
	}

	return &Event{
		Timestamp: ts.UTC(),
		Model:     model,
		Project:   origin.Project,
		Instance:  origin.Instance,
		SessionID: sessionID,
		Tokens: TokenCounts{
			Input:         usage.InputTokens,
			Output:        usage.OutputTokens,
			CacheCreation: usage.CacheCreationInputTokens,
			CacheRead:     usage.CacheReadInputTokens,
		},
		CostUSD:   raw.CostUSD,
		MessageID: messageID,
		RequestID: raw.RequestID,
		Schema:    schema,
	}, nil
}
