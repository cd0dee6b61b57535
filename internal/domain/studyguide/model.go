package studyguide

import (
	"time"

	"github.com/yanqian/gistflow/pkg/metrics"
)

// Config configures the study guide domain.
type Config struct {
	Model          string
	DefaultStyle   StyleID
	MaxUploadBytes int64
}

// Request represents the incoming summarization payload.
type Request struct {
	Notes string  `json:"notes"`
	Style StyleID `json:"style,omitempty"`
}

// DiagramType tags a fenced block.
type DiagramType string

const (
	DiagramMermaid DiagramType = "mermaid"
	DiagramCode    DiagramType = "code"
)

// Diagram is one fenced block lifted out of a completion.
type Diagram struct {
	Type    DiagramType `json:"type"`
	Content string      `json:"content"`
}

// SummaryResult is the structured study summary handed to presentation.
// Empty sections are empty strings or empty slices, never nil.
type SummaryResult struct {
	Summary           string    `json:"summary"`
	KeyTerms          string    `json:"keyTerms"`
	Diagrams          []Diagram `json:"diagrams"`
	Examples          string    `json:"examples"`
	PracticeQuestions []string  `json:"practiceQuestions"`
	ConceptHierarchy  string    `json:"conceptHierarchy"`
	QuickReference    string    `json:"quickReference"`
	CommonMistakes    []string  `json:"commonMistakes"`
}

// Normalize replaces nil slices with empty ones.
func (r SummaryResult) Normalize() SummaryResult {
	if r.Diagrams == nil {
		r.Diagrams = []Diagram{}
	}
	if r.PracticeQuestions == nil {
		r.PracticeQuestions = []string{}
	}
	if r.CommonMistakes == nil {
		r.CommonMistakes = []string{}
	}
	return r
}

// Response is returned by the sync endpoint.
type Response struct {
	Style       StyleID             `json:"style"`
	Topic       string              `json:"topic"`
	Result      SummaryResult       `json:"result"`
	GeneratedAt time.Time           `json:"generatedAt"`
	DurationMs  int64               `json:"durationMs,omitempty"`
	TokenUsage  *metrics.TokenUsage `json:"tokenUsage,omitempty"`
}

// StreamChunk represents a streaming update.
type StreamChunk struct {
	PartialSummary string         `json:"partialSummary"`
	Completed      bool           `json:"completed"`
	Result         *SummaryResult `json:"result,omitempty"`
	Error          *StreamError   `json:"error,omitempty"`
}

// StreamError reports a failure after the stream has started.
type StreamError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
