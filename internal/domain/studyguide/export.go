package studyguide

import (
	"fmt"
	"strings"

	apperrors "github.com/yanqian/gistflow/pkg/errors"
)

// ExportFormat selects the downloadable artifact encoding.
type ExportFormat string

const (
	ExportText     ExportFormat = "text"
	ExportMarkdown ExportFormat = "markdown"
	ExportHTML     ExportFormat = "html"
)

const exportBaseName = "exam-study-summary"

// HTMLRenderer turns markdown into an HTML document.
type HTMLRenderer interface {
	Render(title, markdown string) (string, error)
}

// ExportRequest asks for a downloadable copy of a result.
type ExportRequest struct {
	Result SummaryResult `json:"result"`
	Topic  string        `json:"topic,omitempty"`
	Format ExportFormat  `json:"format,omitempty"`
}

// Artifact is a file offered for download.
type Artifact struct {
	Filename    string
	ContentType string
	Body        []byte
}

// StudySheet concatenates summary, key terms and exam tips under fixed banners.
func StudySheet(result SummaryResult) string {
	var b strings.Builder
	writeBanner(&b, "SUMMARY", result.Summary)
	writeBanner(&b, "KEY TERMS", result.KeyTerms)
	writeBanner(&b, "EXAM TIPS", result.QuickReference)
	return b.String()
}

func writeBanner(b *strings.Builder, title, body string) {
	if b.Len() > 0 {
		b.WriteString("\n")
	}
	b.WriteString("=== ")
	b.WriteString(title)
	b.WriteString(" ===\n")
	b.WriteString(strings.TrimSpace(body))
	b.WriteString("\n")
}

// Markdown re-assembles every non-empty section under its canonical heading.
func Markdown(topic string, result SummaryResult) string {
	var b strings.Builder
	if topic = strings.TrimSpace(topic); topic != "" {
		fmt.Fprintf(&b, "# %s\n\n", topic)
	}
	section := func(id SectionID, body string) {
		body = strings.TrimSpace(body)
		if body == "" {
			return
		}
		fmt.Fprintf(&b, "%s\n\n%s\n\n", Heading(id), body)
	}

	section(SectionSummary, result.Summary)
	section(SectionKeyTerms, result.KeyTerms)
	section(SectionConceptHierarchy, result.ConceptHierarchy)
	if len(result.Diagrams) > 0 {
		var d strings.Builder
		for i, diagram := range result.Diagrams {
			if i > 0 {
				d.WriteString("\n\n")
			}
			lang := ""
			if diagram.Type == DiagramMermaid {
				lang = "mermaid"
			}
			fmt.Fprintf(&d, "```%s\n%s\n```", lang, diagram.Content)
		}
		section(SectionDiagrams, d.String())
	}
	section(SectionExamples, result.Examples)
	if len(result.PracticeQuestions) > 0 {
		var q strings.Builder
		for i, question := range result.PracticeQuestions {
			fmt.Fprintf(&q, "%d. %s\n", i+1, question)
		}
		section(SectionPracticeQuestions, q.String())
	}
	section(SectionQuickReference, result.QuickReference)
	if len(result.CommonMistakes) > 0 {
		var m strings.Builder
		for _, mistake := range result.CommonMistakes {
			fmt.Fprintf(&m, "- %s\n", mistake)
		}
		section(SectionCommonMistakes, m.String())
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}

// ParseExportFormat normalizes a format name. An empty name means text.
func ParseExportFormat(name string) (ExportFormat, error) {
	switch format := ExportFormat(strings.ToLower(strings.TrimSpace(name))); format {
	case "":
		return ExportText, nil
	case ExportText, ExportMarkdown, ExportHTML:
		return format, nil
	default:
		return "", apperrors.Wrap(CodeInvalidInput, fmt.Sprintf("unsupported export format %q", name), nil)
	}
}

// BuildArtifact encodes a result in the requested format. The HTML renderer
// is only consulted for ExportHTML.
func BuildArtifact(req ExportRequest, renderer HTMLRenderer) (Artifact, error) {
	format, err := ParseExportFormat(string(req.Format))
	if err != nil {
		return Artifact{}, err
	}
	result := req.Result.Normalize()
	switch format {
	case ExportText:
		return Artifact{
			Filename:    exportBaseName + ".txt",
			ContentType: "text/plain; charset=utf-8",
			Body:        []byte(StudySheet(result)),
		}, nil
	case ExportMarkdown:
		return Artifact{
			Filename:    exportBaseName + ".md",
			ContentType: "text/markdown; charset=utf-8",
			Body:        []byte(Markdown(req.Topic, result)),
		}, nil
	case ExportHTML:
		if renderer == nil {
			return Artifact{}, apperrors.Wrap(CodeInvalidInput, "html export is not available", nil)
		}
		html, err := renderer.Render(req.Topic, Markdown(req.Topic, result))
		if err != nil {
			return Artifact{}, apperrors.Wrap(CodeExportFailed, "failed to render html export", err)
		}
		return Artifact{
			Filename:    exportBaseName + ".html",
			ContentType: "text/html; charset=utf-8",
			Body:        []byte(html),
		}, nil
	default:
		return Artifact{}, apperrors.Wrap(CodeInvalidInput, fmt.Sprintf("unsupported export format %q", req.Format), nil)
	}
}
