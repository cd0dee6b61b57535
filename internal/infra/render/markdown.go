package render

import (
	"bytes"
	"fmt"
	"html/template"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	htmlrenderer "github.com/yuin/goldmark/renderer/html"
)

const mermaidScript = `<script type="module">import mermaid from "https://cdn.jsdelivr.net/npm/mermaid@10/dist/mermaid.esm.min.mjs"; mermaid.initialize({ startOnLoad: true, theme: "default" });</script>`

var mermaidCodeRegex = regexp.MustCompile(`(?is)<pre><code class="language-mermaid">([\s\S]*?)</code></pre>`)

// HTMLRenderer converts study guide markdown into a standalone HTML page.
// Raw HTML coming from the model is dropped by goldmark's safe mode.
type HTMLRenderer struct {
	engine goldmark.Markdown
}

// NewHTMLRenderer builds a GFM renderer.
func NewHTMLRenderer() *HTMLRenderer {
	return &HTMLRenderer{
		engine: goldmark.New(
			goldmark.WithExtensions(
				extension.GFM,
				extension.Typographer,
			),
			goldmark.WithRendererOptions(
				htmlrenderer.WithXHTML(),
			),
		),
	}
}

// Render converts markdown to an HTML document titled title. Mermaid fences
// become <pre class="mermaid"> blocks rendered client side.
func (r *HTMLRenderer) Render(title, markdown string) (string, error) {
	var out bytes.Buffer
	if err := r.engine.Convert([]byte(markdown), &out); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	body := mermaidCodeRegex.ReplaceAllString(out.String(), `<pre class="mermaid">$1</pre>`)

	title = strings.TrimSpace(title)
	if title == "" {
		title = "Study Summary"
	}

	var b strings.Builder
	b.Grow(len(body) + 512)
	b.WriteString("<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n")
	b.WriteString("<meta charset=\"UTF-8\" />\n")
	b.WriteString("<meta name=\"viewport\" content=\"width=device-width, initial-scale=1.0\" />\n")
	b.WriteString("<title>")
	b.WriteString(template.HTMLEscapeString(title))
	b.WriteString("</title>\n</head>\n<body>\n<article>\n")
	b.WriteString(body)
	b.WriteString("</article>\n")
	if strings.Contains(body, `<pre class="mermaid">`) {
		b.WriteString(mermaidScript)
		b.WriteString("\n")
	}
	b.WriteString("</body>\n</html>\n")
	return b.String(), nil
}
