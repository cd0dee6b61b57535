package studyguide

import (
	"regexp"
	"strings"
)

var (
	headingPattern  = regexp.MustCompile(`^ {0,3}##(?:[ \t]+(.*?))?[ \t#]*$`)
	fencePattern    = regexp.MustCompile("^ {0,3}(`{3,})[ \t]*([A-Za-z0-9_+.-]*)")
	questionPattern = regexp.MustCompile(`^\d+\.`)
)

type line struct {
	text  string
	start int // byte offset of the first character
	end   int // byte offset just past the line terminator
}

type heading struct {
	title string
	index int // line index
}

type fence struct {
	lang  string
	open  int
	close int
}

// Segment splits a completion into the sections of a SummaryResult. It never
// fails: text without recognizable structure ends up in Summary.
func Segment(raw string) (result SummaryResult) {
	defer func() {
		if r := recover(); r != nil {
			result = fallbackResult(raw)
		}
	}()

	lines := splitLines(raw)
	fences := pairFences(lines)
	headings := findHeadings(lines, fences)

	bodies := make(map[SectionID]string, len(registry))
	for i, h := range headings {
		id, ok := Lookup(h.title)
		if !ok {
			continue
		}
		if _, seen := bodies[id]; seen {
			continue
		}
		end := len(raw)
		if i+1 < len(headings) {
			end = lines[headings[i+1].index].start
		}
		bodies[id] = strings.TrimSpace(raw[lines[h.index].end:end])
	}

	result.Summary = bodies[SectionSummary]
	if result.Summary == "" {
		switch {
		case len(headings) == 0:
			result.Summary = raw
		default:
			result.Summary = strings.TrimSpace(raw[:lines[headings[0].index].start])
		}
	}
	result.KeyTerms = bodies[SectionKeyTerms]
	result.ConceptHierarchy = bodies[SectionConceptHierarchy]
	result.Examples = bodies[SectionExamples]
	result.QuickReference = bodies[SectionQuickReference]
	result.Diagrams = extractDiagrams(raw, lines, fences)
	result.PracticeQuestions = extractNumbered(bodies[SectionPracticeQuestions])
	result.CommonMistakes = extractBullets(bodies[SectionCommonMistakes])

	result = result.Normalize()
	if result.Summary == "" && result.KeyTerms == "" {
		result.Summary = raw
	}
	return result
}

func fallbackResult(raw string) SummaryResult {
	return SummaryResult{Summary: raw}.Normalize()
}

func splitLines(raw string) []line {
	var out []line
	for start := 0; start < len(raw); {
		end := strings.IndexByte(raw[start:], '\n')
		next := len(raw)
		if end >= 0 {
			next = start + end + 1
		}
		text := strings.TrimSuffix(strings.TrimSuffix(raw[start:next], "\n"), "\r")
		out = append(out, line{text: text, start: start, end: next})
		start = next
	}
	return out
}

// pairFences matches fence markers in document order. A fence closes on a
// bare backtick run at least as long as its opener. A trailing opener without
// a closing marker is not a fence.
func pairFences(lines []line) []fence {
	var (
		out   []fence
		open  = -1
		lang  string
		ticks int
	)
	for i, l := range lines {
		match := fencePattern.FindStringSubmatch(l.text)
		if match == nil {
			continue
		}
		if open < 0 {
			open = i
			ticks = len(match[1])
			lang = match[2]
			continue
		}
		// a closing marker carries no info string
		marker := strings.TrimSpace(l.text)
		if len(marker) < ticks || strings.Trim(marker, "`") != "" {
			continue
		}
		out = append(out, fence{lang: lang, open: open, close: i})
		open = -1
		lang = ""
	}
	return out
}

func findHeadings(lines []line, fences []fence) []heading {
	var (
		out []heading
		f   int
	)
	for i, l := range lines {
		for f < len(fences) && fences[f].close < i {
			f++
		}
		if f < len(fences) && fences[f].open <= i && i <= fences[f].close {
			continue
		}
		match := headingPattern.FindStringSubmatch(l.text)
		if match == nil {
			continue
		}
		out = append(out, heading{title: strings.TrimSpace(match[1]), index: i})
	}
	return out
}

func extractDiagrams(raw string, lines []line, fences []fence) []Diagram {
	out := make([]Diagram, 0, len(fences))
	for _, f := range fences {
		body := strings.TrimSpace(raw[lines[f.open].end:lines[f.close].start])
		if body == "" {
			continue
		}
		kind := DiagramCode
		if strings.EqualFold(f.lang, "mermaid") {
			kind = DiagramMermaid
		}
		out = append(out, Diagram{Type: kind, Content: body})
	}
	return out
}

func extractNumbered(section string) []string {
	var out []string
	for _, l := range strings.Split(section, "\n") {
		l = strings.TrimSpace(l)
		loc := questionPattern.FindStringIndex(l)
		if loc == nil {
			continue
		}
		if q := strings.TrimSpace(l[loc[1]:]); q != "" {
			out = append(out, q)
		}
	}
	return out
}

func extractBullets(section string) []string {
	var out []string
	for _, l := range strings.Split(section, "\n") {
		l = strings.TrimSpace(l)
		if !strings.HasPrefix(l, "-") {
			continue
		}
		if item := strings.TrimSpace(strings.TrimPrefix(l, "-")); item != "" {
			out = append(out, item)
		}
	}
	return out
}
