package studyguide

import "strings"

// StyleID selects a StyleProfile.
type StyleID string

const (
	StyleConcise     StyleID = "concise"
	StyleDetailed    StyleID = "detailed"
	StyleKeyConcepts StyleID = "key-concepts"
	StyleExamFocus   StyleID = "exam-focus"
)

// Template placeholders. They are replaced literally.
const (
	placeholderNotes     = "{studyNotes}"
	placeholderTopicName = "{Topic Name}"
	placeholderTopic     = "{Topic}"
)

// StyleProfile controls prompt wording, generation parameters and the
// sections a completion is expected to contain.
type StyleProfile struct {
	ID            StyleID
	Label         string
	SystemMessage string
	Template      string
	Sections      []SectionID
	Temperature   float32
	MaxTokens     int
	TopP          float32
}

// StyleInfo is the public catalogue entry for a style.
type StyleInfo struct {
	ID          StyleID     `json:"id"`
	Label       string      `json:"label"`
	Sections    []SectionID `json:"sections"`
	Temperature float32     `json:"temperature"`
	MaxTokens   int         `json:"maxTokens"`
}

type sectionPrompt struct {
	id          SectionID
	instruction string
}

var styleProfiles = []StyleProfile{
	newProfile(StyleConcise, "Quick Review",
		"You are a helpful assistant that creates concise, review-friendly study summaries.",
		"Summarize the following study notes about {Topic Name} in a concise format.",
		0.3, 1024, 0.8,
		sectionPrompt{SectionSummary, "A concise overview of the key concepts in 3-5 sentences."},
		sectionPrompt{SectionKeyTerms, "- [term]: [definition]\n- [term]: [definition]"},
		sectionPrompt{SectionQuickReference, "- [exam tip]\n- [exam tip]"},
	),
	newProfile(StyleDetailed, "Comprehensive Study",
		"You are an expert academic assistant that creates comprehensive study guides.",
		"Create a detailed study guide on {Topic Name} from these notes.",
		0.5, 2048, 0.9,
		sectionPrompt{SectionSummary, "A thorough overview of the material."},
		sectionPrompt{SectionKeyTerms, "- [term]: [detailed definition]"},
		sectionPrompt{SectionConceptHierarchy, "An indented bullet outline showing how the concepts relate."},
		sectionPrompt{SectionDiagrams, "One mermaid diagram of the main relationships, inside a ```mermaid fenced block."},
		sectionPrompt{SectionExamples, "Worked examples that apply the concepts."},
		sectionPrompt{SectionPracticeQuestions, "1. [question]\n2. [question]\n3. [question]"},
		sectionPrompt{SectionQuickReference, "- [fact, formula or rule to memorize]"},
	),
	newProfile(StyleKeyConcepts, "Key Concepts Only",
		"You are a helpful assistant that extracts and explains key concepts.",
		"Extract ONLY the key concepts about {Topic} from these notes.",
		0.4, 1536, 0.8,
		sectionPrompt{SectionSummary, "A brief overview of the concepts."},
		sectionPrompt{SectionKeyTerms, "- [term]: [precise definition]"},
		sectionPrompt{SectionConceptHierarchy, "A short outline grouping the concepts."},
		sectionPrompt{SectionQuickReference, "- [why each concept matters]"},
	),
	newProfile(StyleExamFocus, "Exam-Focused",
		"You are an exam preparation specialist that creates targeted study guides.",
		"Create an exam-focused guide on {Topic Name} from these notes.",
		0.3, 2048, 0.8,
		sectionPrompt{SectionSummary, "The exam-relevant highlights."},
		sectionPrompt{SectionKeyTerms, "- [term]: [exam-focused definition]"},
		sectionPrompt{SectionPracticeQuestions, "1. [likely exam question]\n2. [likely exam question]\n3. [likely exam question]"},
		sectionPrompt{SectionCommonMistakes, "- [common mistake and how to avoid it]"},
		sectionPrompt{SectionQuickReference, "- [predicted question types]\n- [answer strategies]"},
	),
}

func newProfile(id StyleID, label, system, intro string, temperature float32, maxTokens int, topP float32, sections ...sectionPrompt) StyleProfile {
	var b strings.Builder
	b.WriteString(intro)
	b.WriteString("\n\nStudy notes:\n")
	b.WriteString(placeholderNotes)
	b.WriteString("\n\nRespond in markdown using exactly these level-two headings, in this order, and nothing before the first heading:\n")
	ids := make([]SectionID, 0, len(sections))
	for _, section := range sections {
		b.WriteString("\n")
		b.WriteString(Heading(section.id))
		b.WriteString("\n")
		b.WriteString(section.instruction)
		b.WriteString("\n")
		ids = append(ids, section.id)
	}
	return StyleProfile{
		ID:            id,
		Label:         label,
		SystemMessage: system,
		Template:      b.String(),
		Sections:      ids,
		Temperature:   temperature,
		MaxTokens:     maxTokens,
		TopP:          topP,
	}
}

// LookupStyle returns the profile registered under id.
func LookupStyle(id StyleID) (StyleProfile, bool) {
	for _, profile := range styleProfiles {
		if profile.ID == id {
			return profile, true
		}
	}
	return StyleProfile{}, false
}

// ResolveStyle returns the profile for id, falling back to concise.
func ResolveStyle(id StyleID) StyleProfile {
	if profile, ok := LookupStyle(StyleID(strings.TrimSpace(string(id)))); ok {
		return profile
	}
	profile, _ := LookupStyle(StyleConcise)
	return profile
}

// Styles lists every profile in display order.
func Styles() []StyleProfile {
	out := make([]StyleProfile, len(styleProfiles))
	copy(out, styleProfiles)
	return out
}

// Info converts a profile into its catalogue entry.
func (p StyleProfile) Info() StyleInfo {
	sections := make([]SectionID, len(p.Sections))
	copy(sections, p.Sections)
	return StyleInfo{
		ID:          p.ID,
		Label:       p.Label,
		Sections:    sections,
		Temperature: p.Temperature,
		MaxTokens:   p.MaxTokens,
	}
}
