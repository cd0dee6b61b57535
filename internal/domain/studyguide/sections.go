package studyguide

import "strings"

// SectionID names a logical part of a study summary.
type SectionID string

const (
	SectionSummary           SectionID = "summary"
	SectionKeyTerms          SectionID = "keyTerms"
	SectionConceptHierarchy  SectionID = "conceptHierarchy"
	SectionDiagrams          SectionID = "diagrams"
	SectionExamples          SectionID = "examples"
	SectionPracticeQuestions SectionID = "practiceQuestions"
	SectionQuickReference    SectionID = "quickReference"
	SectionCommonMistakes    SectionID = "commonMistakes"
)

// sectionSpec ties a section to the heading prompts ask for and the heading
// texts the segmenter accepts for it.
type sectionSpec struct {
	ID        SectionID
	Canonical string
	Aliases   []string
}

// registry is consulted in order; summary stays last because "Summary" is a
// common qualifier in other headings.
var registry = []sectionSpec{
	{ID: SectionKeyTerms, Canonical: "Key Terms", Aliases: []string{"Key Terms"}},
	{ID: SectionConceptHierarchy, Canonical: "Concept Hierarchy", Aliases: []string{"Concept Hierarchy", "Concept Map"}},
	{ID: SectionDiagrams, Canonical: "Visual Diagrams", Aliases: []string{"Diagram"}},
	{ID: SectionExamples, Canonical: "Examples", Aliases: []string{"Examples"}},
	{ID: SectionPracticeQuestions, Canonical: "Practice Questions", Aliases: []string{"Practice Questions", "Study Questions"}},
	{ID: SectionQuickReference, Canonical: "Quick Reference", Aliases: []string{"Quick Reference", "Formula Sheet", "Exam Tips"}},
	{ID: SectionCommonMistakes, Canonical: "Common Mistakes", Aliases: []string{"Common Mistakes"}},
	{ID: SectionSummary, Canonical: "Summary", Aliases: []string{"Summary"}},
}

// Heading returns the markdown heading line prompts use for a section.
func Heading(id SectionID) string {
	for _, entry := range registry {
		if entry.ID == id {
			return "## " + entry.Canonical
		}
	}
	return ""
}

// Title returns the canonical heading text without the markdown marker.
func Title(id SectionID) string {
	return strings.TrimPrefix(Heading(id), "## ")
}

// Lookup resolves the text of a level two heading to a section.
func Lookup(headingText string) (SectionID, bool) {
	for _, entry := range registry {
		for _, alias := range entry.Aliases {
			if strings.Contains(headingText, alias) {
				return entry.ID, true
			}
		}
	}
	return "", false
}
