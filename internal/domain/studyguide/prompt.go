package studyguide

import (
	"regexp"
	"strings"

	apperrors "github.com/yanqian/gistflow/pkg/errors"
)

// DefaultTopic is used when the notes do not open with a recognizable title.
const DefaultTopic = "Study Topic"

var topicPattern = regexp.MustCompile(`^#*[ \t]*([A-Za-z][A-Za-z ]*?)[ \t]*(?:[.:\n]|$)`)

// Prompt is the rendered request for the chat collaborator.
type Prompt struct {
	Style         StyleProfile
	Topic         string
	SystemMessage string
	UserPrompt    string
}

// BuildPrompt renders the style template for the given notes. Unknown styles
// fall back to concise.
func BuildPrompt(notes string, styleID StyleID) (Prompt, error) {
	if strings.TrimSpace(notes) == "" {
		return Prompt{}, apperrors.Wrap(CodeInvalidInput, "study notes cannot be empty", nil)
	}

	profile := ResolveStyle(styleID)
	topic := ExtractTopic(notes)

	replacer := strings.NewReplacer(
		placeholderNotes, notes,
		placeholderTopicName, topic,
		placeholderTopic, topic,
	)

	return Prompt{
		Style:         profile,
		Topic:         topic,
		SystemMessage: profile.SystemMessage,
		UserPrompt:    replacer.Replace(profile.Template),
	}, nil
}

// ExtractTopic finds a heading-like title on the first non-blank line.
func ExtractTopic(notes string) string {
	for _, line := range strings.Split(notes, "\n") {
		line = strings.TrimSpace(strings.TrimSuffix(line, "\r"))
		if line == "" {
			continue
		}
		match := topicPattern.FindStringSubmatch(line)
		if match == nil {
			return DefaultTopic
		}
		topic := strings.Join(strings.Fields(match[1]), " ")
		if topic == "" {
			return DefaultTopic
		}
		return topic
	}
	return DefaultTopic
}
