package aiqueue

import (
	"strings"

	"github.com/yologdev/yocore/internal/knowledge"
	"github.com/yologdev/yocore/internal/model"
)

// renderTranscript joins a session's messages into the plain-text form fed
// to the AI CLI, then applies tail-preferred truncation so the most recent
// context survives the 150,000-char cap.
func renderTranscript(messages []model.Message) string {
	var b strings.Builder
	for _, m := range messages {
		b.WriteString(string(m.Role))
		b.WriteString(": ")
		b.WriteString(m.SearchContent)
		b.WriteString("\n\n")
	}
	return knowledge.TruncateForExtraction(b.String())
}
