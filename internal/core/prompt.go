package core

import (
	"fmt"
	"strings"

	"github.com/kiraleos/reply-engine/internal/store"
	"github.com/kiraleos/reply-engine/internal/text"
)

const (
	promptHeaderTemplate = "You are %s, writing as a regular member of %s.\n%s\n\n"

	languageRules = "Language:\n" +
		"- Reply in the same language as the new message.\n" +
		"- Never switch to another language unless a translation is explicitly requested.\n\n"

	styleRulesTemplate = "Style:\n" +
		"- Keep it casual and human, never robotic, formal or salesy.\n" +
		"- %s\n" +
		"- Never use the em dash (—) and never use a hyphen to join or separate words.\n" +
		"- Never use apostrophe contractions, write the full form (do not, I am, it is).\n"

	noHistoryPlaceholder = "(no history yet)"

	promptFooter = "Return only the text itself, without quotes or explanations."
)

// PromptContext is everything one prompt is rendered from. It lives for a
// single request.
type PromptContext struct {
	Room       Room
	NewMessage string
	Comments   []store.Comment
	History    []store.HistoryEntry
	Hint       string
}

// BuildPrompt renders the instruction prompt for route. The output depends only
// on its arguments.
func BuildPrompt(route Route, pc PromptContext) string {
	var b strings.Builder

	fmt.Fprintf(&b, promptHeaderTemplate, pc.Room.Persona, pc.Room.Name, route.Task)
	b.WriteString(languageRules)
	fmt.Fprintf(&b, styleRulesTemplate, route.LengthRule)
	for _, rule := range route.ExtraRules {
		b.WriteString("- " + rule + "\n")
	}
	if len(pc.Room.Vocabulary) > 0 {
		fmt.Fprintf(&b, "- Words this room likes to use: %s.\n", strings.Join(pc.Room.Vocabulary, ", "))
	}
	if route.AllowEmojis && len(pc.Room.Emojis) > 0 {
		fmt.Fprintf(&b, "- You may add at most one of these emojis: %s\n", strings.Join(pc.Room.Emojis, " "))
	} else {
		b.WriteString("- Do not use emojis.\n")
	}

	fmt.Fprintf(&b, "\n%s:\n", route.HistoryHeading)
	writeHistory(&b, pc.History)

	b.WriteString("\nNew message:\n")
	b.WriteString(text.Sanitize(pc.NewMessage))
	b.WriteString("\n")
	if len(pc.Comments) > 0 {
		b.WriteString("Replies already under it:\n")
		writeComments(&b, pc.Comments)
	}
	if hint := text.Sanitize(pc.Hint); hint != "" {
		fmt.Fprintf(&b, "Hint: %s\n", hint)
	}

	b.WriteString("\n" + promptFooter)
	return b.String()
}

func writeHistory(b *strings.Builder, history []store.HistoryEntry) {
	if len(history) == 0 {
		b.WriteString(noHistoryPlaceholder + "\n")
		return
	}
	for i, entry := range history {
		fmt.Fprintf(b, "Example %d:\n", i+1)
		fmt.Fprintf(b, "Post: %s\n", text.Sanitize(entry.Caption))
		writeComments(b, entry.Comments)
	}
}

func writeComments(b *strings.Builder, comments []store.Comment) {
	for _, c := range comments {
		fmt.Fprintf(b, "- %s: %s\n", text.Sanitize(c.Username), text.Sanitize(c.Reply))
	}
}
