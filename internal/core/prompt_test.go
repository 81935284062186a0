package core

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kiraleos/reply-engine/internal/store"
)

func TestBuildPrompt_NoHistoryPlaceholder(t *testing.T) {
	rooms := NewRoomRegistry()
	prompt := BuildPrompt(RouteLongReply, PromptContext{
		Room:       rooms.Get("rialo"),
		NewMessage: "gm fam hows everyone doing",
	})

	assert.Contains(t, prompt, "(no history yet)")
	assert.Contains(t, prompt, "member of Rialo")
	assert.Contains(t, prompt, "same language as the new message")
	assert.Contains(t, prompt, "8 to 15 words")
	assert.Contains(t, prompt, "em dash")
	assert.Contains(t, prompt, "apostrophe contractions")
	assert.Contains(t, prompt, "🔥")
	assert.True(t, strings.Contains(prompt, "New message:\ngm fam hows everyone doing\n"))
}

func TestBuildPrompt_RendersSanitizedHistory(t *testing.T) {
	history := []store.HistoryEntry{
		{Caption: "first \"post\"\nwith newline", Comments: []store.Comment{{Username: "bob", Reply: "nice\n\nwork"}}},
		{Caption: "second post"},
	}
	prompt := BuildPrompt(RouteDiscord, PromptContext{
		Room:       NewRoomRegistry().Get("unknown-room"),
		NewMessage: "new one",
		Comments:   []store.Comment{{Username: "amy", Reply: "already here"}},
		History:    history,
	})

	assert.NotContains(t, prompt, "(no history yet)")
	assert.Contains(t, prompt, "Example 1:\nPost: first post with newline\n- bob: nice work\n")
	assert.Contains(t, prompt, "Example 2:\nPost: second post\n")
	assert.Contains(t, prompt, "Replies already under it:\n- amy: already here\n")
	assert.Contains(t, prompt, "member of unknown-room")
	assert.Contains(t, prompt, "Max 12 words, one sentence.")
}

func TestBuildPrompt_Deterministic(t *testing.T) {
	pc := PromptContext{
		Room:       NewRoomRegistry().Get("rialo"),
		NewMessage: "hello",
		History:    []store.HistoryEntry{{Caption: "a"}},
		Hint:       "launch week",
	}
	assert.Equal(t, BuildPrompt(RouteTopic, pc), BuildPrompt(RouteTopic, pc))
	assert.Contains(t, BuildPrompt(RouteTopic, pc), "Hint: launch week")
}

func TestBuildPrompt_EmojisOnlyWhenRouteAllows(t *testing.T) {
	pc := PromptContext{Room: NewRoomRegistry().Get("rialo"), NewMessage: "hola amigos"}

	assert.Contains(t, BuildPrompt(RouteTranslate, pc), "Do not use emojis.")
	assert.NotContains(t, BuildPrompt(RouteTranslate, pc), "🔥")

	noEmojiRoom := NewRoomRegistry().Get(DefaultRoomID)
	pc.Room = noEmojiRoom
	assert.Contains(t, BuildPrompt(RouteLongReply, pc), "Do not use emojis.")
	assert.NotContains(t, BuildPrompt(RouteLongReply, pc), "Words this room likes")
}
