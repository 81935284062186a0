package core

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidate(t *testing.T) {
	longReply := RouteLongReply.Constraints
	topic := RouteTopic.Constraints

	tests := []struct {
		name     string
		text     string
		original string
		c        Constraints
		reason   RejectionReason
	}{
		{"empty", "   ", "gm", longReply, RejectEmpty},
		{"too short", "gm!", "hello", longReply, RejectTooShort},
		{"echo", "lol gm fam hows everyone doing today", "gm fam hows everyone doing", longReply, RejectEcho},
		{"echo of expanded contraction", "honestly it is not over yet for us all", "it's not over", longReply, RejectEcho},
		{"too many words", "one two three four five six seven eight nine ten eleven twelve thirteen fourteen fifteen sixteen", "x y", longReply, RejectTooManyWords},
		{"forbidden word", "That SOUNDS like a great plan for the whole week", "x y", longReply, RejectForbiddenWord},
		{"question", "Is everyone ready for the launch this week friends?", "x y", longReply, RejectQuestion},
		{"comma", "Builders ship, everyone else waits", "", topic, RejectForbiddenPunctuation},
		{"topic question", "Who is shipping something new this week?", "", topic, RejectQuestion},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Validate(tt.text, tt.original, tt.c)
			assert.False(t, res.Accepted)
			assert.Equal(t, tt.reason, res.RejectionReason)
		})
	}
}

func TestValidate_Accepts(t *testing.T) {
	res := Validate("  Morning fam, hope the week starts strong for everyone here  ", "gm fam hows everyone doing", RouteLongReply.Constraints)
	assert.True(t, res.Accepted)
	assert.Empty(t, res.RejectionReason)
	assert.Equal(t, "Morning fam, hope the week starts strong for everyone here", res.Text)
}

func TestValidate_WordLimitBoundary(t *testing.T) {
	c := Constraints{MaxWords: 12}
	twelve := strings.TrimSpace(strings.Repeat("word ", 12))
	thirteen := twelve + " word"

	assert.True(t, Validate(twelve, "", c).Accepted)
	res := Validate(thirteen, "", c)
	assert.False(t, res.Accepted)
	assert.Equal(t, RejectTooManyWords, res.RejectionReason)
}

func TestValidate_ForbiddenWordIsWholeWord(t *testing.T) {
	c := Constraints{ForbiddenWords: soundWords}
	assert.True(t, Validate("the soundtrack of this launch is wild", "", c).Accepted)
	assert.False(t, Validate("that sounded wild to me honestly", "", c).Accepted)
}

func TestValidate_EchoIgnoresSurroundingCase(t *testing.T) {
	c := Constraints{RejectEcho: true}
	res := Validate("WOW totally agree: wagmi friends FOREVER", "wagmi friends", c)
	assert.Equal(t, RejectEcho, res.RejectionReason)

	// no echo rule, no echo rejection
	assert.True(t, Validate("wagmi friends forever", "wagmi friends", Constraints{}).Accepted)
}

func TestValidate_EmptyOriginalNeverEchoes(t *testing.T) {
	assert.True(t, Validate("something long enough", "   ", Constraints{RejectEcho: true}).Accepted)
}

func TestRejectionError(t *testing.T) {
	err := &RejectionError{Route: "generate", Reason: RejectEcho}
	assert.Equal(t, "generated generate output rejected: echo", err.Error())
}
