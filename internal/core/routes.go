package core

// Route is the per-endpoint configuration the generic generation pipeline runs
// with. Every /generate* endpoint is one of these records.
type Route struct {
	Name           string
	Task           string
	LengthRule     string
	ExtraRules     []string
	HistoryHeading string
	Constraints    Constraints
	// RecordsHistory appends {caption, comments} to the room log before the
	// completion call.
	RecordsHistory bool
	// FallbackOnReject answers with the room's fallback topic instead of an
	// error when the output is rejected.
	FallbackOnReject bool
	AllowEmojis      bool
}

var soundWords = []string{"sound", "sounds", "sounding", "sounded"}

var (
	RouteLongReply = Route{
		Name:           "generate",
		Task:           "Write one reply to the new post below, the way a real member would answer it in the comments.",
		LengthRule:     "Write exactly one sentence of 8 to 15 words.",
		ExtraRules:     []string{"Do not ask questions.", "Never use the words sound, sounds, sounding or sounded."},
		HistoryHeading: "Earlier posts in this room and how members replied",
		Constraints: Constraints{
			MaxWords:       15,
			ForbiddenWords: soundWords,
			ForbidQuestion: true,
			RejectEcho:     true,
		},
		RecordsHistory: true,
		AllowEmojis:    true,
	}

	RouteQuote = Route{
		Name:           "generate-quote",
		Task:           "Write the text of a quote post that shares the new post below with your own take on it.",
		LengthRule:     "Write one sentence of at most 20 words.",
		ExtraRules:     []string{"Never use the words sound, sounds, sounding or sounded."},
		HistoryHeading: "Earlier posts in this room and how members replied",
		Constraints: Constraints{
			MaxWords:       20,
			ForbiddenWords: soundWords,
			RejectEcho:     true,
		},
		RecordsHistory: true,
		AllowEmojis:    true,
	}

	RouteDiscord = Route{
		Name:           "generate-discord",
		Task:           "Write one chat message answering the new message below in the community Discord.",
		LengthRule:     "Max 12 words, one sentence.",
		ExtraRules:     []string{"Do not ask questions.", "Never use the words sound, sounds, sounding or sounded."},
		HistoryHeading: "Earlier messages in this room and how members replied",
		Constraints: Constraints{
			MaxWords:       12,
			ForbiddenWords: soundWords,
			ForbidQuestion: true,
			RejectEcho:     true,
		},
		RecordsHistory: true,
		AllowEmojis:    true,
	}

	RouteQuick = Route{
		Name:           "generate-quick",
		Task:           "Write a quick reply to the new post below.",
		LengthRule:     "Max 12 words, one sentence.",
		ExtraRules:     []string{"Do not ask questions."},
		HistoryHeading: "Earlier posts in this room and how members replied",
		Constraints: Constraints{
			MaxWords:       12,
			ForbidQuestion: true,
			RejectEcho:     true,
		},
		RecordsHistory: true,
		AllowEmojis:    true,
	}

	RouteTopic = Route{
		Name:           "generate-topic",
		Task:           "Write one new conversation starter for the room chat. Use the hint below when one is given.",
		LengthRule:     "Max 12 words, one line.",
		ExtraRules:     []string{"Do not use commas.", "Do not ask a question, make a statement people want to answer."},
		HistoryHeading: "Conversation starters that worked before",
		Constraints: Constraints{
			MaxWords:             12,
			ForbiddenPunctuation: []string{","},
			ForbidQuestion:       true,
		},
		FallbackOnReject: true,
	}

	RouteParaphrase = Route{
		Name:           "generate-parafrase",
		Task:           "Rewrite the message below with different words while keeping its meaning and tone.",
		LengthRule:     "Keep about the same length as the original.",
		HistoryHeading: "Earlier examples",
		Constraints: Constraints{
			RejectEcho: true,
		},
	}

	RouteTranslate = Route{
		Name:           "generate-translate",
		Task:           "Translate the message below into natural, casual English. This is an explicit translation request.",
		LengthRule:     "Keep the same meaning and roughly the same length.",
		HistoryHeading: "Earlier examples",
	}
)
