package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kiraleos/reply-engine/internal/logger"
	"github.com/kiraleos/reply-engine/internal/metrics"
	"github.com/kiraleos/reply-engine/internal/store"
	"github.com/kiraleos/reply-engine/internal/text"
)

const (
	DefaultHistoryWindow = 5

	topicNewMessage = "Start a new conversation in the room."
)

// GenerateRequest carries the already validated fields of one /generate* call.
// Each route reads the subset it needs.
type GenerateRequest struct {
	RoomID   string
	Caption  string
	Comments []store.Comment
	Hint     string
	Examples []string
	Text     string
}

// Generation is the outcome of a successful pipeline run.
type Generation struct {
	Text     string
	Fallback bool
}

type GenerationService struct {
	history   store.HistoryStore
	rooms     *RoomRegistry
	completer Completer
	window    int
	metrics   *metrics.Metrics
	log       *zap.SugaredLogger
}

func NewGenerationService(history store.HistoryStore, rooms *RoomRegistry, completer Completer, window int, m *metrics.Metrics) *GenerationService {
	if window <= 0 {
		window = DefaultHistoryWindow
	}
	if rooms == nil {
		rooms = NewRoomRegistry()
	}
	if m == nil {
		m = metrics.New(nil)
	}
	return &GenerationService{
		history:   history,
		rooms:     rooms,
		completer: completer,
		window:    window,
		metrics:   m,
		log:       logger.NewLogger("generation"),
	}
}

// Generate runs route's pipeline: persist history, build the prompt, call the
// completion service once, normalize and validate. A rejected output surfaces
// as *RejectionError unless the route falls back; completion failures surface
// as *UpstreamError. Nothing is retried.
func (s *GenerationService) Generate(ctx context.Context, route Route, req GenerateRequest) (*Generation, error) {
	gen, err := s.generate(ctx, route, req)
	s.metrics.ObserveGeneration(route.Name, outcomeOf(gen, err))
	return gen, err
}

func (s *GenerationService) generate(ctx context.Context, route Route, req GenerateRequest) (*Generation, error) {
	room := s.rooms.Get(req.RoomID)
	pc := PromptContext{
		Room:       room,
		NewMessage: req.Caption,
		Comments:   req.Comments,
		Hint:       req.Hint,
	}
	original := req.Caption

	switch {
	case route.RecordsHistory:
		// the window is read before the append so the new post is not its own example
		recent, err := s.history.RecentHistory(req.RoomID, s.window)
		if err != nil {
			return nil, fmt.Errorf("failed to read history: %w", err)
		}
		pc.History = recent

		entry := store.HistoryEntry{Caption: req.Caption, Comments: req.Comments}
		if err := s.history.AppendHistory(req.RoomID, entry); err != nil {
			return nil, fmt.Errorf("failed to append history: %w", err)
		}
	case route.FallbackOnReject:
		pc.NewMessage = topicNewMessage
		pc.History = examplesAsHistory(req.Examples, s.window)
		original = req.Hint
	default:
		pc.NewMessage = req.Text
		original = req.Text
	}

	prompt := BuildPrompt(route, pc)
	s.log.Debugw("built prompt", "route", route.Name, "room", room.ID, "history", len(pc.History), "prompt_chars", len(prompt))

	// a started completion runs to completion even if the client goes away
	started := time.Now()
	raw, err := s.completer.Complete(context.WithoutCancel(ctx), prompt)
	s.metrics.ObserveCompletion(route.Name, started)
	if err != nil {
		return nil, err
	}

	result := Validate(Normalize(raw), original, route.Constraints)
	if result.Accepted {
		return &Generation{Text: result.Text}, nil
	}

	s.log.Infow("generated output rejected", "route", route.Name, "room", room.ID, "reason", result.RejectionReason, "text", result.Text)
	if route.FallbackOnReject {
		return &Generation{Text: room.FallbackTopic, Fallback: true}, nil
	}
	return nil, &RejectionError{Route: route.Name, Reason: result.RejectionReason, Text: result.Text}
}

// Normalize cleans raw model output before validation.
func Normalize(raw string) string {
	s := text.ExpandContractions(text.Sanitize(raw))
	return strings.Trim(s, "'‘’ ")
}

func examplesAsHistory(examples []string, limit int) []store.HistoryEntry {
	if len(examples) > limit {
		examples = examples[len(examples)-limit:]
	}
	out := make([]store.HistoryEntry, 0, len(examples))
	for _, ex := range examples {
		if strings.TrimSpace(ex) == "" {
			continue
		}
		out = append(out, store.HistoryEntry{Caption: ex})
	}
	return out
}

func outcomeOf(gen *Generation, err error) string {
	var rejected *RejectionError
	var upstream *UpstreamError
	switch {
	case err == nil && gen.Fallback:
		return metrics.OutcomeFallback
	case err == nil:
		return metrics.OutcomeAccepted
	case errors.As(err, &rejected):
		return metrics.OutcomeRejected
	case errors.As(err, &upstream):
		return metrics.OutcomeUpstream
	default:
		return metrics.OutcomeInternal
	}
}
