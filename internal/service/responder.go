package service

import (
	"context"
	"strings"
	"time"

	"arc-onboarding/internal/logger"
	"arc-onboarding/internal/metrics"
	"arc-onboarding/internal/onboarding"
)

// FallbackReply is sent whenever the language model cannot answer.
const FallbackReply = "I'm having a little trouble connecting right now. Let me get back to you in a moment."

// Completer runs one stateless completion: a system block plus a single user message.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// Responder answers applicant questions through the language model.
type Responder struct {
	completer Completer
	timeout   time.Duration
}

func NewResponder(completer Completer, timeout time.Duration) *Responder {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Responder{completer: completer, timeout: timeout}
}

// Respond never fails. The guide marker is stripped from the text and reported as AttachGuide.
func (r *Responder) Respond(ctx context.Context, p onboarding.Prompt) onboarding.Reply {
	system, err := buildSystemPrompt(p.State, p.FirstName, p.AssignedLink)
	if err != nil {
		logger.Error().Err(err).Msg("build system prompt")
		return onboarding.Reply{Text: FallbackReply}
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	answer, err := r.completer.Complete(ctx, system, p.Message)
	metrics.ObserveCompletion(err, time.Since(start))
	if err != nil {
		logger.Error().Err(err).Str("state", p.State.String()).Msg("language model completion failed")
		return onboarding.Reply{Text: FallbackReply}
	}

	return parseAnswer(answer)
}

func parseAnswer(answer string) onboarding.Reply {
	reply := onboarding.Reply{Text: strings.TrimSpace(answer)}
	if strings.Contains(reply.Text, GuideMarker) {
		reply.AttachGuide = true
		reply.Text = strings.TrimSpace(strings.ReplaceAll(reply.Text, GuideMarker, ""))
	}
	if reply.Text == "" && !reply.AttachGuide {
		reply.Text = FallbackReply
	}
	return reply
}
