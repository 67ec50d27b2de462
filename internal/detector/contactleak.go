package detector

import (
	"context"
	"fmt"
	"regexp"

	"github.com/skylane/sentinel/internal/event"
	"github.com/skylane/sentinel/internal/finding"
)

var (
	phonePattern = regexp.MustCompile(`\+?\d[\d().\s-]{6,}\d`)
	emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
)

// ContactLeak flags messages that carry phone numbers or email addresses.
// Contact details in messages bypass the platform's intermediation, so a
// single hit is enough to flag. Severity is capped at high and the output
// is a review task rather than a block, which keeps false positives cheap.
type ContactLeak struct {
	ExcerptLen int
}

// NewContactLeak creates the detector with the given excerpt length
// (characters of message content included in finding details).
func NewContactLeak(excerptLen int) *ContactLeak {
	if excerptLen <= 0 {
		excerptLen = 140
	}
	return &ContactLeak{ExcerptLen: excerptLen}
}

func (c *ContactLeak) Name() string { return "contact_leak" }

func (c *ContactLeak) Matches(ev *event.Event) bool {
	if ev.Type != event.TypeMessageSent {
		return false
	}
	_, ok := ev.String("content")
	return ok
}

func (c *ContactLeak) Evaluate(ctx context.Context, ev *event.Event) (Result, error) {
	content, ok := ev.String("content")
	if !ok {
		return Result{}, fmt.Errorf("contact_leak: message.sent payload missing content")
	}

	var detected []string
	detected = append(detected, phonePattern.FindAllString(content, -1)...)
	detected = append(detected, emailPattern.FindAllString(content, -1)...)
	if len(detected) == 0 {
		return Result{}, nil
	}

	excerpt := content
	if runes := []rune(content); len(runes) > c.ExcerptLen {
		excerpt = string(runes[:c.ExcerptLen]) + "…"
	}

	messageID, _ := ev.String("message_id")
	f := finding.Finding{
		Severity: finding.SeverityHigh,
		Label:    "contact_details_in_message",
		Details: map[string]any{
			"detected": detected,
			"excerpt":  excerpt,
		},
		LinkedObjectType: "message",
		LinkedObjectID:   messageID,
	}
	t := finding.Task{
		Kind:    finding.TaskReview,
		Summary: "Review message for contact-detail leakage",
		SuggestedAction: map[string]any{
			"action":     "review_message",
			"message_id": messageID,
			"user_id":    ev.ActorUserID,
		},
	}
	return Result{Findings: []finding.Finding{f}, Tasks: []finding.Task{t}}, nil
}
