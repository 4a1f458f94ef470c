// Package dispatch implements the approval-mail delivery chain: an
// ordered list of channel strategies tried in turn until one delivers the
// message or hands it off for manual sending.
package dispatch

import (
	"context"
	"log/slog"

	"github.com/fieldverify-platform/caseflow/internal/apperrors"
)

// Outcome is the tri-state result of a channel attempt.
type Outcome string

const (
	// OutcomeDelivered means the channel confirmed delivery; the caller
	// may complete the case.
	OutcomeDelivered Outcome = "delivered"
	// OutcomeHandedOff means the message was handed to a manual compose
	// surface with no delivery confirmation; completion requires an
	// explicit confirmation step.
	OutcomeHandedOff Outcome = "handed_off"
	// OutcomeUnavailable means the channel cannot run (missing
	// configuration or a failed attempt); the chain moves on.
	OutcomeUnavailable Outcome = "unavailable"
)

// Attachment is a case-linked remote document to carry with the mail.
type Attachment struct {
	Filename string
	URL      string
}

// Message is one approval notification to deliver.
type Message struct {
	From        string
	To          string
	CC          []string
	Subject     string
	Body        string
	Attachments []Attachment
}

// Result reports how a dispatch concluded.
type Result struct {
	Outcome Outcome `json:"outcome"`
	Channel string  `json:"channel,omitempty"`
	// ComposeURL is set on handed-off outcomes: the pre-filled compose
	// link the user must send manually.
	ComposeURL string `json:"compose_url,omitempty"`
}

// Channel is one delivery strategy.
type Channel interface {
	Name() string
	// Send attempts delivery. An error counts the same as unavailable:
	// the chain logs it and moves to the next channel.
	Send(ctx context.Context, msg *Message) (*Result, error)
}

// Dispatcher walks an ordered channel chain.
type Dispatcher struct {
	channels []Channel
	logger   *slog.Logger
}

// NewDispatcher creates a dispatcher over the given channels, tried in
// order.
func NewDispatcher(logger *slog.Logger, channels ...Channel) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{channels: channels, logger: logger}
}

// Dispatch tries each channel until one delivers or hands off. A missing
// recipient aborts before any channel is attempted. If every channel is
// unavailable the whole dispatch fails.
func (d *Dispatcher) Dispatch(ctx context.Context, msg *Message) (*Result, error) {
	if msg.To == "" {
		return nil, apperrors.Validation("recipient address is required")
	}

	for _, ch := range d.channels {
		result, err := ch.Send(ctx, msg)
		if err != nil {
			d.logger.Warn("mail channel failed, trying next",
				"channel", ch.Name(),
				"to", msg.To,
				"error", err,
			)
			continue
		}

		switch result.Outcome {
		case OutcomeDelivered, OutcomeHandedOff:
			result.Channel = ch.Name()
			return result, nil
		case OutcomeUnavailable:
			d.logger.Debug("mail channel unavailable", "channel", ch.Name())
		}
	}

	return nil, apperrors.New(apperrors.CodeServiceUnavail, "no mail channel could deliver the message")
}
