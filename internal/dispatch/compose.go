package dispatch

import (
	"context"
	"net/url"
	"strings"
)

// ComposeChannel is the last rung of the chain: it builds a pre-filled
// webmail compose URL and hands the message off with no delivery
// confirmation. The case is not completed on this path; an explicit
// confirmation step follows once the user reports the mail sent.
type ComposeChannel struct {
	baseURL string
}

// NewComposeChannel creates the compose-link channel. An empty base URL
// falls back to a plain mailto link.
func NewComposeChannel(baseURL string) *ComposeChannel {
	return &ComposeChannel{baseURL: baseURL}
}

// Name implements Channel.
func (c *ComposeChannel) Name() string { return "compose" }

// Send implements Channel. Building a link cannot fail, so this channel
// always concludes the chain.
func (c *ComposeChannel) Send(ctx context.Context, msg *Message) (*Result, error) {
	return &Result{
		Outcome:    OutcomeHandedOff,
		ComposeURL: c.composeURL(msg),
	}, nil
}

func (c *ComposeChannel) composeURL(msg *Message) string {
	if c.baseURL == "" {
		return c.mailtoURL(msg)
	}

	sep := "&"
	if !strings.Contains(c.baseURL, "?") {
		sep = "?"
	}

	params := url.Values{}
	params.Set("to", msg.To)
	if len(msg.CC) > 0 {
		params.Set("cc", strings.Join(msg.CC, ","))
	}
	params.Set("su", msg.Subject)
	params.Set("body", msg.Body)

	return c.baseURL + sep + params.Encode()
}

func (c *ComposeChannel) mailtoURL(msg *Message) string {
	params := url.Values{}
	if len(msg.CC) > 0 {
		params.Set("cc", strings.Join(msg.CC, ","))
	}
	params.Set("subject", msg.Subject)
	params.Set("body", msg.Body)

	return "mailto:" + msg.To + "?" + params.Encode()
}
