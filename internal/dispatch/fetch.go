package dispatch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// attachmentFetcher pulls case-linked documents over plain HTTP GET.
// Every fetch is independently best-effort: a failure drops that one
// attachment and never aborts the send.
type attachmentFetcher struct {
	client *http.Client
	logger *slog.Logger
}

func newAttachmentFetcher(timeout time.Duration, logger *slog.Logger) *attachmentFetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &attachmentFetcher{
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// fetchAll returns the attachments that could be retrieved, in order.
func (f *attachmentFetcher) fetchAll(ctx context.Context, attachments []Attachment) []fetchedAttachment {
	var fetched []fetchedAttachment
	for _, att := range attachments {
		content, err := f.fetch(ctx, att.URL)
		if err != nil {
			f.logger.Warn("attachment fetch failed, sending without it",
				"filename", att.Filename,
				"url", att.URL,
				"error", err,
			)
			continue
		}
		fetched = append(fetched, fetchedAttachment{Filename: att.Filename, Content: content})
	}
	return fetched
}

func (f *attachmentFetcher) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build attachment request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("attachment request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("attachment request returned status %d", resp.StatusCode)
	}

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read attachment body: %w", err)
	}
	return content, nil
}
