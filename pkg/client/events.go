package client

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/dimitrije/jobboard-api/internal/models"
)

const sessionEvent = "session"

// Listen streams session changes the API pushes for the signed-in identity
// and re-emits them to subscribers until ctx is done or the stream ends.
// A signed_out push from another device drops the local session.
func (c *Client) Listen(ctx context.Context) error {
	token, err := c.accessToken(ctx)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+apiPrefix+"/auth/events", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Authorization", "Bearer "+token)

	// The stream is long-lived, so the client's request timeout does not apply.
	hc := *c.http
	hc.Timeout = 0
	resp, err := hc.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decodeError(resp)
	}

	c.logger.Debug().Msg("listening for session changes")
	err = readEvents(resp, func(event, data string) {
		if event != sessionEvent {
			return
		}
		var change models.SessionChange
		if err := json.Unmarshal([]byte(data), &change); err != nil {
			c.logger.Warn().Err(err).Msg("skipping malformed session event")
			return
		}
		c.pushed(change)
	})
	if ctx.Err() != nil {
		return nil
	}
	return err
}

func (c *Client) pushed(change models.SessionChange) {
	held := c.Session()
	if held == nil || held.User.ID != change.IdentityID {
		return
	}
	switch change.Type {
	case models.SessionSignedOut:
		c.signedOut(held.User)
	case models.SessionUserUpdated:
		c.emit(models.SessionChange{Type: change.Type, IdentityID: change.IdentityID})
	}
}

// readEvents parses a text/event-stream body and calls fn once per event.
func readEvents(resp *http.Response, fn func(event, data string)) error {
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64<<10), 1<<20)

	var event string
	var data []string
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if len(data) > 0 {
				fn(event, strings.Join(data, "\n"))
			}
			event, data = "", nil
		case strings.HasPrefix(line, ":"):
			// comment
		case strings.HasPrefix(line, "event:"):
			event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			data = append(data, strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		}
	}
	return scanner.Err()
}
