package remote

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
)

// Mode is the outcome of change-log negotiation.
type Mode int

const (
	// ModeUnknown means the backend has not been probed yet.
	ModeUnknown Mode = iota
	// ModeChangesSupported means mutations go through POST /changes.
	ModeChangesSupported
	// ModeChangesUnsupported means mutations use the direct resource endpoints.
	ModeChangesUnsupported
)

func (m Mode) String() string {
	switch m {
	case ModeChangesSupported:
		return "changes"
	case ModeChangesUnsupported:
		return "direct"
	default:
		return "unknown"
	}
}

// Mode returns the negotiated mode without probing.
func (c *Client) Mode() Mode {
	c.modeMu.Lock()
	defer c.modeMu.Unlock()
	return c.mode
}

// NegotiateChanges reports whether the backend exposes the change log.
//
// The first call probes GET /changes: success means supported, a 404 means
// unsupported. Either verdict is kept for the life of the client and later
// calls return it without a request. Any other failure is returned as is and
// leaves the mode unknown, so the next call probes again.
func (c *Client) NegotiateChanges(ctx context.Context) (bool, error) {
	c.modeMu.Lock()
	defer c.modeMu.Unlock()

	switch c.mode {
	case ModeChangesSupported:
		return true, nil
	case ModeChangesUnsupported:
		return false, nil
	}

	_, err := c.send(ctx, http.MethodGet, "/changes", nil)
	if err == nil {
		c.mode = ModeChangesSupported
		recordNegotiation(ctx, "supported")
		c.logger.Debug("change log negotiated", slog.String("mode", c.mode.String()), slog.String("backend", c.BaseURL))
		return true, nil
	}

	var e *Error
	if errors.As(err, &e) && e.Kind == HTTPError && e.Status == http.StatusNotFound {
		c.mode = ModeChangesUnsupported
		recordNegotiation(ctx, "unsupported")
		c.logger.Debug("change log negotiated", slog.String("mode", c.mode.String()), slog.String("backend", c.BaseURL))
		return false, nil
	}

	recordNegotiation(ctx, "error")
	c.report(err)
	return false, err
}
