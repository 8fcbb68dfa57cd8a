package supervise

import (
	"context"
	"errors"
	"net/http"
	"time"
)

// ErrReadyTimeout reports that the readiness budget elapsed before the
// endpoint answered healthy.
var ErrReadyTimeout = errors.New("readiness timeout elapsed")

// ErrProcessExited reports that the probed process died before it ever
// answered healthy.
var ErrProcessExited = errors.New("process exited before becoming ready")

// HealthCheck polls an HTTP endpoint at a fixed cadence until it answers
// with a 2xx status.
type HealthCheck struct {
	URL          string
	Interval     time.Duration
	ProbeTimeout time.Duration
}

// AwaitReady probes immediately and then at the configured interval until
// the endpoint reports healthy, the budget elapses, abort closes, or ctx is
// canceled. Failed probes are expected while the process boots and are not
// reported individually.
func (hc HealthCheck) AwaitReady(ctx context.Context, budget time.Duration, abort <-chan struct{}) error {
	client := &http.Client{Timeout: hc.ProbeTimeout}

	ticker := time.NewTicker(hc.Interval)
	defer ticker.Stop()
	deadline := time.NewTimer(budget)
	defer deadline.Stop()

	for {
		if hc.probe(ctx, client) {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-abort:
			return ErrProcessExited
		case <-deadline.C:
			return ErrReadyTimeout
		case <-ticker.C:
		}
	}
}

func (hc HealthCheck) probe(ctx context.Context, client *http.Client) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, hc.URL, nil)
	if err != nil {
		return false
	}
	resp, err := client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}
