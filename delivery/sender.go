package delivery

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/marcelsud/webhook-courier/event"
	"github.com/marcelsud/webhook-courier/retry"
	"github.com/marcelsud/webhook-courier/signature"
	"github.com/marcelsud/webhook-courier/vendors"
)

/* Sender performs exactly one outbound delivery attempt per claimed event.
 * Non-2xx responses, connection errors and timeouts are all the same
 * transient failure as far as the retry policy is concerned; only a
 * malformed target URL is permanent, since retrying can never fix it.
 */

const userAgent = "webhook-courier/1.0"

// DefaultTimeout bounds a single delivery attempt
const DefaultTimeout = 10 * time.Second

// AttemptResult carries what one attempt produced: the input for the
// retry policy plus the response capture persisted for observability
type AttemptResult struct {
	Result         retry.Result
	ResponseStatus *int
	ResponseBody   string
}

type Sender struct {
	client   *http.Client
	registry *vendors.Registry
}

// NewSender creates a sender with the given per-attempt timeout.
// The vendor registry provides signing secrets; a nil registry or a
// vendor without a secret sends unsigned.
func NewSender(registry *vendors.Registry, timeout time.Duration) *Sender {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Sender{
		client: &http.Client{
			Timeout: timeout,
		},
		registry: registry,
	}
}

// Attempt executes one signed HTTP POST for a claimed event.
// It never returns an error: every failure mode is encoded in the result
// so the caller can feed it straight to the retry policy.
func (s *Sender) Attempt(ctx context.Context, e event.Event) AttemptResult {
	if err := validateTargetURL(e.TargetURL); err != nil {
		return AttemptResult{
			Result:       retry.Result{PermanentFailure: true},
			ResponseBody: event.TruncateResponseBody(fmt.Sprintf("invalid target URL: %v", err)),
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.TargetURL, bytes.NewReader(e.Payload))
	if err != nil {
		return AttemptResult{
			Result:       retry.Result{PermanentFailure: true},
			ResponseBody: event.TruncateResponseBody(fmt.Sprintf("invalid target URL: %v", err)),
		}
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("X-Webhook-Event-Id", e.ID)
	req.Header.Set("X-Webhook-Attempt", strconv.Itoa(e.Attempts+1))
	if s.registry != nil {
		if secret := s.registry.Secret(e.VendorID); secret != "" {
			req.Header.Set("X-Webhook-Signature", signature.Sign(secret, e.Payload))
		}
	}

	resp, err := s.client.Do(req)
	if err != nil {
		// Connection errors and timeouts look the same to the policy
		return AttemptResult{
			Result:       retry.Result{StatusCode: 0},
			ResponseBody: event.TruncateResponseBody(fmt.Sprintf("delivery failed: %v", err)),
		}
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, event.MaxResponseBodyBytes))

	status := resp.StatusCode
	return AttemptResult{
		Result:         retry.Result{StatusCode: status},
		ResponseStatus: &status,
		ResponseBody:   string(body),
	}
}

// validateTargetURL rejects URLs the HTTP client could never deliver to
func validateTargetURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("missing host")
	}
	return nil
}
