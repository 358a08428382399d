package telegram

import (
	"log/slog"
	"net"
	"net/http"
	"path"
	"time"

	"github.com/m3rciful/devroster/core/logger"
	"github.com/m3rciful/devroster/core/telegram/netutil"
)

// HTTPClientOptions tunes the client used for Bot API calls. Zero fields
// take defaults.
type HTTPClientOptions struct {
	// PollTimeout is the long-poll window; the client timeout is kept above it.
	PollTimeout  time.Duration
	DialTimeout  time.Duration
	MaxRetries   int
	RetryBackoff time.Duration
}

const pollHeadroom = 10 * time.Second

func (o HTTPClientOptions) withDefaults() HTTPClientOptions {
	if o.PollTimeout <= 0 {
		o.PollTimeout = DefaultLongPollTimeout
	}
	if o.DialTimeout <= 0 {
		o.DialTimeout = 5 * time.Second
	}
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	}
	if o.RetryBackoff <= 0 {
		o.RetryBackoff = 2 * time.Second
	}
	return o
}

// HTTPClientOptionsFrom derives client options from the poller settings.
func HTTPClientOptionsFrom(opts PollerOptions) HTTPClientOptions {
	out := HTTPClientOptions{MaxRetries: 3}
	if opts.LongPollTimeoutSeconds > 0 {
		out.PollTimeout = time.Duration(opts.LongPollTimeoutSeconds) * time.Second
	}
	return out
}

// BuildHTTPClient returns a client for the Telegram Bot API. Failures that
// happen before the request leaves the host (dial errors, refused
// connections) are retried with linear backoff.
func BuildHTTPClient(opts HTTPClientOptions) *http.Client {
	opts = opts.withDefaults()
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: opts.DialTimeout, KeepAlive: 30 * time.Second}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          32,
		MaxIdleConnsPerHost:   8,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   opts.DialTimeout,
		ResponseHeaderTimeout: opts.PollTimeout + pollHeadroom,
	}
	return &http.Client{
		Timeout: opts.PollTimeout + 2*pollHeadroom,
		Transport: &retryTransport{
			base:       transport,
			maxRetries: opts.MaxRetries,
			backoff:    opts.RetryBackoff,
		},
	}
}

type retryTransport struct {
	base       http.RoundTripper
	maxRetries int
	backoff    time.Duration
}

func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.base.RoundTrip(req)
	for attempt := 1; err != nil && attempt <= t.maxRetries && netutil.ShouldRetry(err); attempt++ {
		next, rerr := rewind(req)
		if rerr != nil || next == nil {
			return nil, err
		}
		logger.Debug(req.Context(), "tg.http", "http.retry",
			slog.String("method", telegramMethod(req)),
			slog.Int("attempt", attempt),
			slog.String("cause", logger.SanitizeLimit(err.Error(), 128)),
		)
		timer := time.NewTimer(t.backoff * time.Duration(attempt))
		select {
		case <-req.Context().Done():
			timer.Stop()
			return nil, req.Context().Err()
		case <-timer.C:
		}
		resp, err = t.base.RoundTrip(next)
	}
	return resp, err
}

// rewind clones req with a fresh body. A nil request means the body cannot
// be replayed.
func rewind(req *http.Request) (*http.Request, error) {
	next := req.Clone(req.Context())
	if req.Body == nil || req.Body == http.NoBody {
		return next, nil
	}
	if req.GetBody == nil {
		return nil, nil
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, err
	}
	next.Body = body
	return next, nil
}

// telegramMethod extracts "sendMessage" from /bot<token>/sendMessage so the
// token never reaches the log.
func telegramMethod(req *http.Request) string {
	return path.Base(req.URL.Path)
}
