package telegram

import (
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"
)

type scriptedTransport struct {
	errs  []error
	calls int
}

func (s *scriptedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	s.calls++
	if req.Body != nil {
		_, _ = io.ReadAll(req.Body)
	}
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	return &http.Response{StatusCode: http.StatusOK, Body: http.NoBody, Request: req}, nil
}

func dialErr() error { return &net.OpError{Op: "dial", Err: errors.New("refused")} }

func TestRetryTransportRetriesDialErrors(t *testing.T) {
	base := &scriptedTransport{errs: []error{dialErr(), dialErr()}}
	rt := &retryTransport{base: base, maxRetries: 3, backoff: time.Millisecond}
	req, _ := http.NewRequest(http.MethodPost, "https://api.telegram.org/bot1:x/sendMessage", strings.NewReader("{}"))
	resp, err := rt.RoundTrip(req)
	if err != nil {
		t.Fatalf("round trip: %v", err)
	}
	resp.Body.Close()
	if base.calls != 3 {
		t.Fatalf("calls = %d, want 3", base.calls)
	}
}

func TestRetryTransportGivesUpOnPermanentError(t *testing.T) {
	base := &scriptedTransport{errs: []error{errors.New("tls: bad certificate")}}
	rt := &retryTransport{base: base, maxRetries: 3, backoff: time.Millisecond}
	req, _ := http.NewRequest(http.MethodGet, "https://api.telegram.org/bot1:x/getMe", nil)
	if _, err := rt.RoundTrip(req); err == nil {
		t.Fatal("expected error")
	}
	if base.calls != 1 {
		t.Fatalf("calls = %d, want 1", base.calls)
	}
}

func TestRetryTransportStopsWithoutReplayableBody(t *testing.T) {
	base := &scriptedTransport{errs: []error{dialErr()}}
	rt := &retryTransport{base: base, maxRetries: 3, backoff: time.Millisecond}
	req, _ := http.NewRequest(http.MethodPost, "https://api.telegram.org/bot1:x/sendDocument", io.NopCloser(strings.NewReader("x")))
	req.GetBody = nil
	if _, err := rt.RoundTrip(req); err == nil {
		t.Fatal("expected the dial error")
	}
	if base.calls != 1 {
		t.Fatalf("calls = %d, want 1", base.calls)
	}
}

func TestHTTPClientTimeoutCoversLongPoll(t *testing.T) {
	opts := HTTPClientOptionsFrom(PollerOptions{LongPollTimeoutSeconds: 50})
	c := BuildHTTPClient(opts)
	if c.Timeout <= 50*time.Second {
		t.Fatalf("client timeout %v does not cover the poll window", c.Timeout)
	}
}

func TestTelegramMethodHidesToken(t *testing.T) {
	req, _ := http.NewRequest(http.MethodPost, "https://api.telegram.org/bot123:secret/sendMessage", nil)
	if got := telegramMethod(req); got != "sendMessage" {
		t.Fatalf("method = %q", got)
	}
}
