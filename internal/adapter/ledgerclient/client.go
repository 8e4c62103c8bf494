// Package ledgerclient talks to the remote ledger service.
package ledgerclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/iho/gotransfer/internal/domain"
)

const (
	opDebit  = "debit"
	opCredit = "credit"

	// IdempotencyKeyHeader carries the per-step key of a mutation.
	IdempotencyKeyHeader = "Idempotency-Key"

	maxErrorBody = 4 << 10
)

// Config configures the HTTP ledger client.
type Config struct {
	BaseURL string
	// Timeout bounds one call including dial retries.
	Timeout time.Duration
	// DialRetries is how many times a call is re-sent when the TCP dial
	// failed. Requests that reached the wire are never re-sent.
	DialRetries uint64
}

// HTTPClient implements usecase.LedgerClient over the ledger's REST API:
// PUT {base}/accounts/{id}/debit|credit?amount=&description=
type HTTPClient struct {
	baseURL     *url.URL
	http        *http.Client
	timeout     time.Duration
	dialRetries uint64
	newBackOff  func() backoff.BackOff
	logger      zerolog.Logger
}

// NewHTTPClient creates a new HTTPClient.
func NewHTTPClient(cfg Config, logger zerolog.Logger) (*HTTPClient, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid ledger base URL: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("invalid ledger base URL %q: scheme must be http or https", cfg.BaseURL)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	return &HTTPClient{
		baseURL: base,
		http: &http.Client{
			// Redirects are not part of the contract; surface them.
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		timeout:     timeout,
		dialRetries: cfg.DialRetries,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 50 * time.Millisecond
			b.MaxInterval = 500 * time.Millisecond
			return b
		},
		logger: logger,
	}, nil
}

// Debit removes funds from an account.
func (c *HTTPClient) Debit(ctx context.Context, mutation domain.LedgerMutation) (domain.LedgerAck, error) {
	return c.do(ctx, opDebit, mutation)
}

// Credit adds funds to an account.
func (c *HTTPClient) Credit(ctx context.Context, mutation domain.LedgerMutation) (domain.LedgerAck, error) {
	return c.do(ctx, opCredit, mutation)
}

type ackBody struct {
	Reference string `json:"reference"`
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (c *HTTPClient) do(ctx context.Context, op string, mutation domain.LedgerMutation) (domain.LedgerAck, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	req, err := c.newRequest(ctx, op, mutation)
	if err != nil {
		return domain.LedgerAck{}, domain.NewRemoteError(domain.RemoteUnexpected, op, mutation.AccountID, err)
	}

	resp, err := c.send(ctx, req)
	if err != nil {
		return domain.LedgerAck{}, domain.NewRemoteError(classifyTransportError(err), op, mutation.AccountID, err)
	}
	defer resp.Body.Close()

	c.logger.Debug().
		Str("op", op).
		Int64("account_id", mutation.AccountID).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("ledger call")

	return c.handleResponse(op, mutation.AccountID, resp)
}

func (c *HTTPClient) newRequest(ctx context.Context, op string, mutation domain.LedgerMutation) (*http.Request, error) {
	u := c.baseURL.JoinPath("accounts", strconv.FormatInt(mutation.AccountID, 10), op)
	q := url.Values{}
	q.Set("amount", mutation.Amount.StringFixed(2))
	q.Set("description", mutation.Memo)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if mutation.IdempotencyKey != "" {
		req.Header.Set(IdempotencyKeyHeader, mutation.IdempotencyKey)
	}
	return req, nil
}

// send retries only failed dials; anything else is returned as is.
func (c *HTTPClient) send(ctx context.Context, req *http.Request) (*http.Response, error) {
	attempt := 0
	operation := func() (*http.Response, error) {
		attempt++
		resp, err := c.http.Do(req)
		if err == nil {
			return resp, nil
		}
		if isDialError(err) {
			return nil, err
		}
		return nil, backoff.Permanent(err)
	}

	b := backoff.WithContext(backoff.WithMaxRetries(c.newBackOff(), c.dialRetries), ctx)
	return backoff.RetryNotifyWithData(operation, b, func(err error, wait time.Duration) {
		c.logger.Warn().
			Err(err).
			Int("attempt", attempt).
			Dur("wait", wait).
			Msg("ledger unreachable, request not sent, retrying")
	})
}

func (c *HTTPClient) handleResponse(op string, accountID int64, resp *http.Response) (domain.LedgerAck, error) {
	status := resp.StatusCode

	switch {
	case status >= 200 && status < 300:
		var body ackBody
		// The body is optional; the status alone acknowledges.
		_ = json.NewDecoder(io.LimitReader(resp.Body, maxErrorBody)).Decode(&body)
		return domain.LedgerAck{Reference: body.Reference}, nil

	case status == http.StatusRequestTimeout, status == http.StatusTooManyRequests, status >= 500:
		return domain.LedgerAck{}, domain.NewRemoteError(domain.RemoteUnavailable, op, accountID,
			fmt.Errorf("status %d: %s", status, readErrorMessage(resp.Body)))

	case status >= 400:
		return domain.LedgerAck{}, domain.NewRemoteError(domain.RemoteRejected, op, accountID,
			fmt.Errorf("status %d: %s", status, readErrorMessage(resp.Body)))
	}

	return domain.LedgerAck{}, domain.NewRemoteError(domain.RemoteUnexpected, op, accountID,
		fmt.Errorf("unexpected status %d", status))
}

func readErrorMessage(r io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(r, maxErrorBody))
	if err != nil {
		return "unreadable response body"
	}

	var body errorBody
	if json.Unmarshal(raw, &body) == nil {
		if body.Message != "" {
			return body.Message
		}
		if body.Error != "" {
			return body.Error
		}
	}
	return strings.TrimSpace(string(raw))
}

func isDialError(err error) bool {
	var opErr *net.OpError
	return errors.As(err, &opErr) && opErr.Op == "dial"
}

func classifyTransportError(err error) domain.RemoteErrorKind {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return domain.RemoteUnavailable
	}
	// *url.Error is itself a net.Error; look at what it wraps.
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		err = urlErr.Err
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return domain.RemoteUnavailable
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return domain.RemoteUnavailable
	}
	return domain.RemoteUnexpected
}
