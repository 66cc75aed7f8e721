// Package upstream is the client for the store's Sales API, the system of
// record for products, sales, credits and the cash drawer. Every call goes
// through a circuit breaker; nothing is retried.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"licoreria-pos/apperr"
	"licoreria-pos/middleware"
)

const (
	CodeMalformed    = "upstream_malformed"
	CodeRejected     = "upstream_rejected"
	CodeNotFound     = "upstream_not_found"
	CodeUnauthorized = "upstream_unauthorized"
	CodeServerError  = "upstream_error"

	HeaderIdempotencyKey = "Idempotency-Key"

	// sessionCookie is the Flask session cookie the Sales API authenticates.
	sessionCookie = "session"
)

// reply is a fully read upstream response.
type reply struct {
	status int
	body   []byte
}

var errGateway = errors.New("upstream gateway failure")

type Options struct {
	BaseURL         string
	Token           string
	Timeout         time.Duration
	BreakerFailures uint32
	BreakerCooldown time.Duration
	HTTPClient      *http.Client
	Logger          *zap.Logger
}

type Client struct {
	baseURL *url.URL
	token   string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[*reply]
	log     *zap.Logger
}

func New(opts Options) (*Client, error) {
	u, err := url.Parse(opts.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid sales api url %q", opts.BaseURL)
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	hc := &http.Client{Timeout: opts.Timeout}
	if opts.HTTPClient != nil {
		// copied so the caller's client keeps its own redirect policy
		c := *opts.HTTPClient
		hc = &c
	}
	// a redirect means the session expired and Flask is sending us to /login
	hc.CheckRedirect = func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }

	failures := opts.BreakerFailures
	if failures == 0 {
		failures = 5
	}
	st := gobreaker.Settings{
		Name:    "sales-api",
		Timeout: opts.BreakerCooldown,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state change",
				zap.String("breaker", name), zap.String("from", from.String()), zap.String("to", to.String()))
		},
	}
	return &Client{
		baseURL: u,
		token:   opts.Token,
		http:    hc,
		breaker: gobreaker.NewCircuitBreaker[*reply](st),
		log:     log,
	}, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, in interface{}, header http.Header) (*reply, error) {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(b)
	}
	u := c.baseURL.ResolveReference(&url.URL{Path: path, RawQuery: query.Encode()})

	start := time.Now()
	rep, err := c.breaker.Execute(func() (*reply, error) {
		req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
		if err != nil {
			return nil, err
		}
		for k, vv := range header {
			for _, v := range vv {
				req.Header.Add(k, v)
			}
		}
		req.Header.Set("Accept", "application/json")
		if in != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if cid := middleware.GetCorrelationID(ctx); cid != "" {
			req.Header.Set(middleware.HeaderCorrelationID, cid)
		}
		if c.token != "" {
			req.AddCookie(&http.Cookie{Name: sessionCookie, Value: c.token})
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		b, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		rep := &reply{status: resp.StatusCode, body: b}
		switch resp.StatusCode {
		case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return rep, errGateway
		}
		return rep, nil
	})

	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return nil, apperr.Transport("sales api unavailable", err)
	case errors.Is(err, errGateway):
		return nil, apperr.Transport("sales api unavailable", fmt.Errorf("%s %s: status %d", method, path, rep.status))
	case err != nil:
		c.log.Warn("sales api request failed", zap.String("method", method), zap.String("path", path), zap.Error(err))
		return nil, apperr.Transport("sales api unreachable", err)
	}
	c.log.Debug("sales api",
		zap.String("method", method), zap.String("path", path),
		zap.Int("status", rep.status), zap.Duration("elapsed", time.Since(start)))

	if err := failure(rep); err != nil {
		return nil, err
	}
	return rep, nil
}

// envelope covers both failure shapes the Sales API uses: {"error": "..."}
// and {"success": false, "message": "..."}.
type envelope struct {
	Success *bool  `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

func (e envelope) text() string {
	if e.Error != "" {
		return e.Error
	}
	return e.Message
}

func failure(rep *reply) error {
	switch {
	case rep.status >= 300 && rep.status < 400, rep.status == http.StatusUnauthorized, rep.status == http.StatusForbidden:
		return apperr.New(apperr.KindTransport, CodeUnauthorized, "sales api session rejected")
	}

	var env envelope
	// a non-object body (a bare list) carries no failure
	_ = json.Unmarshal(rep.body, &env)
	msg := strings.TrimSpace(env.text())

	switch {
	case rep.status == http.StatusNotFound:
		return apperr.NotFound(CodeNotFound, orDefault(msg, "not found"))
	case rep.status >= 500:
		return apperr.Wrap(apperr.KindTransport, CodeServerError, orDefault(msg, "sales api error"),
			fmt.Errorf("status %d", rep.status))
	case rep.status >= 400:
		return apperr.BusinessRule(CodeRejected, orDefault(msg, "request rejected"))
	case env.Success != nil && !*env.Success:
		return apperr.BusinessRule(CodeRejected, orDefault(msg, "request rejected"))
	case env.Error != "":
		return apperr.BusinessRule(CodeRejected, msg)
	}
	return nil
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// decode unmarshals a reply into out and fails fast on a shape mismatch.
func decode(rep *reply, out interface{}) error {
	if err := json.Unmarshal(rep.body, out); err != nil {
		return malformed(err)
	}
	return nil
}

func malformed(err error) error {
	return apperr.Wrap(apperr.KindTransport, CodeMalformed, "unexpected sales api response", err)
}
