// Package transport sends engine calls to a page server over HTTP.
//
// A call is serialized as one form field, "jxncall", holding a JSON object
// that names the server-side function and its parameters. POST calls send
// it as an urlencoded body (multipart when files are attached); GET calls
// put it in the query string. Replies are read fully and reported to the
// engine on its loop.
package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/roach88/callq/internal/clock"
	"github.com/roach88/callq/internal/engine"
	"github.com/roach88/callq/internal/ir"
)

// CallField is the form field carrying the serialized call.
const CallField = "jxncall"

// DefaultMaxBody caps how much of a reply is read.
const DefaultMaxBody = 16 << 20

// ErrReplyTooLarge is reported when a reply body exceeds the transport's
// limit. The reply is dropped rather than truncated.
var ErrReplyTooLarge = errors.New("transport: reply too large")

// HTTP is an engine.Transport backed by net/http.
//
// Send and Abort run on the engine loop. Round trips run on their own
// goroutines and report back through the poster.
type HTTP struct {
	client  *http.Client
	poster  clock.Poster
	timeout time.Duration
	maxBody int64
	logger  *slog.Logger
}

// Option configures an HTTP transport.
type Option func(*HTTP)

// WithClient replaces the HTTP client. Its redirect policy is overridden so
// that 3xx replies reach the engine.
func WithClient(c *http.Client) Option {
	return func(t *HTTP) { t.client = c }
}

// WithTimeout bounds each round trip.
func WithTimeout(d time.Duration) Option {
	return func(t *HTTP) { t.timeout = d }
}

// WithMaxBody caps the bytes read from a reply.
func WithMaxBody(n int64) Option {
	return func(t *HTTP) { t.maxBody = n }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(t *HTTP) { t.logger = l }
}

// New creates a transport reporting completions through poster, normally
// the engine's Loop.
func New(poster clock.Poster, opts ...Option) *HTTP {
	t := &HTTP{
		client:  &http.Client{},
		poster:  poster,
		maxBody: DefaultMaxBody,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	c := *t.client
	if t.timeout > 0 {
		c.Timeout = t.timeout
	}
	c.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}
	t.client = &c
	return t
}

// Send implements engine.Transport.
func (t *HTTP) Send(r *engine.Request, done func(engine.Response)) error {
	ctx, cancel := context.WithCancel(context.Background())
	req, err := t.build(ctx, r)
	if err != nil {
		cancel()
		return err
	}
	r.Handle = cancel

	t.logger.Debug("sending call",
		"request", r.ID,
		"method", req.Method,
		"url", req.URL.Redacted(),
		"bytes", len(r.Body),
	)

	go func() {
		defer cancel()
		resp := t.roundTrip(req)
		if ctx.Err() != nil && resp.Err != nil {
			// Aborted: the engine expects no report.
			return
		}
		t.poster.Submit(func() { done(resp) })
	}()
	return nil
}

// Abort implements engine.Transport.
func (t *HTTP) Abort(r *engine.Request) {
	if cancel, ok := r.Handle.(context.CancelFunc); ok {
		cancel()
	}
}

func (t *HTTP) roundTrip(req *http.Request) engine.Response {
	resp, err := t.client.Do(req)
	if err != nil {
		return engine.Response{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, t.maxBody+1))
	if err != nil {
		return engine.Response{Err: fmt.Errorf("read reply: %w", err)}
	}
	if int64(len(body)) > t.maxBody {
		return engine.Response{Err: fmt.Errorf("%w: reply exceeds %d bytes", ErrReplyTooLarge, t.maxBody)}
	}
	return engine.Response{
		Status:   resp.StatusCode,
		Location: resp.Header.Get("Location"),
		Header:   resp.Header,
		Body:     body,
	}
}

// build serializes r into r.Body and returns the HTTP request for it.
func (t *HTTP) build(ctx context.Context, r *engine.Request) (*http.Request, error) {
	if r.URI == "" {
		return nil, errors.New("call has no URI")
	}
	call, err := EncodeCall(r.Function)
	if err != nil {
		return nil, err
	}

	method := strings.ToUpper(r.Method)
	if method == "" {
		method = http.MethodPost
	}

	var req *http.Request
	switch {
	case method == http.MethodGet:
		u, err := url.Parse(r.URI)
		if err != nil {
			return nil, fmt.Errorf("parse uri: %w", err)
		}
		q := u.Query()
		q.Set(CallField, string(call))
		u.RawQuery = q.Encode()
		r.Body = nil
		req, err = http.NewRequestWithContext(ctx, method, u.String(), nil)
		if err != nil {
			return nil, err
		}

	case r.Upload != nil && len(r.Upload.Files) > 0:
		body, contentType, err := multipartBody(call, r.Upload)
		if err != nil {
			return nil, err
		}
		r.Body = body
		req, err = http.NewRequestWithContext(ctx, method, r.URI, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", contentType)

	default:
		r.Body = []byte(url.Values{CallField: {string(call)}}.Encode())
		req, err = http.NewRequestWithContext(ctx, method, r.URI, bytes.NewReader(r.Body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", r.ContentType)
	}

	for k, v := range r.Headers {
		req.Header.Set(k, v)
	}
	return req, nil
}

// EncodeCall renders the call descriptor as canonical JSON:
// {"args":[...],"name":"fn","type":"func"} or, for class methods,
// {"args":[...],"method":"m","name":"Class","type":"class"}.
func EncodeCall(fn engine.Function) ([]byte, error) {
	args := fn.Params
	if args == nil {
		args = []any{}
	}
	call := map[string]any{
		"type": fn.Kind(),
		"args": args,
	}
	if fn.Class != "" {
		call["name"] = fn.Class
		call["method"] = fn.Method
	} else {
		call["name"] = fn.Name
	}
	b, err := ir.MarshalCanonical(call)
	if err != nil {
		return nil, fmt.Errorf("encode call %s: %w", fn, err)
	}
	return b, nil
}

func multipartBody(call []byte, up *engine.Upload) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.WriteField(CallField, string(call)); err != nil {
		return nil, "", err
	}

	field := up.Field
	if field == "" {
		field = "files"
	}
	for _, f := range up.Files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, f.Name))
		ct := f.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		h.Set("Content-Type", ct)
		part, err := w.CreatePart(h)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(f.Data); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}
