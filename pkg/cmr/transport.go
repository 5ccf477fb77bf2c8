package cmr

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/donaldgifford/cmr-client/internal/metrics"
)

const (
	tracerName = "github.com/donaldgifford/cmr-client/pkg/cmr"

	headerClientID  = "Client-Id"
	headerRequestID = "CMR-Request-Id"
	headerHits      = "CMR-Hits"
)

// call is one outbound CMR request.
type call struct {
	op          string
	method      string
	url         string
	body        []byte
	header      http.Header
	conceptType ConceptType
	identifier  string
}

// reply is a fully read CMR response.
type reply struct {
	status int
	header http.Header
	body   []byte
}

// requester performs exactly one HTTP exchange per call. It throttles, tags
// the request for correlation, traces and records metrics; it never retries.
type requester struct {
	client   *http.Client
	limiter  *RateLimiter
	logger   *slog.Logger
	clientID string
	tracer   trace.Tracer
}

func newRequester(s *settings) *requester {
	return &requester{
		client:   s.httpClient,
		limiter:  s.limiter,
		logger:   s.logger,
		clientID: s.clientID,
		tracer:   otel.Tracer(tracerName),
	}
}

func (r *requester) do(ctx context.Context, c call) (*reply, error) {
	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%s: %w", c.op, err)
		}
	}

	ctx, span := r.tracer.Start(ctx, "cmr."+c.op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", c.method),
			attribute.String("cmr.concept_type", string(c.conceptType)),
			attribute.String("cmr.identifier", c.identifier),
		),
	)
	defer span.End()

	var body io.Reader = http.NoBody
	if c.body != nil {
		body = bytes.NewReader(c.body)
	}

	req, err := http.NewRequestWithContext(ctx, c.method, c.url, body)
	if err != nil {
		return nil, fmt.Errorf("%s: creating HTTP request: %w", c.op, err)
	}

	for k, vals := range c.header {
		for _, v := range vals {
			req.Header.Add(k, v)
		}
	}
	if req.Header.Get(headerClientID) == "" && r.clientID != "" {
		req.Header.Set(headerClientID, r.clientID)
	}
	requestID := uuid.NewString()
	req.Header.Set(headerRequestID, requestID)
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))
	span.SetAttributes(attribute.String("cmr.request_id", requestID))

	start := time.Now()
	resp, err := r.client.Do(req)
	if err != nil {
		r.observe(c.op, "error", start)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%s: %w", c.op, ctx.Err())
		}
		return nil, &RequestError{
			Kind:        ErrTransient,
			Op:          c.op,
			ConceptType: c.conceptType,
			Identifier:  c.identifier,
			Err:         err,
		}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	status := strconv.Itoa(resp.StatusCode)
	r.observe(c.op, status, start)
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, &RequestError{
			Kind:        ErrTransient,
			Op:          c.op,
			ConceptType: c.conceptType,
			Identifier:  c.identifier,
			StatusCode:  resp.StatusCode,
			Err:         fmt.Errorf("reading response body: %w", err),
		}
	}
	if resp.StatusCode >= http.StatusBadRequest {
		span.SetStatus(codes.Error, resp.Status)
	}

	r.logger.Debug("cmr request",
		"op", c.op,
		"method", c.method,
		"url", c.url,
		"status", resp.StatusCode,
		"request_id", requestID,
		"duration", time.Since(start),
	)

	return &reply{status: resp.StatusCode, header: resp.Header, body: respBody}, nil
}

func (r *requester) observe(op, status string, start time.Time) {
	metrics.RequestDuration.WithLabelValues(op, status).Observe(time.Since(start).Seconds())
	metrics.RequestsTotal.WithLabelValues(op, status).Inc()
}

// fail logs err once with its operation context, counts it and returns it.
func (r *requester) fail(err error, op string, conceptType ConceptType, identifier string) error {
	kind := errorKind(err)
	metrics.ErrorsTotal.WithLabelValues(op, kind).Inc()
	r.logger.Error("cmr operation failed",
		"op", op,
		"concept_type", conceptType,
		"identifier", identifier,
		"kind", kind,
		"error", err,
	)
	return err
}

// statusError builds the error for a non-success status when the body has
// already been decoded into messages.
func statusError(c call, status int, messages []string) error {
	kind := ErrRejected
	if status >= http.StatusInternalServerError {
		kind = ErrTransient
	}
	return &RequestError{
		Kind:        kind,
		Op:          c.op,
		ConceptType: c.conceptType,
		Identifier:  c.identifier,
		StatusCode:  status,
		Messages:    messages,
	}
}

// malformed builds the error for a body that could not be decoded.
func malformed(c call, status int, body []byte, err error) error {
	msgs := []string(nil)
	if s := snippet(body); s != "" {
		msgs = []string{s}
	}
	return &RequestError{
		Kind:        ErrMalformedResponse,
		Op:          c.op,
		ConceptType: c.conceptType,
		Identifier:  c.identifier,
		StatusCode:  status,
		Messages:    msgs,
		Err:         err,
	}
}

// classify turns a non-success reply into an error. 5xx is transient
// regardless of the body; otherwise the body must decode in format, or the
// reply is reported as malformed.
func classify(c call, rep *reply, format Format) error {
	messages, details, err := decodeErrorBody(format, rep.body)
	if rep.status >= http.StatusInternalServerError {
		if err != nil {
			return statusError(c, rep.status, nonEmpty(snippet(rep.body)))
		}
		return statusError(c, rep.status, flatten(messages, details))
	}
	if err != nil {
		return malformed(c, rep.status, rep.body, err)
	}
	return statusError(c, rep.status, flatten(messages, details))
}

func nonEmpty(s string) []string {
	if s == "" {
		return nil
	}
	return []string{s}
}
