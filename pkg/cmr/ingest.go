package cmr

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/donaldgifford/cmr-client/internal/metrics"
)

// IngestClient implements ConceptWriter against the CMR ingest API.
type IngestClient struct {
	resolver  *Resolver
	validator ConceptValidator
	req       *requester
	logger    *slog.Logger
}

// NewIngestClient creates a new CMR ingest client. Every ingest is validated
// with validator before anything is written.
func NewIngestClient(resolver *Resolver, validator ConceptValidator, opts ...Option) *IngestClient {
	s := newSettings(opts)
	return &IngestClient{
		resolver:  resolver,
		validator: validator,
		req:       newRequester(s),
		logger:    s.logger,
	}
}

// IngestOption adjusts a single ingest call.
type IngestOption func(http.Header)

// WithRevisionID asks CMR to store the concept under an explicit revision.
func WithRevisionID(rev int) IngestOption {
	return func(h http.Header) {
		h.Set("Cmr-Revision-Id", strconv.Itoa(rev))
	}
}

// Ingest implements ConceptWriter. It validates first and performs no write
// when validation fails; the validation error is returned unchanged.
func (c *IngestClient) Ingest(
	ctx context.Context,
	concept Concept,
	provider string,
	headers http.Header,
	opts ...IngestOption,
) (*IngestResult, error) {
	cl := call{
		op:          "ingest",
		method:      http.MethodPut,
		body:        concept.Metadata,
		conceptType: concept.Type,
	}

	identifier, err := concept.Identifier()
	if err != nil {
		return nil, c.req.fail(err, cl.op, cl.conceptType, "")
	}
	cl.identifier = identifier

	contentType, err := concept.ContentType()
	if err != nil {
		return nil, c.req.fail(err, cl.op, cl.conceptType, identifier)
	}

	base, err := c.resolver.URL(ServiceIngest, provider)
	if err != nil {
		return nil, c.req.fail(err, cl.op, cl.conceptType, identifier)
	}

	if err := c.validator.Validate(ctx, concept, identifier, provider, headers); err != nil {
		return nil, err
	}

	cl.url = base + "/" + concept.Type.Plural() + "/" + url.PathEscape(identifier)
	cl.header = headers.Clone()
	if cl.header == nil {
		cl.header = http.Header{}
	}
	cl.header.Set("Content-Type", contentType)
	cl.header.Set("Accept", FormatEcho10.accept())
	for _, opt := range opts {
		opt(cl.header)
	}

	rep, err := c.req.do(ctx, cl)
	if err != nil {
		return nil, c.req.fail(err, cl.op, cl.conceptType, identifier)
	}
	if rep.status >= http.StatusInternalServerError {
		return nil, c.req.fail(classify(cl, rep, FormatEcho10), cl.op, cl.conceptType, identifier)
	}

	body, err := decodeXML(rep.body)
	if err != nil {
		return nil, c.req.fail(malformed(cl, rep.status, rep.body, err), cl.op, cl.conceptType, identifier)
	}

	// CMR can report logical errors inside a 200 envelope.
	if messages, details, found := xmlErrors(body); found || rep.status >= http.StatusBadRequest {
		return nil, c.req.fail(statusError(cl, rep.status, flatten(messages, details)), cl.op, cl.conceptType, identifier)
	}

	result := &IngestResult{
		Identifier: identifier,
		Response:   Response{StatusCode: rep.status, Body: body},
	}
	result.ConceptID, result.RevisionID = conceptRevision(body)

	metrics.IngestsTotal.WithLabelValues(string(concept.Type)).Inc()
	c.logger.Info("ingested concept",
		"concept_type", concept.Type,
		"identifier", identifier,
		"concept_id", result.ConceptID,
		"revision_id", result.RevisionID,
	)
	return result, nil
}

// Delete implements ConceptWriter. A 404 is the idempotent AlreadyDeleted
// outcome, not an error.
func (c *IngestClient) Delete(
	ctx context.Context,
	conceptType ConceptType,
	identifier string,
	provider string,
	headers http.Header,
) (*DeleteResult, error) {
	cl := call{
		op:          "delete",
		method:      http.MethodDelete,
		header:      headers.Clone(),
		conceptType: conceptType,
		identifier:  identifier,
	}

	base, err := c.resolver.URL(ServiceIngest, provider)
	if err != nil {
		return nil, c.req.fail(err, cl.op, conceptType, identifier)
	}
	cl.url = base + "/" + conceptType.Plural() + "/" + url.PathEscape(identifier)
	if cl.header == nil {
		cl.header = http.Header{}
	}
	cl.header.Set("Accept", FormatEcho10.accept())

	rep, err := c.req.do(ctx, cl)
	if err != nil {
		return nil, c.req.fail(err, cl.op, conceptType, identifier)
	}

	switch {
	case rep.status == http.StatusOK:
		body, err := decodeXML(rep.body)
		if err != nil {
			return nil, c.req.fail(malformed(cl, rep.status, rep.body, err), cl.op, conceptType, identifier)
		}
		result := &DeleteResult{
			Outcome:  Deleted,
			Response: Response{StatusCode: rep.status, Body: body},
		}
		result.ConceptID, result.RevisionID = conceptRevision(body)
		c.recordDelete(conceptType, identifier, result.Outcome)
		return result, nil

	case rep.status == http.StatusNotFound:
		// Body is informational only; a garbled one does not change the outcome.
		body, err := decodeXML(rep.body)
		if err != nil {
			body = map[string]any{}
		}
		result := &DeleteResult{
			Outcome:  AlreadyDeleted,
			Response: Response{StatusCode: rep.status, Body: body},
		}
		c.recordDelete(conceptType, identifier, result.Outcome)
		return result, nil

	default:
		return nil, c.req.fail(classify(cl, rep, FormatEcho10), cl.op, conceptType, identifier)
	}
}

func (c *IngestClient) recordDelete(conceptType ConceptType, identifier string, outcome DeleteOutcome) {
	metrics.DeletesTotal.WithLabelValues(string(conceptType), outcome.String()).Inc()
	c.logger.Info("deleted concept",
		"concept_type", conceptType,
		"identifier", identifier,
		"outcome", outcome,
	)
}

// conceptRevision reads concept-id and revision-id from a result envelope.
func conceptRevision(body map[string]any) (conceptID, revisionID string) {
	if v, ok := lookupPath(body, "result.concept-id"); ok {
		conceptID, _ = stringValue(v)
	}
	if v, ok := lookupPath(body, "result.revision-id"); ok {
		revisionID, _ = stringValue(v)
	}
	return conceptID, revisionID
}
