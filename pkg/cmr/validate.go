package cmr

import (
	"context"
	"net/http"
	"net/url"
)

// Validator implements ConceptValidator against the CMR ingest validate
// endpoint.
type Validator struct {
	resolver *Resolver
	req      *requester
}

// NewValidator creates a new CMR metadata validator.
func NewValidator(resolver *Resolver, opts ...Option) *Validator {
	return &Validator{
		resolver: resolver,
		req:      newRequester(newSettings(opts)),
	}
}

// Validate implements ConceptValidator. Only HTTP 200 is success; any other
// answer with a decodable error body becomes a *ValidationError holding
// CMR's messages verbatim.
func (v *Validator) Validate(
	ctx context.Context,
	concept Concept,
	identifier string,
	provider string,
	headers http.Header,
) error {
	cl := call{
		op:          "validate",
		method:      http.MethodPost,
		body:        concept.Metadata,
		conceptType: concept.Type,
		identifier:  identifier,
	}

	contentType, err := concept.ContentType()
	if err != nil {
		return v.req.fail(err, cl.op, cl.conceptType, identifier)
	}

	base, err := v.resolver.URL(ServiceValidate, provider)
	if err != nil {
		return v.req.fail(err, cl.op, cl.conceptType, identifier)
	}
	cl.url = base + "/" + string(concept.Type) + "/" + url.PathEscape(identifier)

	cl.header = headers.Clone()
	if cl.header == nil {
		cl.header = http.Header{}
	}
	cl.header.Set("Content-Type", contentType)
	cl.header.Set("Accept", concept.Format.accept())

	rep, err := v.req.do(ctx, cl)
	if err != nil {
		return v.req.fail(err, cl.op, cl.conceptType, identifier)
	}
	if rep.status == http.StatusOK {
		return nil
	}
	if rep.status >= http.StatusInternalServerError {
		return v.req.fail(classify(cl, rep, concept.Format), cl.op, cl.conceptType, identifier)
	}

	messages, details, err := decodeErrorBody(concept.Format, rep.body)
	if err != nil {
		return v.req.fail(malformed(cl, rep.status, rep.body, err), cl.op, cl.conceptType, identifier)
	}

	return v.req.fail(&ValidationError{
		ConceptType: concept.Type,
		Identifier:  identifier,
		StatusCode:  rep.status,
		Messages:    messages,
		Details:     details,
	}, cl.op, cl.conceptType, identifier)
}
