package cmr

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

const (
	defaultPageSize = 50
	maxPageSize     = 2000
)

// SearchClient implements PageFetcher against the CMR search API.
type SearchClient struct {
	resolver *Resolver
	provider string
	pageSize int
	req      *requester
}

// NewSearchClient creates a new CMR search client.
func NewSearchClient(resolver *Resolver, opts ...Option) *SearchClient {
	s := newSettings(opts)
	return &SearchClient{
		resolver: resolver,
		provider: s.provider,
		pageSize: s.pageSize,
		req:      newRequester(s),
	}
}

// PageSize is the page size used when a query does not set one.
func (c *SearchClient) PageSize() int {
	return c.pageSize
}

// FetchPage implements PageFetcher. It issues exactly one GET.
func (c *SearchClient) FetchPage(
	ctx context.Context,
	query SearchQuery,
	headers http.Header,
) (*SearchPage, error) {
	if query.PageSize == 0 {
		query.PageSize = c.pageSize
	}
	if query.PageNumber == 0 {
		query.PageNumber = 1
	}
	if err := query.validate(); err != nil {
		return nil, err
	}

	u, err := c.searchURL(query)
	if err != nil {
		return nil, err
	}

	cl := call{
		op:          "search",
		method:      http.MethodGet,
		url:         u,
		header:      headers,
		conceptType: query.ConceptType,
	}
	rep, err := c.req.do(ctx, cl)
	if err != nil {
		return nil, c.req.fail(err, cl.op, cl.conceptType, "")
	}

	if rep.status != http.StatusOK {
		return nil, c.req.fail(classify(cl, rep, FormatUMMJSON), cl.op, cl.conceptType, "")
	}

	page, err := parseSearchPage(rep, query)
	if err != nil {
		return nil, c.req.fail(malformed(cl, rep.status, rep.body, err), cl.op, cl.conceptType, "")
	}
	return page, nil
}

func (c *SearchClient) searchURL(query SearchQuery) (string, error) {
	base, err := c.resolver.URL(ServiceSearch, "")
	if err != nil {
		return "", err
	}

	params := query.Params.Clone()
	if c.provider != "" && params.Get("provider_short_name") == "" {
		params.Add("provider_short_name", c.provider)
	}
	params.Set("page_num", strconv.Itoa(query.PageNumber))
	params.Set("page_size", strconv.Itoa(query.PageSize))

	return base + "/" + query.ConceptType.Plural() + query.Format.searchSuffix() +
		"?" + params.Encode(), nil
}

// parseSearchPage pulls the item list and hit count out of a search reply.
// CMR errors come back as JSON for both search formats.
func parseSearchPage(rep *reply, query SearchQuery) (*SearchPage, error) {
	if !gjson.ValidBytes(rep.body) {
		return nil, fmt.Errorf("search response is not valid JSON")
	}

	items := make([]Item, 0, query.PageSize)
	list := gjson.GetBytes(rep.body, query.Format.itemsPath())
	switch {
	case list.IsArray():
		list.ForEach(func(_, v gjson.Result) bool {
			items = append(items, Item(v.Raw))
			return true
		})
	case list.IsObject():
		items = append(items, Item(list.Raw))
	}
	if len(items) > query.PageSize {
		return nil, fmt.Errorf("page holds %d items, more than page size %d", len(items), query.PageSize)
	}

	hits := 0
	if raw := strings.TrimSpace(rep.header.Get(headerHits)); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s header %q", headerHits, raw)
		}
		hits = n
	}

	return &SearchPage{
		Items:      items,
		TotalHits:  hits,
		PageNumber: query.PageNumber,
	}, nil
}

// GetConcept fetches the native metadata document of a single concept by its
// CMR concept id, in ECHO10 XML or UMM-JSON.
func (c *SearchClient) GetConcept(
	ctx context.Context,
	conceptID string,
	format Format,
	headers http.Header,
) ([]byte, error) {
	if strings.TrimSpace(conceptID) == "" {
		return nil, fmt.Errorf("%w: empty concept id", ErrInvalidConcept)
	}

	base, err := c.resolver.URL(ServiceSearch, "")
	if err != nil {
		return nil, err
	}

	suffix := ".echo10"
	if format == FormatUMMJSON {
		suffix = ".umm_json"
	}

	cl := call{
		op:         "concept",
		method:     http.MethodGet,
		url:        base + "/concepts/" + url.PathEscape(conceptID) + suffix,
		header:     headers,
		identifier: conceptID,
	}
	rep, err := c.req.do(ctx, cl)
	if err != nil {
		return nil, c.req.fail(err, cl.op, "", conceptID)
	}
	if rep.status != http.StatusOK {
		return nil, c.req.fail(classify(cl, rep, format), cl.op, "", conceptID)
	}
	return rep.body, nil
}
