// Package cmrtest is an in-memory CMR. It speaks enough of the token,
// search, validate and ingest APIs for pkg/cmr and cmrctl to run against it,
// and backs the mock-cmr development server.
package cmrtest

import (
	"cmp"
	"encoding/xml"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"slices"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/tidwall/gjson"

	"github.com/donaldgifford/cmr-client/internal/middleware"
	"github.com/donaldgifford/cmr-client/pkg/cmr"
)

const (
	defaultPageSize = 10
	maxPageSize     = 2000
)

// Operations counted by Calls and targeted by FailNext.
const (
	OpToken    = "token"
	OpSearch   = "search"
	OpConcept  = "concept"
	OpValidate = "validate"
	OpIngest   = "ingest"
	OpDelete   = "delete"
)

// searchParams are the query parameters the search endpoints accept. Anything
// else is rejected the way CMR rejects unknown parameters.
var searchParams = map[string]struct{}{
	"page_size": {}, "page_num": {}, "provider": {}, "provider_short_name": {},
	"native_id": {}, "granule_ur": {}, "entry_title": {}, "dataset_id": {},
	"concept_id": {}, "short_name": {}, "version": {}, "collection_concept_id": {},
	"has_granules": {}, "temporal": {}, "bounding_box": {}, "updated_since": {},
	"sort_key": {},
}

type recordKey struct {
	provider    string
	conceptType cmr.ConceptType
	nativeID    string
}

type record struct {
	seq       int
	conceptID string
	key       recordKey
	revision  int
	format    cmr.Format
	metadata  []byte
	deleted   bool
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger. The default discards output.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithUser registers credentials the token endpoint accepts. With no users
// registered any non-empty username is accepted.
func WithUser(username, password string) Option {
	return func(s *Server) {
		s.users[username] = password
	}
}

// WithRequireToken makes validate, ingest and delete demand a token issued by
// the token endpoint or registered with AddToken.
func WithRequireToken() Option {
	return func(s *Server) {
		s.requireToken = true
	}
}

// Server is an in-memory CMR. The zero value is not usable; call New.
type Server struct {
	logger       *slog.Logger
	echo         *echo.Echo
	requireToken bool

	mu         sync.Mutex
	records    map[recordKey]*record
	nextSeq    int
	users      map[string]string
	tokens     map[string]struct{}
	rejections map[string][]string
	failures   map[string]int
	calls      map[string]int
}

// New creates a Server with its routes registered.
func New(opts ...Option) *Server {
	s := &Server{
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		records:    make(map[recordKey]*record),
		users:      make(map[string]string),
		tokens:     make(map[string]struct{}),
		rejections: make(map[string][]string),
		failures:   make(map[string]int),
		calls:      make(map[string]int),
	}
	for _, opt := range opts {
		opt(s)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recovery(s.logger))
	e.Use(middleware.Metrics())
	e.Use(middleware.RequestLog(s.logger))

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.POST("/legacy-services/rest/tokens", s.handleToken)
	e.GET("/search/concepts/:file", s.handleConcept)
	e.GET("/search/:resource", s.handleSearch)
	e.POST("/ingest/providers/:provider/validate/:type/:id", s.handleValidate)
	e.PUT("/ingest/providers/:provider/:plural/:id", s.handleIngest)
	e.DELETE("/ingest/providers/:provider/:plural/:id", s.handleDelete)

	s.echo = e
	return s
}

// Start serves s on a local httptest server closed when tb finishes and
// returns the server's base URL.
func Start(tb testing.TB, opts ...Option) (*Server, string) {
	tb.Helper()

	s := New(opts...)
	srv := httptest.NewServer(s.Handler())
	tb.Cleanup(srv.Close)
	return s, srv.URL
}

// Handler returns the HTTP handler serving the CMR API.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Echo exposes the router so callers can mount extra routes such as /metrics.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// AddToken registers a pre-issued token.
func (s *Server) AddToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[token] = struct{}{}
}

// Reject makes validation of identifier fail with messages.
func (s *Server) Reject(identifier string, messages ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rejections[identifier] = messages
}

// FailNext makes the next n requests of op answer 503.
func (s *Server) FailNext(op string, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[op] = n
}

// Calls reports how many requests of op have been received.
func (s *Server) Calls(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

// Seed stores a concept directly, bypassing validation and auth, and returns
// its concept id.
func (s *Server) Seed(provider string, concept cmr.Concept) (string, error) {
	id, err := concept.Identifier()
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	rec, _ := s.putLocked(recordKey{provider: provider, conceptType: concept.Type, nativeID: id}, concept, 0)
	return rec.conceptID, nil
}

// Concept returns the stored metadata and revision of a live concept.
func (s *Server) Concept(provider string, conceptType cmr.ConceptType, nativeID string) ([]byte, int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[recordKey{provider: provider, conceptType: conceptType, nativeID: nativeID}]
	if !ok || rec.deleted {
		return nil, 0, false
	}
	return slices.Clone(rec.metadata), rec.revision, true
}

// begin counts a request and reports whether it should fail with 503.
func (s *Server) begin(op string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls[op]++
	if s.failures[op] > 0 {
		s.failures[op]--
		return true
	}
	return false
}

func (s *Server) putLocked(key recordKey, concept cmr.Concept, revision int) (*record, bool) {
	rec, exists := s.records[key]
	if !exists {
		s.nextSeq++
		rec = &record{
			seq:       s.nextSeq,
			conceptID: conceptID(key, s.nextSeq),
			key:       key,
		}
		s.records[key] = rec
	}

	if revision == 0 {
		revision = rec.revision + 1
	}
	rec.revision = revision
	rec.format = concept.Format
	rec.metadata = slices.Clone(concept.Metadata)
	rec.deleted = false
	return rec, !exists
}

func conceptID(key recordKey, seq int) string {
	prefix := "C"
	if key.conceptType == cmr.Granule {
		prefix = "G"
	}
	return prefix + strconv.Itoa(1200000000+seq) + "-" + key.provider
}

// matching returns the live records of conceptType accepted by the search
// filters, in ingest order.
func (s *Server) matching(conceptType cmr.ConceptType, q map[string][]string) []*record {
	s.mu.Lock()
	defer s.mu.Unlock()

	providers := append(slices.Clone(q["provider"]), q["provider_short_name"]...)
	var nativeIDs []string
	for _, k := range []string{"native_id", "granule_ur", "entry_title", "dataset_id"} {
		nativeIDs = append(nativeIDs, q[k]...)
	}
	conceptIDs := q["concept_id"]

	var out []*record
	for _, rec := range s.records {
		switch {
		case rec.deleted, rec.key.conceptType != conceptType:
			continue
		case len(providers) > 0 && !slices.Contains(providers, rec.key.provider):
			continue
		case len(nativeIDs) > 0 && !slices.Contains(nativeIDs, rec.key.nativeID):
			continue
		case len(conceptIDs) > 0 && !slices.Contains(conceptIDs, rec.conceptID):
			continue
		}
		out = append(out, rec)
	}
	slices.SortFunc(out, func(a, b *record) int { return cmp.Compare(a.seq, b.seq) })
	return out
}

func (s *Server) authorized(c echo.Context) bool {
	if !s.requireToken {
		return true
	}

	h := c.Request().Header
	token := h.Get("Echo-Token")
	if token == "" {
		token = strings.TrimPrefix(h.Get("Authorization"), "Bearer ")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.tokens[token]
	return ok && token != ""
}

// xmlErrorBody is CMR's XML error envelope.
type xmlErrorBody struct {
	XMLName xml.Name `xml:"errors"`
	Errors  []string `xml:"error"`
}

// xmlResult is CMR's XML ingest and delete envelope.
type xmlResult struct {
	XMLName    xml.Name `xml:"result"`
	ConceptID  string   `xml:"concept-id"`
	RevisionID int      `xml:"revision-id"`
}

// wantsJSON reports whether errors for this request are written as JSON.
func wantsJSON(c echo.Context) bool {
	return strings.Contains(c.Request().Header.Get("Accept"), "json")
}

func writeErrors(c echo.Context, asJSON bool, status int, messages ...string) error {
	if asJSON {
		return c.JSON(status, map[string][]string{"errors": messages})
	}
	return c.XML(status, xmlErrorBody{Errors: messages})
}

// unavailable answers a scheduled failure.
func unavailable(c echo.Context, asJSON bool) error {
	return writeErrors(c, asJSON, http.StatusServiceUnavailable, "Service temporarily unavailable")
}

func (s *Server) handleToken(c echo.Context) error {
	if s.begin(OpToken) {
		return unavailable(c, true)
	}

	body, err := io.ReadAll(c.Request().Body)
	if err != nil || !gjson.ValidBytes(body) {
		return writeErrors(c, true, http.StatusBadRequest, "Invalid JSON in token request")
	}

	username := gjson.GetBytes(body, "token.username").String()
	password := gjson.GetBytes(body, "token.password").String()

	s.mu.Lock()
	want, known := s.users[username]
	checked := len(s.users) > 0
	s.mu.Unlock()

	if username == "" || (checked && (!known || want != password)) {
		return writeErrors(c, true, http.StatusUnauthorized, "Invalid username or password, please retry.")
	}

	token := uuid.NewString()
	s.AddToken(token)

	return c.JSON(http.StatusCreated, map[string]any{
		"token": map[string]any{
			"id":        token,
			"username":  username,
			"client_id": gjson.GetBytes(body, "token.client_id").String(),
		},
	})
}

func (s *Server) handleSearch(c echo.Context) error {
	if s.begin(OpSearch) {
		return unavailable(c, true)
	}

	plural, ext, _ := strings.Cut(c.Param("resource"), ".")
	conceptType, err := cmr.ParseConceptType(plural)
	if err != nil || plural != conceptType.Plural() {
		return writeErrors(c, true, http.StatusNotFound, "The resource ["+c.Param("resource")+"] was not found.")
	}
	if ext != "json" && ext != "umm_json" {
		return writeErrors(c, true, http.StatusBadRequest, "The URL extension ["+ext+"] is not supported.")
	}

	q := c.QueryParams()
	for k := range q {
		if _, ok := searchParams[k]; !ok {
			return writeErrors(c, true, http.StatusBadRequest, "Parameter ["+k+"] was not recognized.")
		}
	}

	pageSize, err := intParam(q.Get("page_size"), defaultPageSize)
	if err != nil || pageSize < 0 || pageSize > maxPageSize {
		return writeErrors(c, true, http.StatusBadRequest, "page_size must be a number between 0 and 2000")
	}
	pageNum, err := intParam(q.Get("page_num"), 1)
	if err != nil || pageNum < 1 {
		return writeErrors(c, true, http.StatusBadRequest, "page_num must be a number greater than or equal to 1")
	}

	matched := s.matching(conceptType, q)
	start := min((pageNum-1)*pageSize, len(matched))
	end := min(start+pageSize, len(matched))
	page := matched[start:end]

	c.Response().Header().Set("CMR-Hits", strconv.Itoa(len(matched)))
	c.Response().Header().Set("CMR-Took", "1")

	if ext == "umm_json" {
		items := make([]map[string]any, 0, len(page))
		for _, rec := range page {
			items = append(items, ummItem(rec))
		}
		return c.JSON(http.StatusOK, map[string]any{
			"hits":  len(matched),
			"took":  1,
			"items": items,
		})
	}

	entries := make([]map[string]any, 0, len(page))
	for _, rec := range page {
		entries = append(entries, map[string]any{
			"id":          rec.conceptID,
			"title":       rec.key.nativeID,
			"data_center": rec.key.provider,
		})
	}
	return c.JSON(http.StatusOK, map[string]any{
		"feed": map[string]any{
			"updated": "",
			"id":      c.Request().URL.String(),
			"title":   "ECHO " + conceptType.Plural() + " metadata",
			"entry":   entries,
		},
	})
}

func ummItem(rec *record) map[string]any {
	var umm any = map[string]any{}
	if rec.format == cmr.FormatUMMJSON && gjson.ValidBytes(rec.metadata) {
		umm = gjson.ParseBytes(rec.metadata).Value()
	}
	return map[string]any{
		"meta": map[string]any{
			"concept-id":   rec.conceptID,
			"revision-id":  rec.revision,
			"native-id":    rec.key.nativeID,
			"provider-id":  rec.key.provider,
			"concept-type": string(rec.key.conceptType),
			"format":       mediaType(rec.format),
		},
		"umm": umm,
	}
}

func mediaType(f cmr.Format) string {
	if f == cmr.FormatUMMJSON {
		return "application/vnd.nasa.cmr.umm+json"
	}
	return "application/echo10+xml"
}

func intParam(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}

func (s *Server) handleConcept(c echo.Context) error {
	file := c.Param("file")
	id, ext, _ := strings.Cut(file, ".")
	asJSON := ext == "umm_json" || ext == "json"

	if s.begin(OpConcept) {
		return unavailable(c, asJSON)
	}

	s.mu.Lock()
	var found *record
	for _, rec := range s.records {
		if rec.conceptID == id && !rec.deleted {
			found = rec
			break
		}
	}
	s.mu.Unlock()

	if found == nil {
		return writeErrors(c, asJSON, http.StatusNotFound, "Concept with concept-id ["+id+"] could not be found.")
	}

	want := cmr.FormatEcho10
	if ext == "umm_json" {
		want = cmr.FormatUMMJSON
	}
	if ext != "" && found.format != want {
		return writeErrors(c, asJSON, http.StatusBadRequest,
			"Concept ["+id+"] is stored as "+string(found.format)+" and cannot be returned as "+string(want)+".")
	}

	return c.Blob(http.StatusOK, mediaType(found.format), found.metadata)
}

// readConcept decodes the request body into a concept of the given type,
// reporting an HTTP status and message when the content type is unusable.
func readConcept(c echo.Context, conceptType cmr.ConceptType) (cmr.Concept, int, string) {
	ct := c.Request().Header.Get("Content-Type")
	var format cmr.Format
	switch {
	case strings.HasPrefix(ct, "application/echo10+xml"):
		format = cmr.FormatEcho10
	case strings.HasPrefix(ct, "application/vnd.nasa.cmr.umm+json"):
		format = cmr.FormatUMMJSON
	default:
		return cmr.Concept{}, http.StatusUnsupportedMediaType, "Invalid content-type: " + ct
	}

	body, err := io.ReadAll(c.Request().Body)
	if err != nil || len(body) == 0 {
		return cmr.Concept{}, http.StatusBadRequest, "Request content is too short."
	}
	return cmr.Concept{Type: conceptType, Format: format, Metadata: body}, 0, ""
}

// check returns the validation messages for concept stored under nativeID.
func (s *Server) check(concept cmr.Concept, nativeID string) []string {
	id, err := concept.Identifier()
	if err != nil {
		return []string{"Metadata is not well-formed or is missing its identifier."}
	}
	if id != nativeID {
		return []string{"The native id [" + nativeID + "] does not match the identifier [" + id + "] in the metadata."}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.rejections[id])
}

func (s *Server) handleValidate(c echo.Context) error {
	asJSON := wantsJSON(c)
	if s.begin(OpValidate) {
		return unavailable(c, asJSON)
	}
	if !s.authorized(c) {
		return writeErrors(c, asJSON, http.StatusUnauthorized, "Token does not exist")
	}

	conceptType, err := cmr.ParseConceptType(c.Param("type"))
	if err != nil || c.Param("type") != string(conceptType) {
		return writeErrors(c, asJSON, http.StatusNotFound, "Unknown concept type ["+c.Param("type")+"]")
	}

	concept, status, msg := readConcept(c, conceptType)
	if status != 0 {
		return writeErrors(c, asJSON, status, msg)
	}
	if messages := s.check(concept, c.Param("id")); len(messages) > 0 {
		return writeErrors(c, asJSON, http.StatusBadRequest, messages...)
	}
	return c.NoContent(http.StatusOK)
}

// writeTarget resolves the record key named by an ingest or delete path.
func writeTarget(c echo.Context) (recordKey, bool) {
	conceptType, err := cmr.ParseConceptType(c.Param("plural"))
	if err != nil || c.Param("plural") != conceptType.Plural() {
		return recordKey{}, false
	}
	return recordKey{provider: c.Param("provider"), conceptType: conceptType, nativeID: c.Param("id")}, true
}

func (s *Server) handleIngest(c echo.Context) error {
	if s.begin(OpIngest) {
		return unavailable(c, false)
	}
	if !s.authorized(c) {
		return writeErrors(c, false, http.StatusUnauthorized, "Token does not exist")
	}

	key, ok := writeTarget(c)
	if !ok {
		return writeErrors(c, false, http.StatusNotFound, "Unknown concept type ["+c.Param("plural")+"]")
	}

	concept, status, msg := readConcept(c, key.conceptType)
	if status != 0 {
		return writeErrors(c, false, status, msg)
	}
	if messages := s.check(concept, key.nativeID); len(messages) > 0 {
		return writeErrors(c, false, http.StatusBadRequest, messages...)
	}

	revision := 0
	if raw := c.Request().Header.Get("Cmr-Revision-Id"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return writeErrors(c, false, http.StatusBadRequest, "Invalid revision-id ["+raw+"]. Cmr-Revision-id in the header must be a positive integer.")
		}
		revision = n
	}

	s.mu.Lock()
	if existing, found := s.records[key]; found && revision != 0 && revision <= existing.revision {
		current := existing.revision
		cid := existing.conceptID
		s.mu.Unlock()
		return writeErrors(c, false, http.StatusConflict,
			"Expected revision-id of ["+strconv.Itoa(current+1)+"] got ["+strconv.Itoa(revision)+"] for ["+cid+"]")
	}
	rec, created := s.putLocked(key, concept, revision)
	result := xmlResult{ConceptID: rec.conceptID, RevisionID: rec.revision}
	s.mu.Unlock()

	status = http.StatusOK
	if created {
		status = http.StatusCreated
	}
	return c.XML(status, result)
}

func (s *Server) handleDelete(c echo.Context) error {
	if s.begin(OpDelete) {
		return unavailable(c, false)
	}
	if !s.authorized(c) {
		return writeErrors(c, false, http.StatusUnauthorized, "Token does not exist")
	}

	key, ok := writeTarget(c)
	if !ok {
		return writeErrors(c, false, http.StatusNotFound, "Unknown concept type ["+c.Param("plural")+"]")
	}

	s.mu.Lock()
	rec, found := s.records[key]
	if !found || rec.deleted {
		s.mu.Unlock()
		return writeErrors(c, false, http.StatusNotFound,
			"Concept with native-id ["+key.nativeID+"] and provider-id ["+key.provider+"] is already deleted.")
	}
	rec.deleted = true
	rec.revision++
	result := xmlResult{ConceptID: rec.conceptID, RevisionID: rec.revision}
	s.mu.Unlock()

	return c.XML(http.StatusOK, result)
}
