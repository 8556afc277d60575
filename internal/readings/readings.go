// Package readings implements Reading Record save/fetch: a specialised
// ingestion variant for user-saved URLs, producing a summary and key-point
// list on top of the usual Document/Chunk pipeline.
package readings

import (
	"context"
	"net/url"
	"regexp"
	"strings"
	"sync"

	"github.com/google/uuid"

	"ragcore/internal/errs"
	"ragcore/internal/ingest"
	"ragcore/internal/model"
)

// SourceGroup is the fixed corpus partition readings are ingested under,
// keeping saved-URL content out of the way of other source groups in the
// same tenant.
const SourceGroup = "readings"

var youtubeHostRe = regexp.MustCompile(`(?i)^(www\.|m\.)?(youtube\.com|youtu\.be)$`)

// Store persists and retrieves Reading Records.
type Store interface {
	Save(ctx context.Context, r model.Reading) error
	Get(ctx context.Context, readingID string) (model.Reading, bool, error)
	List(ctx context.Context, tenant string, limit int) ([]model.Reading, error)
}

// MemoryStore is an in-process Store for tests and local development.
type MemoryStore struct {
	mu       sync.RWMutex
	byID     map[string]model.Reading
	byTenant map[string][]string // tenant -> reading IDs in save order
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byID: make(map[string]model.Reading), byTenant: make(map[string][]string)}
}

func (m *MemoryStore) Save(_ context.Context, r model.Reading) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	tenant := ""
	if r.Document != nil {
		tenant = r.Document.Tenant
	}
	if _, exists := m.byID[r.ReadingID]; !exists {
		m.byTenant[tenant] = append(m.byTenant[tenant], r.ReadingID)
	}
	m.byID[r.ReadingID] = r
	return nil
}

func (m *MemoryStore) Get(_ context.Context, readingID string) (model.Reading, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.byID[readingID]
	return r, ok, nil
}

func (m *MemoryStore) List(_ context.Context, tenant string, limit int) ([]model.Reading, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := m.byTenant[tenant]
	if limit > 0 && limit < len(ids) {
		ids = ids[len(ids)-limit:]
	}
	out := make([]model.Reading, 0, len(ids))
	for _, id := range ids {
		out = append(out, m.byID[id])
	}
	return out, nil
}

// Service saves a URL as a Reading Record, ingesting its content through the
// normal pipeline and deriving a summary/key-point list extractively from
// the converted document (no reasoning-LLM call is required to satisfy the
// spec's Reading Record fields).
type Service struct {
	Pipeline *ingest.Pipeline
	Store    Store
}

func New(pipeline *ingest.Pipeline, store Store) *Service {
	return &Service{Pipeline: pipeline, Store: store}
}

// Save fetches and ingests rawURL under tenant, then persists a Reading
// Record summarising the result.
func (s *Service) Save(ctx context.Context, rawURL, tenant string) (model.Reading, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return model.Reading{}, errs.New(errs.ConfigInvalid, "invalid url: "+rawURL)
	}

	descriptor := model.SourceDescriptor{
		Kind:        model.SourceWebURL,
		Locator:     rawURL,
		Tenant:      tenant,
		SourceGroup: SourceGroup,
	}
	report, err := s.Pipeline.Ingest(ctx, descriptor)
	if err != nil {
		return model.Reading{}, err
	}

	kind := classifyURLKind(parsed)
	reading := model.Reading{
		ReadingID: uuid.NewString(),
		URL:       rawURL,
		URLKind:   kind,
	}
	if kind == model.URLKindYouTube {
		reading.KindSpecific = map[string]string{"video_id": youtubeVideoID(parsed)}
	}

	if report.Document != nil {
		reading = Hydrate(reading, *report.Document)
	} else if len(report.Warnings) > 0 {
		reading.Summary = strings.Join(report.Warnings, "; ")
	}

	if s.Store != nil {
		if err := s.Store.Save(ctx, reading); err != nil {
			return model.Reading{}, errs.Wrap(errs.Internal, "save reading record", err)
		}
	}
	return reading, nil
}

// Hydrate attaches a converted document's title/text-derived summary and
// key points onto a previously saved skeleton Reading, called once the
// owning document has been fetched back from the Storage Adapter.
func Hydrate(reading model.Reading, doc model.Document) model.Reading {
	reading.Title = doc.Title
	reading.Document = &doc
	reading.Summary = extractiveSummary(doc.Content, 2)
	reading.KeyPoints = extractKeyPoints(doc.Content, 5)
	return reading
}

// Get returns a previously saved Reading Record.
func (s *Service) Get(ctx context.Context, readingID string) (model.Reading, error) {
	if s.Store == nil {
		return model.Reading{}, errs.New(errs.IndexMissing, "no reading store configured")
	}
	r, ok, err := s.Store.Get(ctx, readingID)
	if err != nil {
		return model.Reading{}, err
	}
	if !ok {
		return model.Reading{}, errs.New(errs.IndexMissing, "reading not found: "+readingID)
	}
	return r, nil
}

// List returns the most recently saved readings for tenant, oldest first.
func (s *Service) List(ctx context.Context, tenant string, limit int) ([]model.Reading, error) {
	if s.Store == nil {
		return nil, nil
	}
	return s.Store.List(ctx, tenant, limit)
}

func classifyURLKind(u *url.URL) model.URLKind {
	if youtubeHostRe.MatchString(u.Hostname()) {
		return model.URLKindYouTube
	}
	return model.URLKindWeb
}

func youtubeVideoID(u *url.URL) string {
	if strings.Contains(u.Hostname(), "youtu.be") {
		return strings.Trim(u.Path, "/")
	}
	return u.Query().Get("v")
}

// extractiveSummary returns the first n sentences of text, a simple
// extractive stand-in for a generated abstract.
func extractiveSummary(text string, n int) string {
	sentences := regexp.MustCompile(`(?s)([^.!?]+[.!?]+)`).FindAllString(text, -1)
	if len(sentences) == 0 {
		return strings.TrimSpace(text)
	}
	if n > len(sentences) {
		n = len(sentences)
	}
	var sb strings.Builder
	for i := 0; i < n; i++ {
		sb.WriteString(strings.TrimSpace(sentences[i]))
		sb.WriteString(" ")
	}
	return strings.TrimSpace(sb.String())
}

// extractKeyPoints pulls up to n short standout lines (headings, bulleted
// items) out of text as an ordered key-point list.
func extractKeyPoints(text string, n int) []string {
	var points []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "#") || strings.HasPrefix(line, "-") || strings.HasPrefix(line, "*") {
			points = append(points, strings.TrimLeft(line, "#-* "))
		}
		if len(points) >= n {
			break
		}
	}
	return points
}
