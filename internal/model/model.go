// Package model defines the durable record types of the ingestion/retrieval
// core: Source Descriptor, Document Record, Chunk Record, Job Record, and
// Reading Record, per the data model.
package model

import "time"

// SourceKind identifies the origin of a Source Descriptor.
type SourceKind string

const (
	SourceLocalFile       SourceKind = "local_file"
	SourceWebURL          SourceKind = "web_url"
	SourceDriveFile       SourceKind = "drive_file"
	SourceUploadedBlob    SourceKind = "uploaded_blob"
	SourceAudioTranscript SourceKind = "audio_transcript"
)

// SourceDescriptor is a request to ingest one source.
type SourceDescriptor struct {
	Kind        SourceKind     `json:"kind"`
	Locator     string         `json:"locator"`
	Tenant      string         `json:"tenant,omitempty"`
	SourceGroup string         `json:"source_group,omitempty"`
	Options     SourceOptions  `json:"options,omitempty"`
}

// SourceOptions carries kind-specific knobs.
type SourceOptions struct {
	CrawlDepth       int    `json:"crawl_depth,omitempty"`
	MaxDepth         int    `json:"max_depth,omitempty"`
	CredentialsRef   string `json:"credentials_ref,omitempty"`
	ChunkerProfile   string `json:"chunker_profile,omitempty"`
	MaxTokens        int    `json:"max_tokens,omitempty"`
}

// Partition is the (tenant, source_group) pair scoping dedup and search filters.
type Partition struct {
	Tenant      string
	SourceGroup string
}

// Document is one record per ingested source.
type Document struct {
	DocumentID    string            `json:"document_id"`
	Title         string            `json:"title"`
	SourceLocator string            `json:"source_locator"`
	SourceKind    SourceKind        `json:"source_kind"`
	Content       string            `json:"content"`
	Frontmatter   map[string]string `json:"frontmatter,omitempty"`
	IngestedAt    time.Time         `json:"ingested_at"`
	ContentHash   string            `json:"content_hash"`
	Tenant        string            `json:"tenant,omitempty"`
	SourceGroup   string            `json:"source_group,omitempty"`
}

// ChunkerMethod records which strategy produced a Chunk.
type ChunkerMethod string

const (
	ChunkerStructureAware ChunkerMethod = "structure_aware"
	ChunkerFallback       ChunkerMethod = "fallback"
)

// Chunk is one record per fragment of a Document.
type Chunk struct {
	ChunkID       string            `json:"chunk_id"`
	DocumentID    string            `json:"document_id"`
	ChunkIndex    int               `json:"chunk_index"`
	Content       string            `json:"content"`
	TokenCount    int               `json:"token_count"`
	Embedding     []float32         `json:"embedding,omitempty"`
	ContentHash   string            `json:"content_hash"`
	Context       []string          `json:"context,omitempty"`
	ChunkerMethod ChunkerMethod     `json:"chunker_method"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// JobStatus is a state in the job state machine (§4.9).
type JobStatus string

const (
	JobQueued   JobStatus = "queued"
	JobRunning  JobStatus = "running"
	JobFinished JobStatus = "finished"
	JobFailed   JobStatus = "failed"
)

// JobResult summarises a finished job's outcome.
type JobResult struct {
	DocumentsIngested int      `json:"documents_ingested"`
	ChunksIngested    int      `json:"chunks_ingested"`
	Warnings          []string `json:"warnings,omitempty"`
}

// Job is one record per ingestion submission.
type Job struct {
	JobID       string           `json:"job_id"`
	SourceType  SourceKind       `json:"source_type"`
	Payload     SourceDescriptor `json:"payload"`
	Status      JobStatus        `json:"status"`
	EnqueuedAt  time.Time        `json:"enqueued_at"`
	StartedAt   *time.Time       `json:"started_at,omitempty"`
	FinishedAt  *time.Time       `json:"finished_at,omitempty"`
	Error       *string          `json:"error,omitempty"`
	Result      *JobResult       `json:"result,omitempty"`
}

// Terminal reports whether the job is in an immutable terminal state.
func (j *Job) Terminal() bool {
	return j.Status == JobFinished || j.Status == JobFailed
}

// RelatedLink appears in a Reading Record's related_links list.
type RelatedLink struct {
	URL     string `json:"url"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// URLKind distinguishes a saved reading's source shape.
type URLKind string

const (
	URLKindWeb     URLKind = "web"
	URLKindYouTube URLKind = "youtube"
)

// Reading is one record per user-saved URL — a specialised ingestion variant.
type Reading struct {
	ReadingID    string            `json:"reading_id"`
	URL          string            `json:"url"`
	URLKind      URLKind           `json:"url_kind"`
	Title        string            `json:"title"`
	Summary      string            `json:"summary"`
	KeyPoints    []string          `json:"key_points,omitempty"`
	RelatedLinks []RelatedLink     `json:"related_links,omitempty"`
	KindSpecific map[string]string `json:"kind_specific,omitempty"`

	// Populated when the reading's content was ingested into the document store.
	Document *Document `json:"document,omitempty"`
}

// IngestReport is the Ingestion Pipeline's outcome for one Source Descriptor.
type IngestReport struct {
	DocumentsIngested int       `json:"documents_ingested"`
	ChunksIngested    int       `json:"chunks_ingested"`
	Warnings          []string  `json:"warnings,omitempty"`
	Document          *Document `json:"document,omitempty"`
}

// RetrieveMode selects which branch(es) the Retrieval Engine executes.
type RetrieveMode string

const (
	ModeSemantic RetrieveMode = "semantic"
	ModeLexical  RetrieveMode = "lexical"
	ModeHybrid   RetrieveMode = "hybrid"
)

// Filter constrains a search to a corpus partition.
type Filter struct {
	Tenant      string `json:"tenant,omitempty"`
	SourceGroup string `json:"source_group,omitempty"`
}

// HydratedChunk is a retrieval result joined with its owning document's metadata.
type HydratedChunk struct {
	Chunk          Chunk   `json:"chunk"`
	DocumentTitle  string  `json:"document_title"`
	SourceLocator  string  `json:"source_locator"`
	Score          float64 `json:"score"`
}
