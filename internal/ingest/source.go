// Package ingest implements the Ingestion Pipeline: fetch raw bytes for a
// Source Descriptor, convert them to a CanonicalDocument, fingerprint and
// chunk it, embed the fragments, and upsert the result into the configured
// storage Adapter.
package ingest

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"ragcore/internal/convert"
	"ragcore/internal/errs"
	"ragcore/internal/model"
	"ragcore/internal/objectstore"
)

// Fetched is the raw bytes pulled for a SourceDescriptor, plus the format
// key used to look up a convert.Handler.
type Fetched struct {
	Data   []byte
	Format string
}

// Fetcher retrieves raw bytes for a SourceDescriptor.
type Fetcher interface {
	Fetch(ctx context.Context, d model.SourceDescriptor) (Fetched, error)
}

// Fetchers dispatches to the registered Fetcher for a SourceKind.
type Fetchers map[model.SourceKind]Fetcher

// NewDefaultFetchers wires every built-in Fetcher. objStore may be nil if
// uploaded_blob sources are not used; driveClient may be nil if drive_file
// sources are not used.
func NewDefaultFetchers(objStore objectstore.ObjectStore, driveClient DriveClient) Fetchers {
	return Fetchers{
		model.SourceLocalFile:       LocalFileFetcher{},
		model.SourceWebURL:          WebURLFetcher{},
		model.SourceUploadedBlob:    UploadedBlobFetcher{Store: objStore},
		model.SourceDriveFile:       DriveFileFetcher{Client: driveClient},
		model.SourceAudioTranscript: AudioTranscriptFetcher{},
	}
}

func (f Fetchers) Fetch(ctx context.Context, d model.SourceDescriptor) (Fetched, error) {
	fetcher, ok := f[d.Kind]
	if !ok {
		return Fetched{}, errs.New(errs.ConfigInvalid, "no fetcher registered for source kind: "+string(d.Kind))
	}
	return fetcher.Fetch(ctx, d)
}

// LocalFileFetcher reads bytes from the local filesystem, skipping files
// whose content isn't a recognized convertible format.
type LocalFileFetcher struct{}

func (LocalFileFetcher) Fetch(_ context.Context, d model.SourceDescriptor) (Fetched, error) {
	data, err := os.ReadFile(d.Locator)
	if err != nil {
		return Fetched{}, errs.Wrap(errs.SourceUnreadable, "read local file: "+d.Locator, err)
	}
	format := formatFromExtension(d.Locator)
	if format == "" && looksBinary(data) {
		return Fetched{}, errs.New(errs.SourceUnreadable, "local file is binary and not a recognised format: "+d.Locator)
	}
	if format == "" {
		format = "txt"
	}
	return Fetched{Data: data, Format: format}, nil
}

func looksBinary(data []byte) bool {
	sample := data
	if len(sample) > 512 {
		sample = sample[:512]
	}
	for _, b := range sample {
		if b == 0 {
			return true
		}
	}
	ct := http.DetectContentType(sample)
	return !strings.HasPrefix(ct, "text/") && ct != "application/octet-stream" && !strings.Contains(ct, "xml")
}

func formatFromExtension(locator string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(locator), "."))
	switch ext {
	case "pdf", "docx", "xlsx", "md", "markdown", "txt", "html", "wav", "mp3", "m4a":
		return ext
	case "htm":
		return "html"
	default:
		return ""
	}
}

// WebURLFetcher renders a URL with a headless browser via
// convert.FetchWebPage. Crawl-depth enumeration of linked same-origin URLs
// is the caller's responsibility (Pipeline.IngestWithCrawl), since each discovered
// link becomes an independent SourceDescriptor inheriting the parent's
// tenant/source_group.
type WebURLFetcher struct{}

func (WebURLFetcher) Fetch(ctx context.Context, d model.SourceDescriptor) (Fetched, error) {
	html, err := convert.FetchWebPage(ctx, d.Locator)
	if err != nil {
		return Fetched{}, err
	}
	return Fetched{Data: []byte(html), Format: "web"}, nil
}

// UploadedBlobFetcher reads bytes from object storage at the locator key.
type UploadedBlobFetcher struct {
	Store objectstore.ObjectStore
}

func (f UploadedBlobFetcher) Fetch(ctx context.Context, d model.SourceDescriptor) (Fetched, error) {
	if f.Store == nil {
		return Fetched{}, errs.New(errs.DependencyUnavailable, "no object store configured for uploaded_blob source")
	}
	rc, attrs, err := f.Store.Get(ctx, d.Locator)
	if err != nil {
		return Fetched{}, errs.Wrap(errs.SourceUnreadable, "read uploaded blob: "+d.Locator, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return Fetched{}, errs.Wrap(errs.SourceUnreadable, "read uploaded blob body: "+d.Locator, err)
	}
	format := formatFromExtension(d.Locator)
	if format == "" {
		format = formatFromContentType(attrs.ContentType)
	}
	return Fetched{Data: data, Format: format}, nil
}

func formatFromContentType(ct string) string {
	switch {
	case strings.Contains(ct, "pdf"):
		return "pdf"
	case strings.Contains(ct, "spreadsheet"):
		return "xlsx"
	case strings.Contains(ct, "wordprocessing"):
		return "docx"
	case strings.Contains(ct, "html"):
		return "html"
	default:
		return "txt"
	}
}

// DriveClient abstracts a remote drive API (Google Drive, SharePoint, ...).
type DriveClient interface {
	Download(ctx context.Context, fileID string, credentialRef string) ([]byte, string, error)
}

// DriveFileFetcher fetches bytes via drive credentials resolved from the
// SourceDescriptor's options. No drive provider ships by default; configure
// one by constructing a DriveFileFetcher with a non-nil Client.
type DriveFileFetcher struct {
	Client DriveClient
}

func (f DriveFileFetcher) Fetch(ctx context.Context, d model.SourceDescriptor) (Fetched, error) {
	if f.Client == nil {
		return Fetched{}, errs.New(errs.DependencyUnavailable, "no drive client configured for drive_file source")
	}
	data, mimeType, err := f.Client.Download(ctx, d.Locator, d.Options.CredentialsRef)
	if err != nil {
		return Fetched{}, errs.Wrap(errs.SourceUnreadable, "fetch drive file: "+d.Locator, err)
	}
	format := formatFromContentType(mimeType)
	return Fetched{Data: data, Format: format}, nil
}

// AudioTranscriptFetcher reads an audio file for speech-to-text conversion.
// Locally stored audio uses the same path as local_file; remote audio
// (object storage) should be routed through uploaded_blob instead.
type AudioTranscriptFetcher struct{}

func (AudioTranscriptFetcher) Fetch(_ context.Context, d model.SourceDescriptor) (Fetched, error) {
	data, err := os.ReadFile(d.Locator)
	if err != nil {
		return Fetched{}, errs.Wrap(errs.SourceUnreadable, "read audio file: "+d.Locator, err)
	}
	return Fetched{Data: data, Format: "audio"}, nil
}
