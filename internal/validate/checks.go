package validate

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"time"

	"ragcore/internal/embedder"
	"ragcore/internal/storage"
)

// Deps bundles the live components a capability check needs a handle to.
// Any field left nil means that capability, if required, fails closed with
// a "not configured" diagnosis rather than a panic.
type Deps struct {
	Store             storage.Adapter
	Embedder          embedder.Client
	QueuePing         func(ctx context.Context) error // e.g. broker metadata fetch
	QueueWorkerCount  func(ctx context.Context) (int, error)
	BrowserBinaryPath string // chrome/chromium executable; empty disables the check
	DriveCredentialsPath string
	AudioModelPath    string
	WebMetasearchURL  string
	ReasoningLLMURL   string
	HTTPClient        *http.Client
}

// schemaCapabilities marks capabilities that are schema-level rather than
// pure connectivity, so Lenient mode can skip them.
var schemaCapabilities = map[Capability]bool{
	DocumentStoreSchema: true,
}

// Build constructs a Validator wired against deps, checking required in
// mode. Capabilities with no corresponding Deps field populated still
// appear in required and fail with a "not configured" diagnosis — callers
// should only name capabilities they actually depend on.
func Build(mode Mode, required []Capability, deps Deps) *Validator {
	client := deps.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}

	checks := map[Capability]Check{
		DocumentStoreConnect: func(ctx context.Context) error {
			if deps.Store == nil {
				return fmt.Errorf("no document store configured (remedy: set DOCUMENT_STORE_BACKEND and restart)")
			}
			return deps.Store.Ping(ctx)
		},
		DocumentStoreSchema: func(ctx context.Context) error {
			if deps.Store == nil {
				return fmt.Errorf("no document store configured (remedy: set DOCUMENT_STORE_BACKEND and restart)")
			}
			return deps.Store.Ping(ctx)
		},
		EmbedderReachable: func(ctx context.Context) error {
			if deps.Embedder == nil {
				return fmt.Errorf("no embedder client configured (remedy: set EMBEDDER_PROVIDER)")
			}
			_, err := deps.Embedder.Embed(ctx, []string{"ping"})
			return err
		},
		QueueReachable: func(ctx context.Context) error {
			if deps.QueuePing == nil {
				return fmt.Errorf("no queue transport configured (remedy: set KAFKA_BROKERS)")
			}
			return deps.QueuePing(ctx)
		},
		QueueWorkersPresent: func(ctx context.Context) error {
			if deps.QueueWorkerCount == nil {
				return fmt.Errorf("no worker-count probe configured")
			}
			n, err := deps.QueueWorkerCount(ctx)
			if err != nil {
				return err
			}
			if n < 1 {
				return fmt.Errorf("no workers are consuming the queue (remedy: start at least one ingestd process)")
			}
			return nil
		},
		BrowserRuntime: func(ctx context.Context) error {
			if deps.BrowserBinaryPath == "" {
				return fmt.Errorf("no browser runtime configured (remedy: set BROWSER_ENABLED=true and install a chromium binary)")
			}
			if _, err := exec.LookPath(deps.BrowserBinaryPath); err != nil {
				if _, statErr := os.Stat(deps.BrowserBinaryPath); statErr != nil {
					return fmt.Errorf("browser binary %q not found (remedy: install chromium or set BROWSER_BINARY)", deps.BrowserBinaryPath)
				}
			}
			return nil
		},
		DriveCredentials: func(ctx context.Context) error {
			if deps.DriveCredentialsPath == "" {
				return fmt.Errorf("no drive credentials configured (remedy: set DRIVE_CREDENTIALS_PATH)")
			}
			if _, err := os.Stat(deps.DriveCredentialsPath); err != nil {
				return fmt.Errorf("drive credentials file unreadable: %w (remedy: verify DRIVE_CREDENTIALS_PATH)", err)
			}
			return nil
		},
		AudioToolchain: func(ctx context.Context) error {
			if deps.AudioModelPath == "" {
				return fmt.Errorf("no audio transcription model configured (remedy: set AUDIO_MODEL_PATH)")
			}
			if _, err := os.Stat(deps.AudioModelPath); err != nil {
				return fmt.Errorf("audio model file unreadable: %w (remedy: verify AUDIO_MODEL_PATH)", err)
			}
			return nil
		},
		WebMetasearch: func(ctx context.Context) error {
			if deps.WebMetasearchURL == "" {
				return fmt.Errorf("no metasearch endpoint configured (remedy: set METASEARCH_URL)")
			}
			return pingURL(ctx, client, deps.WebMetasearchURL)
		},
		ReasoningLLMReachable: func(ctx context.Context) error {
			if deps.ReasoningLLMURL == "" {
				return fmt.Errorf("no reasoning LLM endpoint configured (remedy: set REASONING_LLM_URL)")
			}
			return pingURL(ctx, client, deps.ReasoningLLMURL)
		},
	}

	return New(mode, required, checks, schemaCapabilities)
}

// pingURL issues a best-effort HEAD request, falling back to GET if the
// endpoint rejects HEAD, treating any non-5xx response as reachable.
func pingURL(ctx context.Context, client *http.Client, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return fmt.Errorf("build probe request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		req, err = http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return fmt.Errorf("build probe request: %w", err)
		}
		resp, err = client.Do(req)
		if err != nil {
			return fmt.Errorf("endpoint unreachable: %w", err)
		}
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 500 {
		return fmt.Errorf("endpoint returned %s", resp.Status)
	}
	return nil
}
