// Package validate implements the Validator: a capability-set aggregator
// that runs connectivity/readiness checks in parallel and reports one
// aggregated error with a per-capability diagnosis.
package validate

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Capability is one entry from the fixed checkable set every entry point
// declares a subset of.
type Capability string

const (
	DocumentStoreConnect  Capability = "document_store_connect"
	DocumentStoreSchema   Capability = "document_store_schema"
	EmbedderReachable     Capability = "embedder_reachable"
	QueueReachable        Capability = "queue_reachable"
	QueueWorkersPresent   Capability = "queue_workers_present"
	BrowserRuntime        Capability = "browser_runtime"
	DriveCredentials      Capability = "drive_credentials"
	AudioToolchain        Capability = "audio_toolchain"
	WebMetasearch         Capability = "web_metasearch"
	ReasoningLLMReachable Capability = "reasoning_llm_reachable"
)

// Mode controls how strictly a check set is enforced.
type Mode int

const (
	// Strict enforces schema-level checks; used by interactive CLIs, the
	// retrieval server, and workers about to accept a job.
	Strict Mode = iota
	// Lenient enforces connectivity only; schema is allowed to be created
	// on first write, used by pure ingestion entry points.
	Lenient
)

// Check is one capability's probe, returning a remediation hint on failure.
type Check func(ctx context.Context) error

// Finding is one capability's check outcome.
type Finding struct {
	Capability Capability
	Err        error
	Remedy     string
}

// Result aggregates every declared capability's Finding.
type Result struct {
	OK       bool
	Findings []Finding
}

// Error renders every failed Finding as one multi-line diagnosis.
func (r Result) Error() string {
	var sb strings.Builder
	for _, f := range r.Findings {
		if f.Err == nil {
			continue
		}
		sb.WriteString(fmt.Sprintf("%s: %v", f.Capability, f.Err))
		if f.Remedy != "" {
			sb.WriteString(" (" + f.Remedy + ")")
		}
		sb.WriteString("; ")
	}
	return strings.TrimSuffix(sb.String(), "; ")
}

// Validator holds the registered Check for every Capability it knows how to
// probe. An entry point declares its required subset at call time.
type Validator struct {
	checks map[Capability]Check
	// SchemaChecks holds the subset of registered capabilities that are
	// schema-level (skipped entirely in Lenient mode).
	schemaChecks map[Capability]bool
	required     []Capability
	mode         Mode
}

// New constructs a Validator checking required capabilities in mode, using
// checks to resolve each capability's probe. schemaOnly names the subset of
// checks that are schema-level and therefore skipped under Lenient mode.
func New(mode Mode, required []Capability, checks map[Capability]Check, schemaOnly map[Capability]bool) *Validator {
	return &Validator{checks: checks, schemaChecks: schemaOnly, required: required, mode: mode}
}

// Check runs every required capability's probe in parallel and returns the
// aggregated Result. Exactly one round-trip per capability; no polling.
func (v *Validator) Check(ctx context.Context) Result {
	var wg sync.WaitGroup
	findings := make([]Finding, len(v.required))

	for i, cap := range v.required {
		i, cap := i, cap
		if v.mode == Lenient && v.schemaChecks[cap] {
			findings[i] = Finding{Capability: cap}
			continue
		}
		check, ok := v.checks[cap]
		if !ok {
			findings[i] = Finding{Capability: cap, Err: fmt.Errorf("no check registered for capability %q", cap)}
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := check(ctx)
			findings[i] = Finding{Capability: cap, Err: err}
		}()
	}
	wg.Wait()

	ok := true
	for _, f := range findings {
		if f.Err != nil {
			ok = false
			break
		}
	}
	return Result{OK: ok, Findings: findings}
}
