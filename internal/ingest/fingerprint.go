package ingest

import (
	"crypto/sha256"
	"encoding/hex"
)

// fingerprint returns the SHA-256 hex digest of text alone, used for both
// document-level and chunk-level content-hash deduplication. The hash never
// incorporates document_id, tenant, or any other identity field — only the
// content itself, so identical text ingested under a different document_id
// coexists rather than colliding.
func fingerprint(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
