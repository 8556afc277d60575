// Package validation provides common validation functions for corpus
// partition identifiers and uploaded file names. This package has no
// dependencies on other internal packages to avoid import cycles.
package validation

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// ErrInvalidTenant indicates the tenant value is malformed or attempts path traversal.
var ErrInvalidTenant = errors.New("invalid tenant")

// ErrInvalidSourceGroup indicates the source_group value is malformed or attempts path traversal.
var ErrInvalidSourceGroup = errors.New("invalid source_group")

// Tenant checks that a tenant identifier is safe for use as a single
// namespace segment (storage partition key, object store key prefix).
// Returns the cleaned tenant and an error if validation fails.
func Tenant(tenant string) (string, error) {
	cleaned, err := segment(tenant)
	if err != nil {
		return "", ErrInvalidTenant
	}
	return cleaned, nil
}

// SourceGroup checks that a source_group identifier is safe for use as a
// single namespace segment.
func SourceGroup(sourceGroup string) (string, error) {
	cleaned, err := segment(sourceGroup)
	if err != nil {
		return "", ErrInvalidSourceGroup
	}
	return cleaned, nil
}

var errNotASegment = errors.New("not a single path segment")

func segment(v string) (string, error) {
	if v == "" {
		return "", nil
	}
	if v == "." || v == ".." {
		return "", errNotASegment
	}
	if strings.ContainsAny(v, `/\`) {
		return "", errNotASegment
	}

	cleaned := filepath.Clean(v)
	if cleaned != v ||
		strings.HasPrefix(cleaned, "..") ||
		strings.Contains(cleaned, string(os.PathSeparator)+"..") ||
		filepath.IsAbs(cleaned) {
		return "", errNotASegment
	}

	return cleaned, nil
}

// FileName strips any directory components from an untrusted uploaded file
// name, so it is safe to embed in an object storage key.
func FileName(name string) string {
	base := filepath.Base(filepath.Clean(name))
	if base == "." || base == string(os.PathSeparator) {
		return "upload"
	}
	return base
}
