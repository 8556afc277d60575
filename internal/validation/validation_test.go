package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTenant_ValidAndInvalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		in    string
		want  string
		errIs error
	}{
		{name: "empty", in: "", want: "", errIs: nil},
		{name: "simple", in: "acme-corp", want: "acme-corp", errIs: nil},
		{name: "dot", in: ".", want: "", errIs: ErrInvalidTenant},
		{name: "dotdot", in: "..", want: "", errIs: ErrInvalidTenant},
		{name: "slash", in: "a/b", want: "", errIs: ErrInvalidTenant},
		{name: "backslash", in: `a\b`, want: "", errIs: ErrInvalidTenant},
		{name: "traversal", in: "../escape", want: "", errIs: ErrInvalidTenant},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Tenant(tt.in)
			assert.Equal(t, tt.want, got)
			assert.ErrorIs(t, err, tt.errIs)
		})
	}
}

func TestSourceGroup_ValidAndInvalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		in    string
		want  string
		errIs error
	}{
		{name: "empty", in: "", want: "", errIs: nil},
		{name: "simple", in: "readings", want: "readings", errIs: nil},
		{name: "dot", in: ".", want: "", errIs: ErrInvalidSourceGroup},
		{name: "dotdot", in: "..", want: "", errIs: ErrInvalidSourceGroup},
		{name: "slash", in: "a/b", want: "", errIs: ErrInvalidSourceGroup},
		{name: "traversal", in: "../escape", want: "", errIs: ErrInvalidSourceGroup},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SourceGroup(tt.in)
			assert.Equal(t, tt.want, got)
			assert.ErrorIs(t, err, tt.errIs)
		})
	}
}

func TestFileName_StripsDirectoryComponents(t *testing.T) {
	t.Parallel()

	tests := []struct{ in, want string }{
		{"report.pdf", "report.pdf"},
		{"../../etc/passwd", "passwd"},
		{"a/b/c.txt", "c.txt"},
		{"", "upload"},
	}

	for _, tt := range tests {
		got := FileName(tt.in)
		assert.Equal(t, tt.want, got)
	}
}
