package convert

import (
	"bytes"
	"context"
	"strings"

	"github.com/xuri/excelize/v2"

	"ragcore/internal/errs"
)

// XLSXHandler converts spreadsheets into a CanonicalDocument with one
// Section per sheet, rendering rows as pipe-delimited lines so tabular
// structure survives into the chunked text.
type XLSXHandler struct{}

func (h *XLSXHandler) Formats() []string { return []string{"xlsx"} }

func (h *XLSXHandler) Parse(_ context.Context, locator string, data []byte) (CanonicalDocument, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return CanonicalDocument{}, errs.Wrap(errs.SourceUnreadable, "open xlsx: "+locator, err)
	}
	defer f.Close()

	var sections []Section
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			continue
		}
		var body strings.Builder
		for _, row := range rows {
			body.WriteString(strings.Join(row, " | "))
			body.WriteString("\n")
		}
		sections = append(sections, Section{
			Heading: sheet,
			Content: strings.TrimSpace(body.String()),
			Level:   1,
			Type:    "table",
			Metadata: map[string]string{
				"sheet_name": sheet,
				"row_count":  itoa(len(rows)),
			},
		})
	}

	return CanonicalDocument{
		Title:   locator,
		Text:    Flatten(sections),
		Outline: sections,
	}, nil
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var b [20]byte
	i := len(b)
	for n > 0 {
		i--
		b[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		b[i] = '-'
	}
	return string(b[i:])
}
