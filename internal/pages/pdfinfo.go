package pages

import (
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// DocumentInfo describes a PDF the raster pages were exported from.
type DocumentInfo struct {
	Path      string
	Title     string
	PageCount int
}

// InspectPDF reads the page count and Info title of a companion PDF. The
// viewer shows it next to the raster page count so a mismatch is visible.
func InspectPDF(path string) (DocumentInfo, error) {
	file, reader, err := pdf.Open(path)
	if err != nil {
		return DocumentInfo{}, fmt.Errorf("failed to open pdf: %w", err)
	}
	defer file.Close()

	info := DocumentInfo{Path: path, PageCount: reader.NumPage()}
	if title := reader.Trailer().Key("Info").Key("Title"); !title.IsNull() {
		info.Title = strings.TrimSpace(title.Text())
	}
	return info, nil
}
