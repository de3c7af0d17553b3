package pages

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// writeTestPDF emits a minimal uncompressed PDF with a classic xref table.
func writeTestPDF(t *testing.T, path, title string, pageCount int) {
	t.Helper()
	var buf bytes.Buffer
	var offsets []int
	obj := func(body string) {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", len(offsets), body)
	}
	buf.WriteString("%PDF-1.4\n")

	kids := make([]string, pageCount)
	for i := range kids {
		kids[i] = fmt.Sprintf("%d 0 R", i+4)
	}
	obj("<< /Type /Catalog /Pages 2 0 R >>")
	obj(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), pageCount))
	obj(fmt.Sprintf("<< /Title (%s) >>", title))
	for i := 0; i < pageCount; i++ {
		obj("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] >>")
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(offsets)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R /Info 3 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, xref)

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write pdf: %v", err)
	}
}

func TestInspectPDFReadsPageCountAndTitle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deed.pdf")
	writeTestPDF(t, path, "Warranty Deed", 3)

	info, err := InspectPDF(path)
	if err != nil {
		t.Fatalf("InspectPDF: %v", err)
	}
	if info.PageCount != 3 {
		t.Fatalf("page count = %d, want 3", info.PageCount)
	}
	if info.Title != "Warranty Deed" {
		t.Fatalf("title = %q", info.Title)
	}
}

func TestInspectPDFRejectsNonPDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fake.pdf")
	if err := os.WriteFile(path, []byte("not a pdf"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := InspectPDF(path); err == nil {
		t.Fatal("expected error for non-pdf input")
	}
}
