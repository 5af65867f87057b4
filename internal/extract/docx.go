package extract

import (
	"archive/zip"
	"fmt"
	"html"
	"regexp"
	"strings"
)

// docxDocumentXMLPath is the default path to the main document body inside a .docx zip.
const docxDocumentXMLPath = "word/document.xml"

// contentTypesPath is the path to [Content_Types].xml in OOXML packages.
const contentTypesPath = "[Content_Types].xml"

const docxMainContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"

var (
	// wParagraph matches a whole <w:p ...>...</w:p> paragraph but not <w:pPr>.
	wParagraph = regexp.MustCompile(`(?s)<w:p(?:\s[^>]*)?>.*?</w:p>`)
	wTab       = regexp.MustCompile(`<w:tab\s*/>`)
	wPageBreak = regexp.MustCompile(`<w:br\s[^>]*w:type="page"[^>]*/>`)
	wText      = regexp.MustCompile(`<w:t(?:\s[^>]*)?>([^<]*)</w:t>`)

	// partNameRe extracts PartName from Override elements in [Content_Types].xml, in either attribute order.
	partNameRe  = regexp.MustCompile(`<Override[^>]+PartName="([^"]+)"[^>]+ContentType="` + regexp.QuoteMeta(docxMainContentType) + `"`)
	partNameRe2 = regexp.MustCompile(`<Override[^>]+ContentType="` + regexp.QuoteMeta(docxMainContentType) + `"[^>]+PartName="([^"]+)"`)
)

// findDocxMainDocumentPath finds the main document path from [Content_Types].xml.
// Returns the path without leading slash, or empty string if not found.
func findDocxMainDocumentPath(zr *zip.Reader) string {
	data, err := readZipFile(zr, contentTypesPath)
	if err != nil || data == nil {
		return ""
	}
	content := string(data)
	if m := partNameRe.FindStringSubmatch(content); len(m) > 1 {
		return strings.TrimPrefix(m[1], "/")
	}
	if m := partNameRe2.FindStringSubmatch(content); len(m) > 1 {
		return strings.TrimPrefix(m[1], "/")
	}
	return ""
}

// extractDOCX returns the pages of a .docx. Each paragraph becomes a line; explicit
// page breaks (<w:br w:type="page"/>) start a new page. Only <w:t> runs contribute
// text, so paragraph and run attributes do not matter.
func extractDOCX(content []byte) ([]string, error) {
	zr, err := openZip(content)
	if err != nil {
		return nil, fmt.Errorf("extract DOCX: %w", err)
	}
	docPath := findDocxMainDocumentPath(zr)
	if docPath == "" {
		docPath = docxDocumentXMLPath
	}
	docXML, err := readZipFile(zr, docPath)
	if err != nil {
		return nil, fmt.Errorf("extract DOCX: %w", err)
	}
	if docXML == nil {
		return nil, fmt.Errorf("extract DOCX: %s not found", docPath)
	}

	var pages []string
	var lines []string
	for _, para := range wParagraph.FindAllString(string(docXML), -1) {
		para = wTab.ReplaceAllString(para, "<w:t>\t</w:t>")
		for i, segment := range wPageBreak.Split(para, -1) {
			if i > 0 {
				pages = append(pages, strings.Join(lines, "\n"))
				lines = nil
			}
			var b strings.Builder
			for _, m := range wText.FindAllStringSubmatch(segment, -1) {
				b.WriteString(m[1])
			}
			if line := strings.TrimSpace(b.String()); line != "" {
				lines = append(lines, html.UnescapeString(line))
			}
		}
	}
	pages = append(pages, strings.Join(lines, "\n"))
	return pages, nil
}
