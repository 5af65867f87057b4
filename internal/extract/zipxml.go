package extract

import (
	"archive/zip"
	"bytes"
	"fmt"
	"html"
	"regexp"
	"strings"
)

var anyTag = regexp.MustCompile(`<[^>]*>`)

// readZipFile returns the contents of name inside zr, or nil if it is absent.
func readZipFile(zr *zip.Reader, name string) ([]byte, error) {
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", f.Name, err)
		}
		defer rc.Close()
		var buf bytes.Buffer
		if _, err := buf.ReadFrom(rc); err != nil {
			return nil, fmt.Errorf("read %s: %w", f.Name, err)
		}
		return buf.Bytes(), nil
	}
	return nil, nil
}

func openZip(content []byte) (*zip.Reader, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("not a zip: %w", err)
	}
	return zr, nil
}

// innerText strips markup from an XML fragment and decodes entities.
func innerText(fragment string) string {
	return strings.TrimSpace(html.UnescapeString(anyTag.ReplaceAllString(fragment, "")))
}

// textLines returns the inner text of each match of re in s, skipping empty ones.
func textLines(re *regexp.Regexp, s string) []string {
	var lines []string
	for _, m := range re.FindAllString(s, -1) {
		if t := innerText(m); t != "" {
			lines = append(lines, t)
		}
	}
	return lines
}
