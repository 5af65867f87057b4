package extract

import (
	"fmt"
	"regexp"
	"strings"
)

// odfContentPath is the main content part of OpenDocument packages.
const odfContentPath = "content.xml"

var (
	odpPage     = regexp.MustCompile(`(?s)<draw:page[\s>].*?</draw:page>`)
	odsTable    = regexp.MustCompile(`(?s)<table:table[\s>].*?</table:table>`)
	odsRow      = regexp.MustCompile(`(?s)<table:table-row[\s>].*?</table:table-row>`)
	odsCell     = regexp.MustCompile(`(?s)<table:table-cell(?:\s[^>]*?)?(?:/>|>.*?</table:table-cell>)`)
	odfTextPara = regexp.MustCompile(`(?s)<text:(?:p|h)(?:\s[^>]*)?>.*?</text:(?:p|h)>`)
)

func readODFContent(content []byte, kind string) (string, error) {
	zr, err := openZip(content)
	if err != nil {
		return "", fmt.Errorf("extract %s: %w", kind, err)
	}
	data, err := readZipFile(zr, odfContentPath)
	if err != nil {
		return "", fmt.Errorf("extract %s: %w", kind, err)
	}
	if data == nil {
		return "", fmt.Errorf("extract %s: %s not found", kind, odfContentPath)
	}
	return string(data), nil
}

// extractODP returns one page per <draw:page>; each text paragraph or heading is a line.
func extractODP(content []byte) ([]string, error) {
	xml, err := readODFContent(content, "ODP")
	if err != nil {
		return nil, err
	}
	var pages []string
	for _, page := range odpPage.FindAllString(xml, -1) {
		pages = append(pages, strings.Join(textLines(odfTextPara, page), "\n"))
	}
	return pages, nil
}

// extractODS returns one page per sheet and one tab-separated line per non-empty row.
func extractODS(content []byte) ([]string, error) {
	xml, err := readODFContent(content, "ODS")
	if err != nil {
		return nil, err
	}
	var pages []string
	for _, table := range odsTable.FindAllString(xml, -1) {
		var lines []string
		for _, row := range odsRow.FindAllString(table, -1) {
			var cells []string
			for _, cell := range odsCell.FindAllString(row, -1) {
				cells = append(cells, strings.Join(textLines(odfTextPara, cell), " "))
			}
			line := strings.TrimRight(strings.Join(cells, "\t"), "\t")
			if strings.TrimSpace(line) != "" {
				lines = append(lines, line)
			}
		}
		pages = append(pages, strings.Join(lines, "\n"))
	}
	return pages, nil
}
