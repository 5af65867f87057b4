package extract

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var (
	// pptxSlide matches slide parts and captures the slide number.
	pptxSlide = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)
	// aParagraph matches a DrawingML paragraph but not <a:pPr>.
	aParagraph = regexp.MustCompile(`(?s)<a:p(?:\s[^>]*)?>.*?</a:p>`)
)

// extractPPTX returns one page per slide in slide-number order; each DrawingML
// paragraph on a slide is a line.
func extractPPTX(content []byte) ([]string, error) {
	zr, err := openZip(content)
	if err != nil {
		return nil, fmt.Errorf("extract PPTX: %w", err)
	}
	type slide struct {
		num  int
		name string
	}
	var slides []slide
	for _, f := range zr.File {
		m := pptxSlide.FindStringSubmatch(f.Name)
		if m == nil {
			continue
		}
		n, _ := strconv.Atoi(m[1])
		slides = append(slides, slide{num: n, name: f.Name})
	}
	sort.Slice(slides, func(i, j int) bool { return slides[i].num < slides[j].num })

	pages := make([]string, 0, len(slides))
	for _, s := range slides {
		data, err := readZipFile(zr, s.name)
		if err != nil {
			return nil, fmt.Errorf("extract PPTX: %w", err)
		}
		pages = append(pages, strings.Join(textLines(aParagraph, string(data)), "\n"))
	}
	return pages, nil
}
