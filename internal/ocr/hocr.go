package ocr

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"
)

const hocrWordClass = "ocrx_word"

// hocrNode is any element of an hOCR document. Tesseract nests words inside
// page, area, paragraph and line elements, and wraps styled words in
// <strong> or <em>, so the tree is walked generically.
type hocrNode struct {
	Class    string     `xml:"class,attr"`
	Title    string     `xml:"title,attr"`
	Text     string     `xml:",chardata"`
	Children []hocrNode `xml:",any"`
}

// parseHOCR returns one text block per recognized word
func parseHOCR(doc string, pageNumber int) ([]TextBlock, error) {
	var root hocrNode
	if err := xml.Unmarshal([]byte(doc), &root); err != nil {
		return nil, fmt.Errorf("invalid hOCR document: %w", err)
	}

	var blocks []TextBlock
	root.walk(func(n *hocrNode) {
		if n.Class != hocrWordClass {
			return
		}
		text := strings.TrimSpace(n.innerText())
		if text == "" {
			return
		}
		props := titleProperties(n.Title)
		bbox, ok := props.rect("bbox")
		if !ok {
			return
		}
		conf, _ := props.number("x_wconf")
		blocks = append(blocks, TextBlock{
			Text:       text,
			BBox:       bbox,
			Confidence: conf,
			Page:       pageNumber,
		})
	})

	return blocks, nil
}

// walk visits n and its descendants in document order. Word elements are
// leaves for the purpose of the walk.
func (n *hocrNode) walk(visit func(*hocrNode)) {
	visit(n)
	if n.Class == hocrWordClass {
		return
	}
	for i := range n.Children {
		n.Children[i].walk(visit)
	}
}

func (n *hocrNode) innerText() string {
	if len(n.Children) == 0 {
		return n.Text
	}
	var sb strings.Builder
	sb.WriteString(n.Text)
	for i := range n.Children {
		sb.WriteString(n.Children[i].innerText())
	}
	return sb.String()
}

// hocrProps holds the properties of an hOCR title attribute, e.g.
// "bbox 100 200 190 228; x_wconf 93"
type hocrProps map[string][]string

func titleProperties(title string) hocrProps {
	props := make(hocrProps)
	for _, part := range strings.Split(title, ";") {
		fields := strings.Fields(part)
		if len(fields) == 0 {
			continue
		}
		props[fields[0]] = fields[1:]
	}
	return props
}

func (p hocrProps) number(key string) (float64, bool) {
	vals := p[key]
	if len(vals) != 1 {
		return 0, false
	}
	v, err := strconv.ParseFloat(vals[0], 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func (p hocrProps) rect(key string) (Rect, bool) {
	vals := p[key]
	if len(vals) != 4 {
		return Rect{}, false
	}
	var coords [4]float64
	for i, s := range vals {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return Rect{}, false
		}
		coords[i] = v
	}
	r := Rect{X0: coords[0], Y0: coords[1], X1: coords[2], Y1: coords[3]}
	if r.X1 < r.X0 || r.Y1 < r.Y0 {
		return Rect{}, false
	}
	return r, true
}
