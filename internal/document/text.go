// Package document pulls plain text out of uploaded resumes so it can be
// fed to the extractor.
package document

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"golang.org/x/net/html"
)

// Content types understood by ExtractText.
const (
	TypePDF   = "application/pdf"
	TypeHTML  = "text/html"
	TypeText  = "text/plain"
	TypeMarkd = "text/markdown"
)

var (
	ErrUnsupportedType = errors.New("unsupported document type")
	ErrNoText          = errors.New("document contains no extractable text")
)

// MaxTextLen caps the text handed to the model.
const MaxTextLen = 32 << 10

// DetectType resolves a content type from the declared header, the file name
// and finally the payload itself.
func DetectType(declared, filename string, data []byte) string {
	if mt, _, err := mime.ParseMediaType(declared); err == nil {
		switch mt {
		case TypePDF, TypeHTML, TypeText, TypeMarkd:
			return mt
		}
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return TypePDF
	case ".html", ".htm":
		return TypeHTML
	case ".txt":
		return TypeText
	case ".md", ".markdown":
		return TypeMarkd
	}
	switch {
	case bytes.HasPrefix(data, []byte("%PDF-")):
		return TypePDF
	case looksLikeHTML(data):
		return TypeHTML
	case utf8.Valid(data):
		return TypeText
	}
	return ""
}

// ExtractText returns normalized text for a document of the given type.
func ExtractText(contentType string, data []byte) (string, error) {
	var (
		text string
		err  error
	)
	switch contentType {
	case TypePDF:
		text, err = pdfText(data)
	case TypeHTML:
		text, err = htmlText(data)
	case TypeText, TypeMarkd:
		if !utf8.Valid(data) {
			return "", fmt.Errorf("%w: text is not valid UTF-8", ErrUnsupportedType)
		}
		text = string(data)
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedType, contentType)
	}
	if err != nil {
		return "", err
	}

	text = normalize(text)
	if text == "" {
		return "", ErrNoText
	}
	return clip(text, MaxTextLen), nil
}

func pdfText(data []byte) (text string, err error) {
	// The pdf reader panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("reading pdf: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("opening pdf: %w", err)
	}
	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("reading pdf text: %w", err)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", fmt.Errorf("reading pdf text: %w", err)
	}
	return buf.String(), nil
}

// skipped holds elements whose text never belongs in a resume.
var skipped = map[string]bool{"script": true, "style": true, "noscript": true, "head": true, "template": true}

// block elements end a line.
var block = map[string]bool{
	"p": true, "div": true, "br": true, "li": true, "tr": true, "section": true, "article": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true, "header": true, "footer": true,
}

func htmlText(data []byte) (string, error) {
	doc, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("parsing html: %w", err)
	}
	var sb strings.Builder
	writeText(&sb, doc)
	return sb.String(), nil
}

func writeText(sb *strings.Builder, n *html.Node) {
	if n.Type == html.ElementNode && skipped[n.Data] {
		return
	}
	if n.Type == html.TextNode {
		sb.WriteString(n.Data)
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeText(sb, c)
	}
	if n.Type == html.ElementNode && block[n.Data] {
		sb.WriteByte('\n')
	}
}

var (
	spaceRun = regexp.MustCompile(`[ \t\f\v\r\x{00a0}]+`)
	blankRun = regexp.MustCompile(`\n{3,}`)
)

// normalize collapses horizontal whitespace, trims every line and keeps at
// most one empty line between paragraphs.
func normalize(s string) string {
	s = strings.ToValidUTF8(s, "")
	s = spaceRun.ReplaceAllString(s, " ")
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(l)
	}
	s = blankRun.ReplaceAllString(strings.Join(lines, "\n"), "\n\n")
	return strings.TrimSpace(s)
}

// clip truncates s to at most n bytes on a rune boundary.
func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func looksLikeHTML(data []byte) bool {
	head := bytes.ToLower(bytes.TrimSpace(data[:min(len(data), 512)]))
	return bytes.HasPrefix(head, []byte("<!doctype html")) || bytes.HasPrefix(head, []byte("<html")) || bytes.Contains(head, []byte("<body"))
}

// StripHTML reduces an HTML fragment to a single line of text.
func StripHTML(s string) string {
	text, err := htmlText([]byte(s))
	if err != nil {
		return strings.Join(strings.Fields(s), " ")
	}
	return strings.Join(strings.Fields(text), " ")
}
