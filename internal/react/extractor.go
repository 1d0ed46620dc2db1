package react

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

// contextMarker is the assignment prefix Netflix emits ahead of the
// serialized application state in an inline script.
const contextMarker = "netflix.reactContext ="

// contextPath is the fixed descent from the deserialized assignment to
// the title metadata payload.
var contextPath = []string{"models", "nmTitle", "data", "details"}

var errMarkerNotFound = errors.New("react context marker not found")

// Extractor pulls the react context payload out of raw title-page HTML.
// Extraction failures are logged and degrade to an empty object; they
// never surface as errors to the enrichment pipeline.
type Extractor struct {
	logger *zap.Logger
}

// NewExtractor builds an Extractor.
func NewExtractor(logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{logger: logger}
}

// Extract parses the document, scans inline scripts for the context
// marker and returns the sanitized metadata payload. A document without
// the marker (or with a payload that cannot be parsed) yields an empty
// object, not an error.
func (e *Extractor) Extract(html []byte) Value {
	if len(html) == 0 {
		return EmptyObject()
	}
	ctx, err := e.extract(html)
	if err != nil {
		if !errors.Is(err, errMarkerNotFound) {
			e.logger.Warn("react context extraction failed", zap.Error(err))
		}
		return EmptyObject()
	}
	return ctx
}

func (e *Extractor) extract(html []byte) (Value, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return Null(), fmt.Errorf("parse html: %w", err)
	}

	var script string
	doc.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		// External scripts carry a src attribute and no inline text.
		text := s.Text()
		if strings.Contains(text, contextMarker) {
			script = text
			return false
		}
		return true
	})
	if script == "" {
		return Null(), errMarkerNotFound
	}

	literal, err := objectLiteral(script[strings.Index(script, contextMarker)+len(contextMarker):])
	if err != nil {
		return Null(), err
	}
	root, err := Decode(normalizeEscapes(literal))
	if err != nil {
		return Null(), err
	}
	payload, ok := root.Path(contextPath...)
	if !ok {
		return Null(), fmt.Errorf("context path %v missing", contextPath)
	}
	if payload.Kind() != KindObject {
		return Null(), fmt.Errorf("context payload is not an object")
	}
	return payload, nil
}

// objectLiteral captures the balanced {...} that follows the marker,
// tolerating string literals containing braces.
func objectLiteral(src string) (string, error) {
	start := strings.IndexByte(src, '{')
	if start < 0 {
		return "", errors.New("no object literal after marker")
	}
	depth := 0
	var quote byte
	escaped := false
	for i := start; i < len(src); i++ {
		c := src[i]
		if quote != 0 {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == quote:
				quote = 0
			}
			continue
		}
		switch c {
		case '"', '\'':
			quote = c
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return src[start : i+1], nil
			}
		}
	}
	return "", errors.New("unterminated object literal")
}

// normalizeEscapes rewrites JavaScript-only \xHH string escapes into the
// \u00HH form encoding/json accepts.
func normalizeEscapes(literal string) []byte {
	out := make([]byte, 0, len(literal))
	for i := 0; i < len(literal); i++ {
		c := literal[i]
		if c != '\\' || i+1 >= len(literal) {
			out = append(out, c)
			continue
		}
		next := literal[i+1]
		if next == 'x' && i+3 < len(literal) && isHex(literal[i+2]) && isHex(literal[i+3]) {
			out = append(out, '\\', 'u', '0', '0', literal[i+2], literal[i+3])
			i += 3
			continue
		}
		out = append(out, c, next)
		i++
	}
	return out
}

func isHex(c byte) bool {
	switch {
	case c >= '0' && c <= '9', c >= 'a' && c <= 'f', c >= 'A' && c <= 'F':
		return true
	default:
		return false
	}
}
