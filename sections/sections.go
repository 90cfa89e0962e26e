package sections

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"

	"vibebros/models"
)

const (
	// Headings at this depth or shallower start a new section.
	sectionHeadingDepth = 2

	// DefaultTitle names content that has no heading of its own.
	DefaultTitle = "Overview"
	fallbackID   = "section"

	// an ATX heading may be indented by up to three spaces
	maxHeadingIndent = 4
)

// same dialect the reading view renders with
var md = goldmark.New(goldmark.WithExtensions(extension.GFM))

var (
	invalidIDChars = regexp.MustCompile(`[^a-z0-9\s-]`)
	whitespaceRuns = regexp.MustCompile(`\s+`)
	hyphenRuns     = regexp.MustCompile(`-+`)

	atxOpener    = regexp.MustCompile(`^ {0,3}#{1,6}(?:[ \t\r\n]|$)`)
	emptyATXLine = regexp.MustCompile(`^ {0,3}#{1,6}(?:[ \t]+#*)?[ \t]*\r?\n?$`)
)

type pending struct {
	title      string
	start, end int
	keepIndent bool
}

// Split partitions a markdown body into sections delimited by level 1 and 2
// headings. Content before the first heading lands under DefaultTitle. The
// headings themselves are dropped, as are sections whose content is empty.
func Split(markdown string) []models.Section {
	source := []byte(markdown)
	doc := md.Parser().Parse(text.NewReader(source))

	var collected []pending
	current := pending{title: DefaultTitle}
	hasNodes := false
	cursor := 0
	indentLimit := maxHeadingIndent

	for node := doc.FirstChild(); node != nil; node = node.NextSibling() {
		heading, ok := node.(*ast.Heading)
		if !ok || heading.Level > sectionHeadingDepth {
			if !hasNodes {
				_, current.keepIndent = node.(*ast.CodeBlock)
			}
			hasNodes = true
			cursor = max(cursor, lastStop(node))
			indentLimit = continuationIndent(node)
			continue
		}

		lineStart, lineEnd := headingSpan(heading, source, cursor, indentLimit)
		if hasNodes {
			current.end = lineStart
			collected = append(collected, current)
		}

		title := headingText(heading, source)
		if title == "" {
			title = DefaultTitle
		}
		current = pending{title: title, start: lineEnd}
		hasNodes = false
		cursor = lineEnd
		indentLimit = maxHeadingIndent
	}

	if hasNodes {
		current.end = len(source)
		collected = append(collected, current)
	}

	counts := make(map[string]int, len(collected))
	out := make([]models.Section, 0, len(collected))
	for _, p := range collected {
		base := Slugify(p.title)
		if base == "" {
			base = fallbackID
		}
		seen := counts[base]
		counts[base] = seen + 1

		id := base
		if seen > 0 {
			id = fmt.Sprintf("%s-%d", base, seen+1)
		}

		content := trimContent(markdown[p.start:p.end], p.keepIndent)
		if content == "" {
			continue
		}
		out = append(out, models.Section{ID: id, Title: p.title, Content: content})
	}
	return out
}

// Slugify lowercases value, drops everything outside [a-z0-9], whitespace and
// hyphens, then turns whitespace runs and repeated hyphens into single hyphens.
func Slugify(value string) string {
	slug := strings.TrimSpace(strings.ToLower(value))
	slug = invalidIDChars.ReplaceAllString(slug, "")
	slug = whitespaceRuns.ReplaceAllString(slug, "-")
	return hyphenRuns.ReplaceAllString(slug, "-")
}

// headingSpan returns the byte range of the source lines making up h,
// including the underline of a setext heading and the trailing newline.
func headingSpan(h *ast.Heading, source []byte, cursor, indentLimit int) (int, int) {
	lines := h.Lines()
	if lines.Len() == 0 {
		return emptyHeadingSpan(source, cursor, indentLimit)
	}

	start := lineStart(source, lines.At(0).Start)
	end := lines.At(lines.Len() - 1).Stop
	if end == 0 || source[end-1] != '\n' {
		end = endOfLine(source, end)
	}
	if !atxOpener.Match(source[start:end]) {
		end = endOfLine(source, end)
	}
	return start, end
}

// emptyHeadingSpan locates a heading without text ("##"), which carries no
// source segment, by scanning forward from the last known position. Lines
// indented by indentLimit or more still belong to the preceding list.
func emptyHeadingSpan(source []byte, cursor, indentLimit int) (int, int) {
	pos := cursor
	if pos > 0 && source[pos-1] != '\n' {
		pos = endOfLine(source, pos)
	}
	for pos < len(source) {
		end := endOfLine(source, pos)
		line := source[pos:end]
		if emptyATXLine.Match(line) && leadingSpaces(line) < indentLimit {
			return pos, end
		}
		pos = end
	}
	return cursor, cursor
}

// continuationIndent is the indentation from which a following line is
// still part of n. Only lists keep indented lines after a blank line.
func continuationIndent(n ast.Node) int {
	list, ok := n.(*ast.List)
	if !ok {
		return maxHeadingIndent
	}
	item, ok := list.LastChild().(*ast.ListItem)
	if !ok || item.Offset <= 0 {
		return maxHeadingIndent
	}
	return min(item.Offset, maxHeadingIndent)
}

func leadingSpaces(line []byte) int {
	return len(line) - len(bytes.TrimLeft(line, " "))
}

func lineStart(source []byte, pos int) int {
	return bytes.LastIndexByte(source[:pos], '\n') + 1
}

// endOfLine returns the offset just past the newline at or after pos.
func endOfLine(source []byte, pos int) int {
	if pos >= len(source) {
		return len(source)
	}
	i := bytes.IndexByte(source[pos:], '\n')
	if i < 0 {
		return len(source)
	}
	return pos + i + 1
}

// lastStop is the furthest source offset covered by n or its descendants.
func lastStop(n ast.Node) int {
	stop := 0
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if c.Type() == ast.TypeBlock {
			if lines := c.Lines(); lines.Len() > 0 {
				stop = max(stop, lines.At(lines.Len()-1).Stop)
			}
		}
		if t, ok := c.(*ast.Text); ok {
			stop = max(stop, t.Segment.Stop)
		}
		return ast.WalkContinue, nil
	})
	return stop
}

// headingText concatenates the plain text inside a heading.
func headingText(h *ast.Heading, source []byte) string {
	var b bytes.Buffer
	_ = ast.Walk(h, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.CodeSpan:
			for c := node.FirstChild(); c != nil; c = c.NextSibling() {
				if t, ok := c.(*ast.Text); ok {
					b.Write(t.Segment.Value(source))
				}
			}
			return ast.WalkSkipChildren, nil
		case *ast.Text:
			value := util.UnescapePunctuations(node.Segment.Value(source))
			value = util.ResolveNumericReferences(value)
			b.Write(util.ResolveEntityNames(value))
			if node.SoftLineBreak() {
				b.WriteByte('\n')
			}
		case *ast.String:
			b.Write(node.Value)
		case *ast.AutoLink:
			b.Write(node.Label(source))
			return ast.WalkSkipChildren, nil
		case *ast.RawHTML:
			for i := 0; i < node.Segments.Len(); i++ {
				segment := node.Segments.At(i)
				b.Write(segment.Value(source))
			}
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(b.String())
}

// trimContent drops surrounding whitespace. An indented code block at the
// top of a section keeps its indentation so it still parses as code.
func trimContent(s string, keepIndent bool) string {
	if !keepIndent {
		return strings.TrimSpace(s)
	}
	s = strings.TrimRight(s, " \t\r\n")
	for {
		i := strings.IndexByte(s, '\n')
		if i < 0 || strings.TrimSpace(s[:i]) != "" {
			break
		}
		s = s[i+1:]
	}
	return s
}
