// Package htmltext превращает HTML заметки в простой текст и список изображений.
package htmltext

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Segment: фрагмент документа: либо текст, либо изображение.
type Segment struct {
	Text     string
	ImageSrc string
}

// IsImage сообщает, является ли фрагмент изображением.
func (s Segment) IsImage() bool { return s.ImageSrc != "" }

// Result: результат разбора HTML.
type Result struct {
	// Text: весь текст документа без тегов.
	Text string
	// Images: значения src всех <img> в порядке появления.
	Images []string
	// Segments: текст и изображения в порядке появления.
	Segments []Segment
}

var blockTags = map[atom.Atom]bool{
	atom.P: true, atom.Div: true, atom.Section: true, atom.Article: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.Ul: true, atom.Ol: true, atom.Li: true, atom.Blockquote: true, atom.Pre: true,
	atom.Table: true, atom.Tr: true, atom.Hr: true, atom.Header: true, atom.Footer: true,
	atom.Figure: true, atom.Figcaption: true,
}

type builder struct {
	cur      strings.Builder
	segments []Segment
	space    bool
}

func (b *builder) newline() {
	b.cur.WriteByte('\n')
	b.space = false
}

// endLine начинает новую строку, если текущая не пуста.
func (b *builder) endLine() {
	if b.cur.Len() > 0 && !strings.HasSuffix(b.cur.String(), "\n") {
		b.newline()
	}
	b.space = false
}

func (b *builder) text(s string, keepSpaces bool) {
	if keepSpaces {
		b.cur.WriteString(s)
		return
	}
	for _, r := range s {
		if unicode.IsSpace(r) {
			b.space = true
			continue
		}
		if b.space && b.cur.Len() > 0 {
			if cur := b.cur.String(); !strings.HasSuffix(cur, "\n") && !strings.HasSuffix(cur, " ") {
				b.cur.WriteByte(' ')
			}
		}
		b.space = false
		b.cur.WriteRune(r)
	}
}

func (b *builder) flush() {
	if t := normalize(b.cur.String()); t != "" {
		b.segments = append(b.segments, Segment{Text: t})
	}
	b.cur.Reset()
	b.space = false
}

// Extract разбирает HTML. Блочные теги и <br> превращаются в переводы строк,
// сущности декодируются, содержимое <script> и <style> отбрасывается.
func Extract(src string) Result {
	z := html.NewTokenizer(strings.NewReader(src))
	var b builder
	var res Result
	skip, pre := 0, 0

	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			b.flush()
			res.Segments = b.segments
			texts := make([]string, 0, len(res.Segments))
			for _, s := range res.Segments {
				if !s.IsImage() {
					texts = append(texts, s.Text)
				}
			}
			res.Text = strings.Join(texts, "\n")
			return res

		case html.TextToken:
			if skip > 0 {
				continue
			}
			b.text(string(z.Text()), pre > 0)

		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			tag := atom.Lookup(name)
			switch {
			case tag == atom.Script || tag == atom.Style:
				if tt == html.StartTagToken {
					skip++
				}
			case tag == atom.Img:
				for hasAttr {
					var key, val []byte
					key, val, hasAttr = z.TagAttr()
					if string(key) == "src" && len(val) > 0 {
						b.flush()
						res.Images = append(res.Images, string(val))
						b.segments = append(b.segments, Segment{ImageSrc: string(val)})
					}
				}
			case tag == atom.Br:
				b.newline()
			case tag == atom.Li:
				b.endLine()
				b.cur.WriteString("- ")
			case tag == atom.Td || tag == atom.Th:
				b.text(" ", false)
			case blockTags[tag]:
				if tag == atom.Pre {
					pre++
				}
				b.endLine()
			}

		case html.EndTagToken:
			name, _ := z.TagName()
			tag := atom.Lookup(name)
			switch {
			case tag == atom.Script || tag == atom.Style:
				if skip > 0 {
					skip--
				}
			case blockTags[tag]:
				if tag == atom.Pre && pre > 0 {
					pre--
				}
				b.endLine()
			}
		}
	}
}

// normalize обрезает пробелы по краям строк и схлопывает подряд идущие пустые строки.
func normalize(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, l := range lines {
		l = strings.TrimRightFunc(l, unicode.IsSpace)
		if l == "" {
			if len(out) > 0 && !blank {
				out = append(out, "")
			}
			blank = true
			continue
		}
		blank = false
		out = append(out, l)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

// Snippet возвращает первые max символов текста HTML в одну строку.
func Snippet(src string, max int) string {
	text := strings.Join(strings.Fields(Extract(src).Text), " ")
	if max <= 0 || utf8.RuneCountInString(text) <= max {
		return text
	}
	runes := []rune(text)
	return strings.TrimSpace(string(runes[:max])) + "…"
}
