package captions

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	defaultLineMaxLength = 20
	defaultLineCount     = 1
	defaultMaxGapMs      = 1000
)

// Token is a single transcribed word with millisecond bounds.
type Token struct {
	Text    string `json:"text" yaml:"text"`
	StartMs int64  `json:"startMs" yaml:"startMs"`
	EndMs   int64  `json:"endMs" yaml:"endMs"`
}

// Len returns the token's character length.
func (t Token) Len() int {
	return utf8.RuneCountInString(t.Text)
}

// Line is an ordered run of tokens that fits the character budget.
type Line struct {
	Tokens []Token `json:"tokens"`
}

// Len returns the summed character length of the line's tokens.
func (l Line) Len() int {
	total := 0
	for _, tok := range l.Tokens {
		total += tok.Len()
	}
	return total
}

// Text joins the token texts as they were transcribed.
func (l Line) Text() string {
	var b strings.Builder
	for _, tok := range l.Tokens {
		b.WriteString(tok.Text)
	}
	return b.String()
}

// Page is a block of lines displayed together.
type Page struct {
	StartMs int64  `json:"startMs"`
	EndMs   int64  `json:"endMs"`
	Lines   []Line `json:"lines"`
}

// Tokens flattens the page back into its token sequence.
func (p Page) Tokens() []Token {
	var out []Token
	for _, line := range p.Lines {
		out = append(out, line.Tokens...)
	}
	return out
}

// Options bounds the shape of generated pages.
type Options struct {
	LineMaxLength int   `json:"lineMaxLength" toml:"line_max_length"`
	LineCount     int   `json:"lineCount" toml:"line_count"`
	MaxGapMs      int64 `json:"maxGapMs" toml:"max_gap_ms"`
}

// DefaultOptions returns the pagination defaults used for short-form captions.
func DefaultOptions() Options {
	return Options{
		LineMaxLength: defaultLineMaxLength,
		LineCount:     defaultLineCount,
		MaxGapMs:      defaultMaxGapMs,
	}
}

func (o Options) normalized() Options {
	if o.LineMaxLength <= 0 {
		o.LineMaxLength = defaultLineMaxLength
	}
	if o.LineCount <= 0 {
		o.LineCount = defaultLineCount
	}
	if o.MaxGapMs < 0 {
		o.MaxGapMs = defaultMaxGapMs
	}
	return o
}

// Paginate groups tokens into pages of at most LineCount lines, each line at
// most LineMaxLength characters. A gap wider than MaxGapMs between two tokens
// always starts a new page. A token longer than the line budget gets a line of
// its own.
func Paginate(tokens []Token, opts Options) []Page {
	if len(tokens) == 0 {
		return nil
	}
	opts = opts.normalized()

	var (
		pages   []Page
		current *Page
		line    Line
		lineLen int
	)

	flushLine := func() {
		if len(line.Tokens) == 0 {
			return
		}
		current.Lines = append(current.Lines, line)
		line = Line{}
		lineLen = 0
	}
	flushPage := func() {
		if current == nil {
			return
		}
		flushLine()
		if len(current.Lines) > 0 {
			pages = append(pages, *current)
		}
		current = nil
	}

	for i, tok := range tokens {
		if current != nil && i > 0 && tok.StartMs-tokens[i-1].EndMs > opts.MaxGapMs {
			flushPage()
		}
		if current == nil {
			current = &Page{StartMs: tok.StartMs}
		}

		size := tok.Len()
		if len(line.Tokens) > 0 && lineLen+size > opts.LineMaxLength {
			if len(current.Lines)+1 >= opts.LineCount {
				flushPage()
				current = &Page{StartMs: tok.StartMs}
			} else {
				flushLine()
			}
		}

		line.Tokens = append(line.Tokens, tok)
		lineLen += size
		current.EndMs = tok.EndMs
	}
	flushPage()
	return pages
}

// Validate reports the first token that breaks stream ordering.
func Validate(tokens []Token) error {
	for i, tok := range tokens {
		if tok.EndMs < tok.StartMs {
			return fmt.Errorf("token %d (%q) ends before it starts: %d < %d", i, tok.Text, tok.EndMs, tok.StartMs)
		}
		if i > 0 && tok.StartMs < tokens[i-1].StartMs {
			return fmt.Errorf("token %d (%q) starts before token %d: %d < %d", i, tok.Text, i-1, tok.StartMs, tokens[i-1].StartMs)
		}
	}
	return nil
}
