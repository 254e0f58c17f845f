/*package catio contains the text-level machinery used by vizgrid's loaders:
a line reader which keeps track of where it is in a file, a token reader for
formats where line breaks don't matter, and helpers for parsing numbers out of
whitespace-separated columns.
*/
package catio

import (
	"bufio"
	"io"
	"strings"
)

// TextConfig contains information neccessary for scanning text files.
type TextConfig struct {
	// Comment is the character used to start comments. Everything from it to
	// the end of the line is ignored. Zero means the format has no comments.
	Comment byte
	// MaxLineSize is the largest possible line size. Mesh tally headers can
	// list thousands of bin boundaries on a single line.
	MaxLineSize int
}

// DefaultConfig is a TextConfig which can read vizgrid's input formats.
var DefaultConfig = TextConfig{
	Comment:     0,
	MaxLineSize: 1 << 24,
}

// LineReader reads a text file one line at a time.
type LineReader struct {
	sc     *bufio.Scanner
	config TextConfig
	line   int
	text   string
}

// NewLineReader creates a LineReader for rd. An optional config can be
// provided, otherwise DefaultConfig will be used.
func NewLineReader(rd io.Reader, config ...TextConfig) *LineReader {
	lr := &LineReader{config: DefaultConfig}
	if len(config) > 0 {
		lr.config = config[0]
	}

	lr.sc = bufio.NewScanner(rd)
	initSize := 64 * 1024
	if initSize > lr.config.MaxLineSize {
		initSize = lr.config.MaxLineSize
	}
	lr.sc.Buffer(make([]byte, initSize), lr.config.MaxLineSize)

	return lr
}

// Next advances to the next line and returns it with comments and trailing
// carriage returns removed. ok is false at the end of the file or after an
// I/O error, which can be checked with Err.
func (lr *LineReader) Next() (text string, ok bool) {
	if !lr.sc.Scan() {
		lr.text = ""
		return "", false
	}
	lr.line++
	lr.text = uncomment(strings.TrimRight(lr.sc.Text(), "\r"),
		lr.config.Comment)
	return lr.text, true
}

// Line returns the 1-based number of the most recently read line.
func (lr *LineReader) Line() int { return lr.line }

// Text returns the most recently read line.
func (lr *LineReader) Text() string { return lr.text }

// Err returns the first non-EOF error encountered while reading.
func (lr *LineReader) Err() error { return lr.sc.Err() }

// uncomment removes everything after the comment character.
func uncomment(line string, comment byte) string {
	if comment == 0 {
		return line
	}
	if i := strings.IndexByte(line, comment); i != -1 {
		return line[:i]
	}
	return line
}

// TokenReader reads a text file as a stream of whitespace-separated tokens.
// Line breaks are treated like any other whitespace, but the reader remembers
// which line each token came from so that errors can point at it.
type TokenReader struct {
	lines *LineReader
	tok   []string
	line  int
}

// NewTokenReader creates a TokenReader for rd. An optional config can be
// provided, otherwise DefaultConfig will be used.
func NewTokenReader(rd io.Reader, config ...TextConfig) *TokenReader {
	return &TokenReader{lines: NewLineReader(rd, config...)}
}

// Next returns the next token. ok is false at the end of the file or after an
// I/O error, which can be checked with Err.
func (tr *TokenReader) Next() (tok string, ok bool) {
	for len(tr.tok) == 0 {
		text, ok := tr.lines.Next()
		if !ok {
			return "", false
		}
		tr.tok = strings.Fields(text)
		tr.line = tr.lines.Line()
	}

	tok, tr.tok = tr.tok[0], tr.tok[1:]
	return tok, true
}

// Fill reads len(buf) tokens into buf. It returns the number of tokens read,
// which is only smaller than len(buf) at the end of the file.
func (tr *TokenReader) Fill(buf []string) int {
	for i := range buf {
		tok, ok := tr.Next()
		if !ok {
			return i
		}
		buf[i] = tok
	}
	return len(buf)
}

// Line returns the line that the most recently read token came from.
func (tr *TokenReader) Line() int { return tr.line }

// Err returns the first non-EOF error encountered while reading.
func (tr *TokenReader) Err() error { return tr.lines.Err() }
