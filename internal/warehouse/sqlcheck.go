package warehouse

import (
	"fmt"
	"strings"
)

// LintError describes why a verification query cannot be tokenized.
type LintError struct {
	Offset  int
	Message string
}

func (e *LintError) Error() string {
	return fmt.Sprintf("%s at offset %d", e.Message, e.Offset)
}

// Lint tokenizes query and rejects what no SQL dialect would accept:
// unterminated quotes or block comments, unbalanced parentheses and
// characters outside the SQL lexicon. It is a pre-flight check, not a parser.
func Lint(query string) error {
	if strings.TrimSpace(query) == "" {
		return &LintError{Message: "empty statement"}
	}

	l := newSQLLexer(query)
	var open []int
	for {
		tok, err := l.next()
		if err != nil {
			return err
		}
		switch tok.kind {
		case tokEOF:
			if len(open) > 0 {
				return &LintError{Offset: open[len(open)-1], Message: "unclosed parenthesis"}
			}
			return nil
		case tokIllegal:
			return &LintError{Offset: tok.offset, Message: fmt.Sprintf("unexpected character %q", tok.literal)}
		case tokPunct:
			switch tok.literal {
			case "(":
				open = append(open, tok.offset)
			case ")":
				if len(open) == 0 {
					return &LintError{Offset: tok.offset, Message: "unmatched closing parenthesis"}
				}
				open = open[:len(open)-1]
			}
		}
	}
}

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokQuotedIdent
	tokString
	tokNumber
	tokPunct
	tokIllegal
)

type sqlToken struct {
	kind    tokenKind
	literal string
	offset  int
}

// sqlLexer is a byte-oriented scanner over a single statement.
type sqlLexer struct {
	input   string
	pos     int
	readPos int
	ch      byte
}

func newSQLLexer(input string) *sqlLexer {
	l := &sqlLexer{input: input}
	l.readChar()
	return l
}

func (l *sqlLexer) readChar() {
	if l.readPos >= len(l.input) {
		l.ch = 0
	} else {
		l.ch = l.input[l.readPos]
	}
	l.pos = l.readPos
	l.readPos++
}

func (l *sqlLexer) peekChar() byte {
	if l.readPos >= len(l.input) {
		return 0
	}
	return l.input[l.readPos]
}

func (l *sqlLexer) atEOF() bool { return l.pos >= len(l.input) }

func (l *sqlLexer) next() (sqlToken, error) {
	if err := l.skipWhitespaceAndComments(); err != nil {
		return sqlToken{}, err
	}

	start := l.pos
	if l.atEOF() {
		return sqlToken{kind: tokEOF, offset: start}, nil
	}

	switch {
	case l.ch == '\'':
		if err := l.readQuoted('\'', "unterminated string literal"); err != nil {
			return sqlToken{}, err
		}
		return sqlToken{kind: tokString, literal: l.input[start:l.pos], offset: start}, nil
	case l.ch == '"':
		if err := l.readQuoted('"', "unterminated quoted identifier"); err != nil {
			return sqlToken{}, err
		}
		return sqlToken{kind: tokQuotedIdent, literal: l.input[start:l.pos], offset: start}, nil
	case isIdentStart(l.ch):
		for isIdentStart(l.ch) || isDigit(l.ch) || l.ch == '$' {
			l.readChar()
		}
		return sqlToken{kind: tokIdent, literal: l.input[start:l.pos], offset: start}, nil
	case isDigit(l.ch) || (l.ch == '.' && isDigit(l.peekChar())):
		l.readNumber()
		return sqlToken{kind: tokNumber, literal: l.input[start:l.pos], offset: start}, nil
	case strings.IndexByte(punctuation, l.ch) >= 0:
		l.readChar()
		return sqlToken{kind: tokPunct, literal: l.input[start:l.pos], offset: start}, nil
	default:
		l.readChar()
		return sqlToken{kind: tokIllegal, literal: l.input[start:l.pos], offset: start}, nil
	}
}

// punctuation lists every single-byte operator or delimiter; multi-byte
// operators are sequences of these.
const punctuation = "+-*/%=<>!|.,;()[]{}:&^~?$@#"

func (l *sqlLexer) skipWhitespaceAndComments() error {
	for {
		for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' || l.ch == '\f' {
			l.readChar()
		}
		if l.ch == '-' && l.peekChar() == '-' {
			for l.ch != '\n' && !l.atEOF() {
				l.readChar()
			}
			continue
		}
		if l.ch == '/' && l.peekChar() == '*' {
			start := l.pos
			l.readChar()
			l.readChar()
			for {
				if l.atEOF() {
					return &LintError{Offset: start, Message: "unterminated block comment"}
				}
				if l.ch == '*' && l.peekChar() == '/' {
					l.readChar()
					l.readChar()
					break
				}
				l.readChar()
			}
			continue
		}
		return nil
	}
}

// readQuoted consumes a quote-delimited token; a doubled quote is an escape.
func (l *sqlLexer) readQuoted(quote byte, unterminated string) error {
	start := l.pos
	l.readChar()
	for {
		if l.atEOF() {
			return &LintError{Offset: start, Message: unterminated}
		}
		if l.ch == quote {
			if l.peekChar() == quote {
				l.readChar()
				l.readChar()
				continue
			}
			l.readChar()
			return nil
		}
		l.readChar()
	}
}

func (l *sqlLexer) readNumber() {
	for isDigit(l.ch) || l.ch == '_' {
		l.readChar()
	}
	if l.ch == '.' {
		l.readChar()
		for isDigit(l.ch) {
			l.readChar()
		}
	}
	if l.ch == 'e' || l.ch == 'E' {
		l.readChar()
		if l.ch == '+' || l.ch == '-' {
			l.readChar()
		}
		for isDigit(l.ch) {
			l.readChar()
		}
	}
}

// isIdentStart accepts ASCII letters, underscore and any byte of a multi-byte
// UTF-8 sequence.
func isIdentStart(ch byte) bool {
	return ch >= 'a' && ch <= 'z' || ch >= 'A' && ch <= 'Z' || ch == '_' || ch >= 0x80
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}
