package lexer

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/funvibe/annoscene/internal/token"
)

type Lexer struct {
	input        string
	position     int  // current position in input (points to current char)
	readPosition int  // current reading position in input (after current char)
	ch           rune // current char under examination
	line         int  // current line number
	column       int  // current column number

	methodKey bool // the next token is the raw key after "method"
}

func New(input string) *Lexer {
	l := &Lexer{input: input, line: 1, column: 0}
	l.readChar()
	return l
}

func (l *Lexer) readChar() {
	if l.ch == '\n' {
		l.line++
		l.column = 0
	}

	if l.readPosition >= len(l.input) {
		l.ch = 0
		l.position = len(l.input)
		l.readPosition = len(l.input) + 1
		l.column++
		return
	}
	r, w := utf8.DecodeRuneInString(l.input[l.readPosition:])
	l.ch = r
	l.position = l.readPosition
	l.readPosition += w
	l.column++
}

func (l *Lexer) NextToken() token.Token {
	var tok token.Token

	l.skipWhitespace()
	line, col := l.line, l.column

	if l.methodKey {
		l.methodKey = false
		if (isLetter(l.ch) || l.ch == '<') && l.atMethodKey() {
			return l.readMethodKey()
		}
	}

	switch l.ch {
	case 0:
		return token.Token{Type: token.EOF, Line: line, Column: col}
	case ':':
		tok = newToken(token.COLON, l.ch, line, col)
	case ',':
		tok = newToken(token.COMMA, l.ch, line, col)
	case '.':
		tok = newToken(token.DOT, l.ch, line, col)
	case '@':
		tok = newToken(token.AT, l.ch, line, col)
	case '#':
		tok = newToken(token.HASH, l.ch, line, col)
	case '*':
		tok = newToken(token.ASTERISK, l.ch, line, col)
	case '+':
		tok = newToken(token.PLUS, l.ch, line, col)
	case '&':
		tok = newToken(token.AMP, l.ch, line, col)
	case '=':
		tok = newToken(token.ASSIGN, l.ch, line, col)
	case '(':
		tok = newToken(token.LPAREN, l.ch, line, col)
	case ')':
		tok = newToken(token.RPAREN, l.ch, line, col)
	case '{':
		tok = newToken(token.LBRACE, l.ch, line, col)
	case '}':
		tok = newToken(token.RBRACE, l.ch, line, col)
	case '[':
		if l.peekChar() != ']' {
			return l.illegal(line, col, "expected ']' after '['")
		}
		l.readChar()
		tok = token.Token{Type: token.BRACKETS, Lexeme: "[]", Literal: "[]", Line: line, Column: col}
	case '"':
		return l.readString(line, col)
	case '\'':
		return l.readCharLiteral(line, col)
	case '-':
		if isDigit(l.peekChar()) {
			return l.readNumber(line, col)
		}
		if isLetter(l.peekChar()) {
			// -Infinity
			l.readChar()
			word := "-" + l.readIdentifier()
			return token.Token{Type: token.IDENT, Lexeme: word, Literal: word, Line: line, Column: col}
		}
		return l.illegal(line, col, "unexpected '-'")
	default:
		if isLetter(l.ch) {
			word := l.readWord()
			tok = token.Token{Type: token.LookupIdent(word), Lexeme: word, Literal: word, Line: line, Column: col}
			if tok.Type == token.METHOD {
				l.methodKey = true
			}
			return tok
		}
		if isDigit(l.ch) {
			return l.readNumber(line, col)
		}
		return l.illegal(line, col, "illegal character "+strconv.QuoteRune(l.ch))
	}

	l.readChar()
	return tok
}

// All returns every token up to and including EOF.
func (l *Lexer) All() []token.Token {
	var toks []token.Token
	for {
		tok := l.NextToken()
		toks = append(toks, tok)
		if tok.Type == token.EOF {
			return toks
		}
	}
}

func (l *Lexer) illegal(line, col int, msg string) token.Token {
	lexeme := string(l.ch)
	l.readChar()
	return token.Token{Type: token.ILLEGAL, Lexeme: lexeme, Literal: msg, Line: line, Column: col}
}

func (l *Lexer) readIdentifier() string {
	position := l.position
	for isLetter(l.ch) || isDigit(l.ch) {
		l.readChar()
	}
	return l.input[position:l.position]
}

// hyphenated lists the keywords spelled with '-', keyed by their first part.
var hyphenated = map[string]bool{"inner": true, "constructor": true, "annotation": true}

// readWord reads an identifier, joining "inner-type" and the other
// hyphenated keywords into one word.
func (l *Lexer) readWord() string {
	word := l.readIdentifier()
	if !hyphenated[word] || l.ch != '-' || !isLetter(l.peekChar()) {
		return word
	}
	saved := *l
	l.readChar()
	joined := word + "-" + l.readIdentifier()
	if token.IsKeyword(joined) {
		return joined
	}
	*l = saved
	return word
}

// atMethodKey reports whether the text up to the next colon or blank holds a
// descriptor, as every method key does.
func (l *Lexer) atMethodKey() bool {
	end := strings.IndexFunc(l.input[l.position:], func(r rune) bool { return r == ':' || unicode.IsSpace(r) })
	if end < 0 {
		end = len(l.input) - l.position
	}
	return strings.ContainsRune(l.input[l.position:l.position+end], '(')
}

// readMethodKey reads a method name and descriptor, e.g. "<init>(I)V", up to
// the next colon or blank.
func (l *Lexer) readMethodKey() token.Token {
	line, col := l.line, l.column
	position := l.position
	for l.ch != 0 && l.ch != ':' && !unicode.IsSpace(l.ch) {
		l.readChar()
	}
	key := l.input[position:l.position]
	return token.Token{Type: token.METHOD_KEY, Lexeme: key, Literal: key, Line: line, Column: col}
}

func (l *Lexer) readNumber(line, col int) token.Token {
	position := l.position
	isFloat := false
	if l.ch == '-' {
		l.readChar()
	}
	for isDigit(l.ch) {
		l.readChar()
	}
	if l.ch == '.' && isDigit(l.peekChar()) {
		isFloat = true
		l.readChar() // .
		for isDigit(l.ch) {
			l.readChar()
		}
	}
	if l.ch == 'e' || l.ch == 'E' {
		next := l.peekChar()
		if isDigit(next) || next == '+' || next == '-' {
			isFloat = true
			l.readChar()
			if l.ch == '+' || l.ch == '-' {
				l.readChar()
			}
			for isDigit(l.ch) {
				l.readChar()
			}
		}
	}
	lexeme := l.input[position:l.position]

	if isFloat {
		val, err := strconv.ParseFloat(lexeme, 64)
		if err != nil {
			return token.Token{Type: token.ILLEGAL, Lexeme: lexeme, Literal: "invalid number " + lexeme, Line: line, Column: col}
		}
		return token.Token{Type: token.FLOAT, Lexeme: lexeme, Literal: val, Line: line, Column: col}
	}
	val, err := strconv.ParseInt(lexeme, 10, 64)
	if err != nil {
		return token.Token{Type: token.ILLEGAL, Lexeme: lexeme, Literal: "integer overflow " + lexeme, Line: line, Column: col}
	}
	return token.Token{Type: token.INT, Lexeme: lexeme, Literal: val, Line: line, Column: col}
}

func (l *Lexer) readString(line, col int) token.Token {
	position := l.position
	var b strings.Builder
	for {
		l.readChar()
		switch l.ch {
		case 0, '\n':
			return token.Token{Type: token.ILLEGAL, Lexeme: l.input[position:l.position], Literal: "unterminated string literal", Line: line, Column: col}
		case '"':
			l.readChar()
			return token.Token{Type: token.STRING, Lexeme: l.input[position:l.position], Literal: b.String(), Line: line, Column: col}
		case '\\':
			r, msg := l.readEscape()
			if msg != "" {
				return token.Token{Type: token.ILLEGAL, Lexeme: l.input[position:l.position], Literal: msg, Line: line, Column: col}
			}
			// a \uD83D\uDE00 pair spells one supplementary character
			if utf16IsHigh(r) && l.peekChar() == '\\' {
				saved := *l
				l.readChar()
				if lo, msg := l.readEscape(); msg == "" && utf16IsLow(lo) {
					r = 0x10000 + (r-0xD800)<<10 + (lo - 0xDC00)
				} else {
					*l = saved
				}
			}
			b.WriteRune(r)
		default:
			b.WriteRune(l.ch)
		}
	}
}

func (l *Lexer) readCharLiteral(line, col int) token.Token {
	position := l.position
	l.readChar() // skip opening '
	var r rune
	switch l.ch {
	case '\'', 0, '\n':
		return l.illegal(line, col, "empty character literal")
	case '\\':
		var msg string
		if r, msg = l.readEscape(); msg != "" {
			return token.Token{Type: token.ILLEGAL, Lexeme: l.input[position:l.position], Literal: msg, Line: line, Column: col}
		}
	default:
		r = l.ch
	}
	l.readChar()
	if l.ch != '\'' {
		return token.Token{Type: token.ILLEGAL, Lexeme: l.input[position:l.position], Literal: "unterminated character literal", Line: line, Column: col}
	}
	l.readChar()
	return token.Token{Type: token.CHAR, Lexeme: l.input[position:l.position], Literal: int64(r), Line: line, Column: col}
}

// readEscape reads the escape whose backslash is the current char and
// leaves the lexer on its last char.
func (l *Lexer) readEscape() (rune, string) {
	l.readChar() // consume backslash
	switch l.ch {
	case 'n':
		return '\n', ""
	case 't':
		return '\t', ""
	case 'r':
		return '\r', ""
	case 'b':
		return '\b', ""
	case 'f':
		return '\f', ""
	case '0':
		return 0, ""
	case '\\', '\'', '"':
		return l.ch, ""
	case 'u':
		val, ok := l.readHexEscape(4)
		if !ok {
			return 0, "invalid unicode escape sequence \\uXXXX"
		}
		return rune(val), ""
	}
	return 0, "invalid escape sequence \\" + string(l.ch)
}

func (l *Lexer) readHexEscape(n int) (int64, bool) {
	var val int64
	for range n {
		if !isHexDigit(l.peekChar()) {
			return 0, false
		}
		l.readChar()
		d, _ := strconv.ParseInt(string(l.ch), 16, 64)
		val = val*16 + d
	}
	return val, true
}

func utf16IsHigh(r rune) bool { return 0xD800 <= r && r < 0xDC00 }
func utf16IsLow(r rune) bool  { return 0xDC00 <= r && r < 0xE000 }

func isHexDigit(ch rune) bool {
	return isDigit(ch) || ('a' <= ch && ch <= 'f') || ('A' <= ch && ch <= 'F')
}

func isLetter(ch rune) bool {
	return 'a' <= ch && ch <= 'z' || 'A' <= ch && ch <= 'Z' || ch == '_' || ch == '$' || (ch >= 0x80 && unicode.IsLetter(ch))
}

func isDigit(ch rune) bool {
	return '0' <= ch && ch <= '9'
}

func (l *Lexer) peekChar() rune {
	if l.readPosition >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.readPosition:])
	return r
}

func newToken(tokenType token.TokenType, ch rune, line, col int) token.Token {
	literal := string(ch)
	return token.Token{Type: tokenType, Lexeme: literal, Literal: literal, Line: line, Column: col}
}

func (l *Lexer) skipWhitespace() {
	for {
		for l.ch == ' ' || l.ch == '\t' || l.ch == '\r' || l.ch == '\n' {
			l.readChar()
		}
		// Handle comments
		if l.ch == '/' {
			if l.peekChar() == '/' {
				l.readChar() // consume first /
				l.readChar() // consume second /
				for l.ch != '\n' && l.ch != 0 {
					l.readChar()
				}
				continue
			} else if l.peekChar() == '*' {
				l.readChar() // consume /
				l.readChar() // consume *
				for l.ch != 0 {
					if l.ch == '*' && l.peekChar() == '/' {
						l.readChar() // consume *
						l.readChar() // consume /
						break
					}
					l.readChar()
				}
				continue
			}
		}
		break
	}
}
