package token

type TokenType string

type Token struct {
	Type    TokenType
	Lexeme  string
	Literal any
	Line    int
	Column  int
}

const (
	ILLEGAL TokenType = "ILLEGAL"
	EOF     TokenType = "EOF"

	IDENT      TokenType = "IDENT"
	INT        TokenType = "INT"   // 12, -3
	FLOAT      TokenType = "FLOAT" // 1.5, -2e10
	STRING     TokenType = "STRING"
	CHAR       TokenType = "CHAR"
	METHOD_KEY TokenType = "METHOD_KEY" // run(I)V, raw text after "method"

	COLON    TokenType = ":"
	COMMA    TokenType = ","
	DOT      TokenType = "."
	AT       TokenType = "@"
	HASH     TokenType = "#"
	ASTERISK TokenType = "*"
	PLUS     TokenType = "+"
	AMP      TokenType = "&"
	ASSIGN   TokenType = "="
	LPAREN   TokenType = "("
	RPAREN   TokenType = ")"
	LBRACE   TokenType = "{"
	RBRACE   TokenType = "}"
	BRACKETS TokenType = "[]"

	// Keywords
	PACKAGE          TokenType = "package"
	CLASS            TokenType = "class"
	ANNOTATION       TokenType = "annotation"
	FIELD            TokenType = "field"
	METHOD           TokenType = "method"
	STATICINIT       TokenType = "staticinit"
	TYPE             TokenType = "type"
	TYPEPARAM        TokenType = "typeparam"
	BOUND            TokenType = "bound"
	EXTENDS          TokenType = "extends"
	IMPLEMENTS       TokenType = "implements"
	INNER_TYPE       TokenType = "inner-type"
	PARAMETER        TokenType = "parameter"
	RECEIVER         TokenType = "receiver"
	RETURN           TokenType = "return"
	THROWS           TokenType = "throws"
	LOCAL            TokenType = "local"
	RESOURCE         TokenType = "resource"
	CATCH            TokenType = "catch"
	TYPECAST         TokenType = "typecast"
	INSTANCEOF       TokenType = "instanceof"
	NEW              TokenType = "new"
	REFERENCE        TokenType = "reference"
	CONSTRUCTOR_REF  TokenType = "constructor-reference"
	CALL             TokenType = "call"
	UNKNOWN          TokenType = "unknown"
	ENUM             TokenType = "enum"
	ANNOTATION_FIELD TokenType = "annotation-field"
	TRUE             TokenType = "true"
	FALSE            TokenType = "false"
)

var keywords = map[string]TokenType{
	"package":               PACKAGE,
	"class":                 CLASS,
	"annotation":            ANNOTATION,
	"field":                 FIELD,
	"method":                METHOD,
	"staticinit":            STATICINIT,
	"type":                  TYPE,
	"typeparam":             TYPEPARAM,
	"bound":                 BOUND,
	"extends":               EXTENDS,
	"implements":            IMPLEMENTS,
	"inner-type":            INNER_TYPE,
	"parameter":             PARAMETER,
	"receiver":              RECEIVER,
	"return":                RETURN,
	"throws":                THROWS,
	"local":                 LOCAL,
	"resource":              RESOURCE,
	"catch":                 CATCH,
	"typecast":              TYPECAST,
	"instanceof":            INSTANCEOF,
	"new":                   NEW,
	"reference":             REFERENCE,
	"constructor-reference": CONSTRUCTOR_REF,
	"call":                  CALL,
	"unknown":               UNKNOWN,
	"enum":                  ENUM,
	"annotation-field":      ANNOTATION_FIELD,
	"true":                  TRUE,
	"false":                 FALSE,
}

// LookupIdent returns the keyword type for ident, or IDENT.
func LookupIdent(ident string) TokenType {
	if tok, ok := keywords[ident]; ok {
		return tok
	}
	return IDENT
}

// IsKeyword reports whether word is reserved.
func IsKeyword(word string) bool {
	_, ok := keywords[word]
	return ok
}

// IsWord reports whether t is spelled like an identifier: IDENT or a keyword.
// Names in index files may reuse keywords ("class type:", "field new:").
func (t TokenType) IsWord() bool {
	if t == IDENT {
		return true
	}
	_, ok := keywords[string(t)]
	return ok
}
