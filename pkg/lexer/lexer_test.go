package lexer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextToken_Delimiters(t *testing.T) {
	input := `(){}[],.;:?`
	want := []TokenType{
		TokenLeftParen, TokenRightParen, TokenLeftBrace, TokenRightBrace,
		TokenLeftBracket, TokenRightBracket, TokenComma, TokenDot,
		TokenSemicolon, TokenColon, TokenQuestion, TokenEOF,
	}

	l := New(input)
	for i, tt := range want {
		tok := l.NextToken()
		require.Equalf(t, tt, tok.Type, "token %d", i)
	}
}

func TestNextToken_OneOrTwoCharOperators(t *testing.T) {
	input := `! != = == < <= > >=`
	want := []TokenType{
		TokenBang, TokenBangEqual, TokenEqual, TokenEqualEqual,
		TokenLess, TokenLessEqual, TokenGreater, TokenGreaterEqual,
	}

	l := New(input)
	for i, tt := range want {
		tok := l.NextToken()
		require.Equalf(t, tt, tok.Type, "token %d", i)
	}
}

func TestNextToken_KeywordsAndIdentifiers(t *testing.T) {
	input := `and class case default else false for fun if nil or print return super switch this true var while continue foo _bar2`
	want := []TokenType{
		TokenAnd, TokenClass, TokenCase, TokenDefault, TokenElse, TokenFalse,
		TokenFor, TokenFun, TokenIf, TokenNil, TokenOr, TokenPrint, TokenReturn,
		TokenSuper, TokenSwitch, TokenThis, TokenTrue, TokenVar, TokenWhile,
		TokenContinue, TokenIdentifier, TokenIdentifier,
	}

	l := New(input)
	for i, tt := range want {
		tok := l.NextToken()
		require.Equalf(t, tt, tok.Type, "token %d (%q)", i, tok.Lexeme)
	}
}

func TestNextToken_Numbers(t *testing.T) {
	l := New(`123 3.14 3.`)

	tok := l.NextToken()
	assert.Equal(t, TokenNumber, tok.Type)
	assert.Equal(t, "123", tok.Lexeme)

	tok = l.NextToken()
	assert.Equal(t, TokenNumber, tok.Type)
	assert.Equal(t, "3.14", tok.Lexeme)

	// A trailing dot is not consumed into the number (spec.md §4.1).
	tok = l.NextToken()
	assert.Equal(t, TokenNumber, tok.Type)
	assert.Equal(t, "3", tok.Lexeme)
	tok = l.NextToken()
	assert.Equal(t, TokenDot, tok.Type)
}

func TestNextToken_Strings(t *testing.T) {
	l := New(`"hello" "multi
line" "unterminated`)

	tok := l.NextToken()
	require.Equal(t, TokenString, tok.Type)
	assert.Equal(t, `"hello"`, tok.Lexeme)

	tok = l.NextToken()
	require.Equal(t, TokenString, tok.Type)
	assert.Equal(t, 2, tok.Line, "closing quote is on source line 2")

	tok = l.NextToken()
	require.Equal(t, TokenError, tok.Type)
	assert.Equal(t, "Unterminated string.", tok.Message)
}

func TestNextToken_CommentsAndWhitespace(t *testing.T) {
	l := New("// a full line comment\n  \t print // trailing\n42")

	tok := l.NextToken()
	require.Equal(t, TokenPrint, tok.Type)
	assert.Equal(t, 2, tok.Line)

	tok = l.NextToken()
	require.Equal(t, TokenNumber, tok.Type)
	assert.Equal(t, 3, tok.Line)
}

func TestNextToken_UnexpectedCharacter(t *testing.T) {
	l := New(`#`)
	tok := l.NextToken()
	require.Equal(t, TokenError, tok.Type)
	assert.Equal(t, "Unexpected character.", tok.Message)
}

func TestNextToken_KeepsReturningEOFAfterEnd(t *testing.T) {
	l := New(``)
	for i := 0; i < 3; i++ {
		tok := l.NextToken()
		assert.Equal(t, TokenEOF, tok.Type)
	}
}

func TestNextToken_NonASCIIBytesPassThrough(t *testing.T) {
	l := New("\"caf\xc3\xa9\"")
	tok := l.NextToken()
	require.Equal(t, TokenString, tok.Type)
	assert.Equal(t, "\"caf\xc3\xa9\"", tok.Lexeme)
}
