// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import (
	"strconv"

	"github.com/pkg/errors"
)

// lexState is the state of the lexer between characters. Only the block
// comment state survives the end of a line.
type lexState byte

const (
	stateInitial lexState = iota
	stateWord
	stateString
	stateBlockComment
)

// A lexer splits source lines into tokens. Tokens are separators (","
// and ":"), words, and string literals that keep their enclosing quotes
// and have their escape sequences already resolved.
type lexer struct {
	state lexState
}

// tokenize returns the tokens of one source line.
func (l *lexer) tokenize(line string) ([]string, error) {
	var tokens []string
	var word []byte

	for i := 0; i < len(line); i++ {
		c := line[i]
		switch l.state {
		case stateInitial:
			switch {
			case whitespace(c):
			case c == ',' || c == ':':
				tokens = append(tokens, string(c))
			case wordStartChar(c):
				word = append(word[:0], c)
				l.state = stateWord
			case c == '"':
				word = append(word[:0], c)
				l.state = stateString
			case c == '/':
				i++
				if i >= len(line) {
					return nil, errors.New("Unexpected end of line")
				}
				switch line[i] {
				case '/':
					i = len(line)
				case '*':
					l.state = stateBlockComment
				default:
					return nil, errors.Errorf("Unexpected character: \"%c\"", line[i])
				}
			default:
				return nil, errors.Errorf("Unexpected character: \"%c\"", c)
			}

		case stateWord:
			if wordChar(c) {
				word = append(word, c)
			} else {
				tokens = append(tokens, string(word))
				l.state = stateInitial
				i--
			}

		case stateString:
			switch c {
			case '\\':
				b, n, err := unescape(line[i+1:])
				if err != nil {
					return nil, err
				}
				word = append(word, b)
				i += n
			case '"':
				word = append(word, c)
				tokens = append(tokens, string(word))
				l.state = stateInitial
			default:
				word = append(word, c)
			}

		case stateBlockComment:
			if c == '*' && i+1 < len(line) && line[i+1] == '/' {
				i++
				l.state = stateInitial
			}
		}
	}

	switch l.state {
	case stateString:
		return nil, errors.New("Unexpected end of line")
	case stateWord:
		tokens = append(tokens, string(word))
	}
	if l.state != stateBlockComment {
		l.state = stateInitial
	}
	return tokens, nil
}

// unescape decodes the escape sequence at the start of s, which follows a
// backslash. It returns the decoded byte and the number of characters of s
// consumed.
func unescape(s string) (b byte, n int, err error) {
	if len(s) == 0 {
		return 0, 0, errors.New("Unexpected end of line")
	}

	switch c := s[0]; {
	case c == '\\', c == '"', c == '\'':
		return c, 1, nil
	case c == 't':
		return '\t', 1, nil
	case c == 'n':
		return '\n', 1, nil
	case c == 'r':
		return '\r', 1, nil
	case c == 'x':
		digits := prefixLen(s[1:], hexadecimal, 2)
		if digits == 0 {
			return 0, 0, errors.New("Ill-formed escape sequence")
		}
		v, _ := strconv.ParseUint(s[1:1+digits], 16, 8)
		return byte(v), 1 + digits, nil
	case octal(c):
		digits := prefixLen(s, octal, 3)
		v, _ := strconv.ParseUint(s[:digits], 8, 16)
		if v > 255 {
			return 0, 0, errors.New("Octal value is out of range")
		}
		return byte(v), digits, nil
	default:
		return 0, 0, errors.Errorf("Unknown escape sequence: \"\\%c\"", c)
	}
}

// prefixLen returns the number of leading characters of s, at most max,
// that satisfy fn.
func prefixLen(s string, fn func(c byte) bool, max int) int {
	n := 0
	for n < len(s) && n < max && fn(s[n]) {
		n++
	}
	return n
}

//
// character helper functions
//

func whitespace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func alpha(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func decimal(c byte) bool {
	return c >= '0' && c <= '9'
}

func alphanumeric(c byte) bool {
	return alpha(c) || decimal(c)
}

func hexadecimal(c byte) bool {
	return decimal(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func octal(c byte) bool {
	return c >= '0' && c <= '7'
}

func wordStartChar(c byte) bool {
	return alphanumeric(c) || c == '.' || c == '#' || c == '_' || c == '-' || c == '+'
}

func wordChar(c byte) bool {
	return wordStartChar(c) || c == '@'
}

func identifierStartChar(c byte) bool {
	return alpha(c) || c == '_'
}

func identifierChar(c byte) bool {
	return alphanumeric(c) || c == '_'
}
