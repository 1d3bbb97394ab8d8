// Package shellparse splits option strings, such as the JVM options from
// configuration, into argument vectors using POSIX shell quoting rules.
package shellparse

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

var (
	// ErrUnclosedQuote is returned when a quoted word never ends.
	ErrUnclosedQuote = errors.New("unclosed quote in option string")

	// ErrTrailingEscape is returned when the input ends with a backslash.
	ErrTrailingEscape = errors.New("trailing escape character in option string")
)

type state int

const (
	stateSpace state = iota
	stateWord
	stateSingle
	stateDouble
)

type splitter struct {
	words   []string
	word    strings.Builder
	inWord  bool
	state   state
	escaped bool
}

func (s *splitter) endWord() {
	if s.inWord {
		s.words = append(s.words, s.word.String())
		s.word.Reset()
		s.inWord = false
	}
}

func (s *splitter) add(r rune) {
	s.word.WriteRune(r)
	s.inWord = true
}

func (s *splitter) feed(r rune) {
	if s.escaped {
		s.escaped = false
		if s.state == stateDouble && !strings.ContainsRune("\"\\$`", r) {
			s.add('\\')
		}
		s.add(r)
		return
	}

	switch s.state {
	case stateSingle:
		if r == '\'' {
			s.state = stateWord
			return
		}
		s.add(r)
	case stateDouble:
		switch r {
		case '"':
			s.state = stateWord
		case '\\':
			s.escaped = true
		default:
			s.add(r)
		}
	default:
		switch {
		case unicode.IsSpace(r):
			s.endWord()
			s.state = stateSpace
		case r == '\\':
			s.escaped = true
			s.state = stateWord
		case r == '\'':
			s.inWord = true
			s.state = stateSingle
		case r == '"':
			s.inWord = true
			s.state = stateDouble
		default:
			s.add(r)
			s.state = stateWord
		}
	}
}

// Split breaks input into words. Whitespace separates words; single quotes
// keep their content literally; double quotes honour backslash escapes of
// `"`, `\`, `$` and backquote; outside quotes a backslash escapes any
// character. An empty quoted string produces an empty word.
//
//	Split(`-Xmx2g -Dfile.encoding=UTF-8`)   => ["-Xmx2g", "-Dfile.encoding=UTF-8"]
//	Split(`-Duser.home="/home/my user"`)    => ["-Duser.home=/home/my user"]
func Split(input string) ([]string, error) {
	s := &splitter{}
	for _, r := range input {
		s.feed(r)
	}

	if s.escaped {
		return nil, ErrTrailingEscape
	}
	switch s.state {
	case stateSingle:
		return nil, fmt.Errorf("%w: unclosed single quote", ErrUnclosedQuote)
	case stateDouble:
		return nil, fmt.Errorf("%w: unclosed double quote", ErrUnclosedQuote)
	}

	s.endWord()
	if s.words == nil {
		return []string{}, nil
	}
	return s.words, nil
}

// Join renders args as a single string that Split turns back into args.
func Join(args []string) string {
	quoted := make([]string, len(args))
	for i, arg := range args {
		quoted[i] = Quote(arg)
	}
	return strings.Join(quoted, " ")
}

// Quote returns arg unchanged when it needs no quoting, single-quoted when
// possible and double-quoted with escapes otherwise.
func Quote(arg string) string {
	if arg == "" {
		return "''"
	}
	if !strings.ContainsFunc(arg, needsQuoting) {
		return arg
	}
	if !strings.ContainsRune(arg, '\'') {
		return "'" + arg + "'"
	}

	var b strings.Builder
	b.WriteByte('"')
	for _, r := range arg {
		if strings.ContainsRune("\"\\$`", r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	b.WriteByte('"')
	return b.String()
}

func needsQuoting(r rune) bool {
	return unicode.IsSpace(r) || strings.ContainsRune("'\"\\$`", r)
}
