// Copyright 2024 Richard Kelsey. All rights reserved.
// See file LICENSE for notices and license.

// Very basic S-expression reader.  Comments run from ';' to the end
// of the line.

package util

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"
)

type SExpKindT int

const (
	SExpInt SExpKindT = iota
	SExpSymbol
	SExpList
)

type SExpT struct {
	Kind    SExpKindT
	Integer int
	Symbol  string
	List    []*SExpT
	Line    int
}

func (sexp *SExpT) String() string {
	switch sexp.Kind {
	case SExpInt:
		return fmt.Sprintf("%d", sexp.Integer)
	case SExpSymbol:
		return sexp.Symbol
	case SExpList:
		if len(sexp.List) == 0 {
			return "()"
		}
		result := "(" + sexp.List[0].String()
		for _, s := range sexp.List[1:] {
			result += " " + s.String()
		}
		return result + ")"
	}
	panic("bad S-expression")
}

func (sexp *SExpT) IsList() bool   { return sexp.Kind == SExpList }
func (sexp *SExpT) IsSymbol() bool { return sexp.Kind == SExpSymbol }
func (sexp *SExpT) IsInt() bool    { return sexp.Kind == SExpInt }

// The symbol at the head of a list, or "" if there isn't one.
func (sexp *SExpT) Head() string {
	if sexp.Kind != SExpList || len(sexp.List) == 0 || sexp.List[0].Kind != SExpSymbol {
		return ""
	}
	return sexp.List[0].Symbol
}

func ParseSExp(data string) (*SExpT, error) {
	sexps, err := ParseSExps(data)
	if err != nil {
		return nil, err
	}
	if len(sexps) != 1 {
		return nil, fmt.Errorf("expected one s-expression, found %d", len(sexps))
	}
	return sexps[0], nil
}

// Reads all of the top-level s-expressions in 'data'.

func ParseSExps(data string) ([]*SExpT, error) {
	reader := &sexpReaderT{reader: bufio.NewReader(strings.NewReader(data)), line: 1}
	top := &SExpT{Kind: SExpList}
	open := StackT[*SExpT]{}
	open.Push(top)
	for {
		token, line, err := reader.nextToken()
		if err != nil {
			return nil, err
		}
		switch token {
		case "":
			if open.Len() != 1 {
				return nil, fmt.Errorf("line %d: unterminated list starting on line %d", line, open.Top().Line)
			}
			return top.List, nil
		case "(":
			list := &SExpT{Kind: SExpList, Line: line}
			open.Top().List = append(open.Top().List, list)
			open.Push(list)
		case ")":
			if open.Len() == 1 {
				return nil, fmt.Errorf("line %d: unexpected ')'", line)
			}
			open.Pop()
		default:
			next := &SExpT{Line: line}
			i, err := strconv.Atoi(token)
			if err == nil {
				next.Kind = SExpInt
				next.Integer = i
			} else {
				next.Kind = SExpSymbol
				next.Symbol = token
			}
			open.Top().List = append(open.Top().List, next)
		}
	}
}

type sexpReaderT struct {
	reader *bufio.Reader
	line   int
}

// Returns "" at the end of the input.

func (reader *sexpReaderT) nextToken() (string, int, error) {
	var contents strings.Builder
	inComment := false
	for {
		c, _, err := reader.reader.ReadRune()
		if err == io.EOF {
			return contents.String(), reader.line, nil
		} else if err != nil {
			return "", reader.line, err
		}
		if 0 < contents.Len() {
			if isSymbolConstituent(c) {
				contents.WriteRune(c)
				continue
			}
			reader.reader.UnreadRune()
			return contents.String(), reader.line, nil
		}
		switch {
		case c == '\n':
			reader.line += 1
			inComment = false
		case inComment || unicode.IsSpace(c):
		case c == ';':
			inComment = true
		case c == '(' || c == ')':
			return string(c), reader.line, nil
		case isSymbolConstituent(c):
			contents.WriteRune(c)
		default:
			return "", reader.line, fmt.Errorf("line %d: unrecognized s-expression character %s",
				reader.line, strconv.QuoteRune(c))
		}
	}
}

func isSymbolConstituent(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || strings.ContainsRune(":_*&-+./$<>[", r)
}
