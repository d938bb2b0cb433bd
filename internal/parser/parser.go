// Package parser turns quill source text into an ast.Program.
//
// Parsing is fail-fast: the first offending line aborts the whole parse
// with a single error. There is no error-recovery mode and no partial
// result, mirroring the language's own untyped, unforgiving posture.
package parser

import (
	"strings"

	"github.com/quilldsl/quill/internal/ast"
)

// sourceLine is the transient product of line analysis (spec §3):
// an indentation level plus an ordered token sequence. It never
// escapes this package.
type sourceLine struct {
	indent int
	tokens []string
	lineNo int
	raw    string
}

// Parse runs both parser phases (line analysis, then tree construction)
// over src and returns the resulting Program.
func Parse(src string) (*ast.Program, error) {
	lines, err := analyzeLines(src)
	if err != nil {
		return nil, err
	}
	return buildTree(lines)
}

// analyzeLines implements Phase 1 (§4.1): filtering, indentation
// counting, and tokenization.
func analyzeLines(src string) ([]sourceLine, error) {
	raw := strings.Split(strings.ReplaceAll(src, "\r\n", "\n"), "\n")

	var lines []sourceLine
	for i, r := range raw {
		lineNo := i + 1
		trimmed := strings.TrimSpace(r)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}

		s := 0
		for s < len(r) && r[s] == ' ' {
			s++
		}
		if s%2 != 0 {
			return nil, &LexError{Line: lineNo, Raw: r, Msg: "Invalid indentation"}
		}

		tokens, err := tokenize(trimmed)
		if err != nil {
			return nil, &LexError{Line: lineNo, Raw: r, Msg: err.Error()}
		}

		lines = append(lines, sourceLine{
			indent: s / 2,
			tokens: tokens,
			lineNo: lineNo,
			raw:    r,
		})
	}
	return lines, nil
}

// tokenize scans trimmed left to right, splitting on whitespace except
// inside a double-quoted span, which is kept as a single lexeme with
// its quotes intact. Escape sequences are not interpreted.
func tokenize(trimmed string) ([]string, error) {
	var tokens []string
	i := 0
	n := len(trimmed)

	for i < n {
		for i < n && isSpace(trimmed[i]) {
			i++
		}
		if i >= n {
			break
		}

		if trimmed[i] == '"' {
			start := i
			i++
			for i < n && trimmed[i] != '"' {
				i++
			}
			if i >= n {
				return nil, errUnterminatedString
			}
			i++ // consume closing quote
			tokens = append(tokens, trimmed[start:i])
			continue
		}

		start := i
		for i < n && !isSpace(trimmed[i]) {
			i++
		}
		tokens = append(tokens, trimmed[start:i])
	}

	return tokens, nil
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t'
}

var errUnterminatedString = unterminatedStringError{}

type unterminatedStringError struct{}

func (unterminatedStringError) Error() string { return "unterminated string literal" }

// buildTree implements Phase 2 (§4.1): the indentation stack walk that
// nests commands into blocks.
func buildTree(lines []sourceLine) (*ast.Program, error) {
	program := &ast.Program{}

	bodies := []*[]*ast.Command{&program.Body}
	currentIndent := 0

	for _, line := range lines {
		cmd := buildCommand(line)

		switch {
		case line.indent > currentIndent:
			if line.indent != currentIndent+1 {
				return nil, &IndentError{
					Line: line.lineNo,
					Msg:  "Invalid indentation increase",
				}
			}
			top := bodies[len(bodies)-1]
			if len(*top) == 0 {
				return nil, &IndentError{
					Line: line.lineNo,
					Msg:  "Indentation error: cannot indent on an empty block.",
				}
			}
			parent := (*top)[len(*top)-1]
			parent.Body = []*ast.Command{}
			bodies = append(bodies, &parent.Body)

		case line.indent < currentIndent:
			for pop := currentIndent - line.indent; pop > 0; pop-- {
				bodies = bodies[:len(bodies)-1]
			}
		}

		top := bodies[len(bodies)-1]
		*top = append(*top, cmd)
		currentIndent = line.indent
	}

	return program, nil
}

func buildCommand(line sourceLine) *ast.Command {
	cmd := &ast.Command{Name: line.tokens[0]}
	for _, tok := range line.tokens[1:] {
		cmd.Args = append(cmd.Args, classify(tok))
	}
	return cmd
}

// classify applies the argument classification table in strict order
// (§4.1): variable substitution, then string literal, then option,
// falling back to identifier.
func classify(tok string) ast.Argument {
	if name, ok := variableSubstitutionName(tok); ok {
		return ast.VariableSubstitution{Name: name}
	}
	if len(tok) >= 2 && tok[0] == '"' && tok[len(tok)-1] == '"' {
		return ast.StringLiteral{Value: tok[1 : len(tok)-1]}
	}
	if len(tok) >= 1 && tok[0] == '-' {
		return ast.Option{Value: tok}
	}
	return ast.Identifier{Value: tok}
}

// variableSubstitutionName recognizes the `{$X}` shape with a
// non-empty, brace-free interior.
func variableSubstitutionName(tok string) (string, bool) {
	if len(tok) < 4 || !strings.HasPrefix(tok, "{$") || tok[len(tok)-1] != '}' {
		return "", false
	}
	interior := tok[2 : len(tok)-1]
	if interior == "" || strings.ContainsAny(interior, "{}") {
		return "", false
	}
	return interior, true
}
