package gcode

import (
	"strings"

	"fluidnc/internal/errs"
)

// stripComments implements: ';' to EOL, '(' ... ')'
// inline, with an unmatched paren reported as InvalidStatement.
func stripComments(line string) (string, error) {
	var b strings.Builder
	depth := 0
	for _, r := range line {
		switch {
		case r == ';' && depth == 0:
			return b.String(), nil
		case r == '(':
			depth++
		case r == ')':
			if depth == 0 {
				return "", errs.New(errs.InvalidStatement)
			}
			depth--
		case depth == 0:
			b.WriteRune(r)
		}
	}
	if depth != 0 {
		return "", errs.New(errs.InvalidStatement)
	}
	return b.String(), nil
}

// isDemarcator implements: a line starting with '%'
// is a program demarcator, ignored except to mark start/end.
func isDemarcator(line string) bool {
	trimmed := strings.TrimSpace(line)
	return len(trimmed) > 0 && trimmed[0] == '%'
}

// flowWords is the closed set of words the flow-control interpreter
// recognizes, used to detect a leading O<n> flow-control line.
var flowWords = map[string]bool{
	"IF": true, "ELSEIF": true, "ELSE": true, "ENDIF": true,
	"WHILE": true, "ENDWHILE": true, "DO": true,
	"REPEAT": true, "ENDREPEAT": true,
	"BREAK": true, "CONTINUE": true, "RETURN": true,
	"ALARM": true, "ERROR": true,
}

// parsedOLine is a recognized leading O<label> <WORD>[expr] line.
type parsedOLine struct {
	Label    int
	Word     string
	ExprText string
}

// scanOLine recognizes a leading "O<n> <FLOWWORD>[expr]" form. Returns
// ok=false if the line does not start with O.
func scanOLine(line string) (parsedOLine, bool, error) {
	trimmed := strings.TrimSpace(line)
	if len(trimmed) == 0 || (trimmed[0] != 'O' && trimmed[0] != 'o') {
		return parsedOLine{}, false, nil
	}
	i := 1
	start := i
	for i < len(trimmed) && (trimmed[i] >= '0' && trimmed[i] <= '9') {
		i++
	}
	if i == start {
		return parsedOLine{}, false, nil
	}
	label := 0
	for _, r := range trimmed[start:i] {
		label = label*10 + int(r-'0')
	}
	rest := strings.TrimSpace(trimmed[i:])

	// Find the flow word: letters up to '[' or end/space.
	j := 0
	for j < len(rest) && (rest[j] >= 'A' && rest[j] <= 'Z' || rest[j] >= 'a' && rest[j] <= 'z') {
		j++
	}
	word := strings.ToUpper(rest[:j])
	if !flowWords[word] {
		return parsedOLine{}, false, nil
	}
	exprText := ""
	residue := strings.TrimSpace(rest[j:])
	if strings.HasPrefix(residue, "[") {
		end := strings.Index(residue, "]")
		if end < 0 {
			return parsedOLine{}, false, errs.New(errs.FlowControlSyntaxError)
		}
		exprText = residue[1:end]
	}
	return parsedOLine{Label: label, Word: word, ExprText: exprText}, true, nil
}

// assignment is a deferred `#ref = value` found anywhere on the line.
type assignment struct {
	ref   string // "100" for #100, or a bare name for #<name>
	named bool
	value float64
}
