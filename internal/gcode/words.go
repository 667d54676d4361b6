package gcode

import (
	"strconv"
	"strings"

	"fluidnc/internal/errs"
	"fluidnc/internal/numeric"
)

// word is one parsed `L<value>` word where L is a command/parameter
// letter.
type word struct {
	Letter byte
	Value  float64
}

// extractAssignments pulls every `#ref = value` pair out of the line
//, evaluating the right-hand side immediately
// against the resolver but leaving the write itself for the caller to
// apply only once the whole block succeeds. Returns the line with the
// assignment text removed; parameter references elsewhere on the line
// (such as X#100) are left for the word scan to resolve.
func extractAssignments(line string, res numeric.Resolver) (string, []assignment, error) {
	var out strings.Builder
	var assigns []assignment
	i := 0
	for i < len(line) {
		if line[i] != '#' {
			out.WriteByte(line[i])
			i++
			continue
		}
		refStart := i + 1
		named := false
		var ref string
		j := refStart
		if j < len(line) && line[j] == '<' {
			named = true
			end := strings.IndexByte(line[j:], '>')
			if end < 0 {
				return "", nil, errs.New(errs.InvalidStatement)
			}
			ref = line[j+1 : j+end]
			j = j + end + 1
		} else {
			for j < len(line) && line[j] >= '0' && line[j] <= '9' {
				j++
			}
			if j == refStart {
				return "", nil, errs.New(errs.InvalidStatement)
			}
			ref = line[refStart:j]
		}
		k := j
		for k < len(line) && line[k] == ' ' {
			k++
		}
		if k >= len(line) || line[k] != '=' {
			// Not an assignment — a bare parameter reference used as a
			// value elsewhere; leave it for the caller (e.g. inside a
			// bracketed expression for an axis word) by passing it
			// through untouched.
			out.WriteString(line[i:j])
			i = j
			continue
		}
		k++
		for k < len(line) && line[k] == ' ' {
			k++
		}
		val, consumed, err := numeric.EvalBracketed(line[k:], res)
		if err != nil {
			// Not bracketed: read until whitespace or EOL as a bare
			// numeric literal/expression body.
			end := k
			for end < len(line) && line[end] != ' ' {
				end++
			}
			v, everr := numeric.Eval(line[k:end], res)
			if everr != nil {
				return "", nil, everr
			}
			assigns = append(assigns, assignment{ref: ref, named: named, value: v})
			i = end
			continue
		}
		assigns = append(assigns, assignment{ref: ref, named: named, value: val})
		i = k + consumed
	}
	return out.String(), assigns, nil
}

// scanWords tokenizes the remaining line into L<value> words, where <value> may be a bracketed expression, a
// parameter reference, or a plain (possibly signed decimal) literal.
func scanWords(line string, res numeric.Resolver) ([]word, error) {
	var words []word
	i := 0
	for i < len(line) {
		c := line[i]
		if c == ' ' || c == '\t' {
			i++
			continue
		}
		if !isWordLetter(c) {
			return nil, errs.New(errs.ExpectedCommandLetter)
		}
		letter := upper(c)
		i++
		for i < len(line) && (line[i] == ' ' || line[i] == '\t') {
			i++
		}
		if i >= len(line) {
			return nil, errs.New(errs.GcodeValueWordMissing)
		}
		var v float64
		var err error
		switch {
		case line[i] == '[':
			var consumed int
			v, consumed, err = numeric.EvalBracketed(line[i:], res)
			if err != nil {
				return nil, err
			}
			i += consumed
		case line[i] == '#':
			v, i, err = scanParamValue(line, i, res)
			if err != nil {
				return nil, err
			}
		default:
			v, i, err = scanNumberValue(line, i)
			if err != nil {
				return nil, err
			}
		}
		words = append(words, word{Letter: letter, Value: v})
	}
	return words, nil
}

func isWordLetter(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
}

func upper(c byte) byte {
	if c >= 'a' && c <= 'z' {
		return c - 'a' + 'A'
	}
	return c
}

func scanParamValue(line string, i int, res numeric.Resolver) (float64, int, error) {
	j := i + 1
	if j < len(line) && line[j] == '<' {
		end := strings.IndexByte(line[j:], '>')
		if end < 0 {
			return 0, 0, errs.New(errs.InvalidStatement)
		}
		name := line[j+1 : j+end]
		v, _ := res.GetNamed(name)
		return v, j + end + 1, nil
	}
	start := j
	for j < len(line) && line[j] >= '0' && line[j] <= '9' {
		j++
	}
	if j == start {
		return 0, 0, errs.New(errs.InvalidStatement)
	}
	n, _ := strconv.Atoi(line[start:j])
	return res.GetNumbered(n), j, nil
}

func scanNumberValue(line string, i int) (float64, int, error) {
	start := i
	if i < len(line) && (line[i] == '+' || line[i] == '-') {
		i++
	}
	sawDigit := false
	for i < len(line) && line[i] >= '0' && line[i] <= '9' {
		i++
		sawDigit = true
	}
	if i < len(line) && line[i] == '.' {
		i++
		for i < len(line) && line[i] >= '0' && line[i] <= '9' {
			i++
			sawDigit = true
		}
	}
	if !sawDigit {
		return 0, 0, errs.New(errs.BadNumberFormat)
	}
	v, err := strconv.ParseFloat(line[start:i], 64)
	if err != nil {
		return 0, 0, errs.New(errs.BadNumberFormat)
	}
	return v, i, nil
}
