/*package format handles vizgrid's miniature formatting languages for batches
of input files, e.g:

   Inputs = "run{%02d,step}/tally_{%03d,0..40 - 17}.msht"
   Output = "cache/tally_{%03d,step}.vgr"

The exact rules are as follows:
File format strings are a combination of fixed text and variables. Fixed text is
always the same, and variables can change from file to file. Variables are
written as {verb,rule}. "verb" is a printf() verb for an integer (e.g. %03d)
that specifies how the variable should be printed. "rule" is text that
specifies what values the variable should take on. There are two rules:

  sequence format - The variable ranges over a user-specified range. Each
      value is a "step" of the batch. Only input formats can use sequences,
      and every sequence in a format must be the same.
  "step" - The variable is equal to the current step.

Sequence formats are a generic way to specify non-contiguous sequences of
natural numbers. They consist of a series of n tokens separated by "+" or "-".
Each token can be either a number or two numbers separated by "..". E.g.:

  100
  0..100
  0..10 + 100
  0..100 - 63 - 10..20

These strings build up sequences of numbers by adding/removing individual
numbers and contiguous sequences. For example, 0 through 10 would be 0..10,
1, 2, 3, 15, 16, 17 could be written as  1..17 - 4..14. This is useful for
skipping failed runs or specifying a subset of files.

All spaces around "-", "+", and "," symbols are ignored.
*/
package format

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

const (
	// Any expanded formats which would have more than BigNumber elements are
	// assumed to be bugs.
	BigNumber = 1 << 20
	// StepRule is the rule for variables that equal the current step.
	StepRule = "step"
)

// ExpandSequenceFormat expands a sequence format string into a sorted sequence
// of integers.
func ExpandSequenceFormat(format string) ([]int, error) {
	// Parse and error-check the format string.
	tok, err := tokeniseSequenceFormat(format)
	if err != nil {
		return nil, err
	}
	adds, subs, err := addsSubsSequenceFormat(tok)
	if err != nil {
		return nil, err
	}

	// Add numbers to the sequence.
	m := map[int]bool{}
	for i := range adds {
		lo, hi := sequenceTokenBounds(adds[i])
		if hi-lo+1 > BigNumber-len(m) {
			return nil, fmt.Errorf("This sequence would have more than %d "+
				"elements, which is almost certainly a bug.", BigNumber)
		}
		for n := lo; n <= hi; n++ {
			if m[n] {
				return nil, fmt.Errorf("The number %d is added more than "+
					"once.", n)
			}
			m[n] = true
		}
	}

	// Remove numbers from the sequence.
	for i := range subs {
		lo, hi := sequenceTokenBounds(subs[i])
		if hi-lo+1 > len(m) {
			return nil, fmt.Errorf("The range %s removes more numbers than "+
				"the sequence contains.", subs[i])
		}
		for n := lo; n <= hi; n++ {
			if !m[n] {
				return nil, fmt.Errorf("The number %d is removed more times "+
					"than it was inserted.", n)
			}
			delete(m, n)
		}
	}

	// Convert to a sorted array of integers.
	out := make([]int, 0, len(m))
	for n := range m {
		out = append(out, n)
	}
	sort.Ints(out)

	return out, nil
}

// tokeniseSequenceFormat tokenizes a sequence format string. This means that
// it separates all the operators and ranges from one another.
func tokeniseSequenceFormat(format string) ([]string, error) {
	// Make sure all operators are separated by spaces.
	formatClean := strings.ReplaceAll(format, "+", " + ")
	formatClean = strings.ReplaceAll(formatClean, "-", " - ")

	tok := strings.Fields(formatClean)
	if len(tok) == 0 {
		return nil, fmt.Errorf("The format string is empty.")
	}
	return tok, nil
}

func addsSubsSequenceFormat(tok []string) (adds, subs []string, err error) {
	if len(tok) == 0 {
		return nil, nil, fmt.Errorf("Format string is empty")
	}

	// Handle the case where the starting "+" is dropped.
	adds, subs = []string{}, []string{}
	var start int
	if tok[0] == "+" || tok[0] == "-" {
		start = 0
	} else {
		if err := isSequenceFormatToken(tok[0]); err != nil {
			return nil, nil, fmt.Errorf("Element number %d, '%s', cannot be "+
				"parsed because %s", 1, tok[0], err.Error())
		}

		adds = append(adds, tok[0])
		start = 1
	}

	for i := start; i < len(tok); i += 2 {
		if tok[i] != "-" && tok[i] != "+" {
			return nil, nil, fmt.Errorf("Element number %d, '%s', should be "+
				"a '-' or '+', but isn't.", i+1, tok[i])
		}

		if i+1 >= len(tok) {
			return nil, nil, fmt.Errorf("The format string ends in a "+
				"trailing '%s'", tok[i])
		}

		if err := isSequenceFormatToken(tok[i+1]); err != nil {
			return nil, nil, fmt.Errorf("Element number %d, '%s', cannot be "+
				"parsed because %s", i+2, tok[i+1], err.Error())
		}

		if tok[i] == "+" {
			adds = append(adds, tok[i+1])
		} else {
			subs = append(subs, tok[i+1])
		}
	}

	return adds, subs, nil
}

// isSequenceFormatToken returns a nil error if tok is a valid token for
// a sequence format and an error describing the problem otherwise. The error
// message assumes it is printed after a trailing "because"
func isSequenceFormatToken(tok string) error {
	if len(tok) == 0 {
		return fmt.Errorf("the format string is empty.")
	}

	bounds := strings.Split(tok, "..")

	switch len(bounds) {
	case 1:
		if _, err := strconv.Atoi(bounds[0]); err != nil {
			return fmt.Errorf("'%s' is not an integer.", bounds[0])
		}
		return nil
	case 2:
		start, err := strconv.Atoi(bounds[0])
		if err != nil {
			return fmt.Errorf("'%s' is not an integer.", bounds[0])
		}
		end, err := strconv.Atoi(bounds[1])
		if err != nil {
			return fmt.Errorf("'%s' is not an integer.", bounds[1])
		}
		if end < start {
			return fmt.Errorf("lower bound %d is larger than upper bound %d.",
				start, end)
		}
		return nil
	}
	return fmt.Errorf("it has more than one '..'.")
}

// sequenceTokenBounds returns the first and last numbers of a single token in
// a sequence format string. This function assumes that the tests in
// isSequenceFormatToken have already been run.
func sequenceTokenBounds(tok string) (lo, hi int) {
	bounds := strings.Split(tok, "..")
	lo, _ = strconv.Atoi(bounds[0])
	if len(bounds) == 1 {
		return lo, lo
	}
	hi, _ = strconv.Atoi(bounds[1])
	return lo, hi
}

// File is a single file in an expanded input format.
type File struct {
	Name string
	// Step is the value that the format's sequence took on for this file.
	Step int
}

// ExpandInputFormat expands an input file format into the list of files it
// describes, sorted by step. A format without any variables describes a
// single file with step 0.
func ExpandInputFormat(format string) ([]File, error) {
	comp, err := NewFileFormatComponents(format)
	if err != nil {
		return nil, err
	}

	seq := ""
	for _, rule := range comp.Rules {
		if rule == StepRule {
			continue
		}
		if seq != "" && normalizeRule(rule) != normalizeRule(seq) {
			return nil, fmt.Errorf("The file format '%s' contains two "+
				"different sequences, '%s' and '%s'. All the sequences in a "+
				"file format must be the same.", format, seq, rule)
		}
		seq = rule
	}

	if seq == "" {
		if len(comp.Rules) > 0 {
			return nil, fmt.Errorf("The file format '%s' uses '%s', but has "+
				"no sequence for the step to range over.", format, StepRule)
		}
		return []File{{format, 0}}, nil
	}

	steps, err := ExpandSequenceFormat(seq)
	if err != nil {
		return nil, fmt.Errorf("The sequence '%s' in the file format '%s' "+
			"is not valid. %s", seq, format, err.Error())
	}

	files := make([]File, len(steps))
	for i, step := range steps {
		files[i] = File{comp.expand(step), step}
	}
	return files, nil
}

// ExpandOutputFormat returns the output file name for a given step. Every
// variable in an output format must use the "step" rule.
func ExpandOutputFormat(format string, step int) (string, error) {
	comp, err := NewFileFormatComponents(format)
	if err != nil {
		return "", err
	}
	for _, rule := range comp.Rules {
		if rule != StepRule {
			return "", fmt.Errorf("The output format '%s' has a variable "+
				"with the rule '%s', but output variables can only use '%s'.",
				format, rule, StepRule)
		}
	}
	return comp.expand(step), nil
}

// FileFormatComponents is a parsed file format. The expanded string is
// Separators[0] + var[0] + Separators[1] + ... + var[n-1] + Separators[n].
type FileFormatComponents struct {
	Separators []string
	Verbs      []string
	Rules      []string
}

// NewFileFormatComponents splits a file format into fixed text and variables.
func NewFileFormatComponents(format string) (*FileFormatComponents, error) {
	starts, ends, err := fileFormatStartsEnds(format)
	if err != nil {
		return nil, err
	}

	comp := &FileFormatComponents{}
	sepStart := 0
	for i := range starts {
		comp.Separators = append(comp.Separators, format[sepStart:starts[i]])
		sepStart = ends[i]

		v := format[starts[i]+1 : ends[i]-1]
		tok := strings.SplitN(v, ",", 2)
		if len(tok) != 2 {
			return nil, fmt.Errorf("The file format '%s' has an invalid "+
				"variable, '{%s}'. Variables should contain a formatting "+
				"'verb' (e.g. '%%d', '%%03d', etc.), a comma, and a rule "+
				"giving the values that variable takes on (e.g. '0..511' or "+
				"'step').", format, v)
		}

		verb, rule := strings.TrimSpace(tok[0]), strings.TrimSpace(tok[1])
		if err := checkVerb(verb); err != nil {
			return nil, fmt.Errorf("The file format '%s' has an invalid "+
				"variable, '{%s}': %s", format, v, err.Error())
		}
		if rule == "" {
			return nil, fmt.Errorf("The variable '{%s}' in the file format "+
				"'%s' has no rule.", v, format)
		}

		comp.Verbs = append(comp.Verbs, verb)
		comp.Rules = append(comp.Rules, rule)
	}
	comp.Separators = append(comp.Separators, format[sepStart:])

	return comp, nil
}

// expand prints every variable as step.
func (comp *FileFormatComponents) expand(step int) string {
	sb := &strings.Builder{}
	for i := range comp.Verbs {
		sb.WriteString(comp.Separators[i])
		fmt.Fprintf(sb, comp.Verbs[i], step)
	}
	sb.WriteString(comp.Separators[len(comp.Separators)-1])
	return sb.String()
}

// checkVerb returns an error if verb isn't a single printf() verb for an
// integer.
func checkVerb(verb string) error {
	if len(verb) < 2 || verb[0] != '%' || strings.Count(verb, "%") != 1 {
		return fmt.Errorf("'%s' is not a printf() verb.", verb)
	}
	switch verb[len(verb)-1] {
	case 'd', 'x', 'X', 'o', 'b':
	default:
		return fmt.Errorf("'%s' does not print integers.", verb)
	}
	if s := fmt.Sprintf(verb, 1); strings.Contains(s, "%!") {
		return fmt.Errorf("'%s' is not a valid printf() verb.", verb)
	}
	return nil
}

// normalizeRule removes whitespace from a rule so that equivalent sequences
// compare equal.
func normalizeRule(rule string) string {
	return strings.Join(strings.Fields(rule), "")
}

// fileFormatStartsEnds returns the indices of the beginning and end of each
// format variable.
func fileFormatStartsEnds(format string) (starts, ends []int, err error) {
	starts, ends = []int{}, []int{}
	nestedLevel := 0

	ending := "Make sure variables in file formats are enclosed in " +
		"matching { ... } pairs."

	for i := range format {
		if format[i] == '{' {
			nestedLevel++
			starts = append(starts, i)
		} else if format[i] == '}' {
			nestedLevel--
			ends = append(ends, i+1)
		}

		if nestedLevel > 1 {
			end := len(starts) - 1
			return nil, nil, fmt.Errorf("The file format '%s' has nested "+
				"'{' characters, making it invalid. These '{'s are at "+
				"indices %d and %d. "+ending, format, starts[end-1],
				starts[end])
		} else if nestedLevel < 0 {
			end := len(ends) - 1
			return nil, nil, fmt.Errorf("The file format '%s' has a '}' that "+
				"doesn't come after a '{' character, making it invalid. This "+
				"'}' is at index %d. "+ending, format, ends[end]-1)
		}
	}

	if len(ends) != len(starts) {
		end := len(starts) - 1
		return nil, nil, fmt.Errorf("The file format '%s' has a '{' without "+
			"a matching '}', making it invalid. This '{' is at index %d. "+
			ending, format, starts[end])
	}

	return starts, ends, nil
}
