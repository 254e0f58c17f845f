package catio

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseFloats parses the first len(out) tokens of tok as float64s and writes
// them to out. An error is returned if there are too few tokens or if one of
// them isn't a number. Extra tokens are ignored.
func ParseFloats(tok []string, out []float64) error {
	if len(tok) < len(out) {
		return fmt.Errorf("expected %d columns, but found %d", len(out),
			len(tok))
	}

	for i := range out {
		x, err := strconv.ParseFloat(tok[i], 64)
		if err != nil {
			return fmt.Errorf("column %d, '%s', is not a number", i+1, tok[i])
		}
		out[i] = x
	}
	return nil
}

// ParseInts is the same as ParseFloats, but for ints.
func ParseInts(tok []string, out []int) error {
	if len(tok) < len(out) {
		return fmt.Errorf("expected %d columns, but found %d", len(out),
			len(tok))
	}

	for i := range out {
		x, err := strconv.Atoi(tok[i])
		if err != nil {
			return fmt.Errorf("column %d, '%s', is not an integer", i+1, tok[i])
		}
		out[i] = x
	}
	return nil
}

// LeadingFloats counts how many whitespace-separated floats appear at the start
// of s before the first token that isn't a number.
func LeadingFloats(s string) int {
	n := 0
	for _, tok := range strings.Fields(s) {
		if !IsFloat(tok) {
			break
		}
		n++
	}
	return n
}

// IsFloat returns true if tok can be parsed as a float64.
func IsFloat(tok string) bool {
	_, err := strconv.ParseFloat(tok, 64)
	return err == nil
}

// IsNumeric returns true if s is non-empty and every token in s is a number.
func IsNumeric(s string) bool {
	tok := strings.Fields(s)
	return len(tok) > 0 && LeadingFloats(s) == len(tok)
}
