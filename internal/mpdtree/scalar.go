package mpdtree

import (
	"regexp"
	"strconv"
	"strings"
)

// ScalarKind is the coerced type of an attribute value
type ScalarKind int

const (
	KindString ScalarKind = iota
	KindNumber
	KindBool
)

var numericPattern = regexp.MustCompile(`^[-+]?(\d+\.?\d*|\.\d+)([eE][-+]?\d+)?$`)

// Scalar is a typed attribute value. Raw always holds the original text so
// identifiers that look numeric ("1", "0001") survive untouched.
type Scalar struct {
	Kind ScalarKind
	Raw  string
	Num  float64
	Bool bool
}

// Coerce converts an attribute string into a Scalar: numeric-looking strings
// become numbers, "true"/"false" become booleans, anything else stays a string.
func Coerce(raw string) Scalar {
	s := Scalar{Kind: KindString, Raw: raw}
	trimmed := strings.TrimSpace(raw)
	switch trimmed {
	case "true":
		s.Kind, s.Bool = KindBool, true
		return s
	case "false":
		s.Kind = KindBool
		return s
	}
	if numericPattern.MatchString(trimmed) {
		if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
			s.Kind, s.Num = KindNumber, f
		}
	}
	return s
}

// Float returns the numeric value of the scalar.
func (s Scalar) Float() (float64, bool) {
	if s.Kind != KindNumber {
		return 0, false
	}
	return s.Num, true
}

// String implements fmt.Stringer and returns the original text
func (s Scalar) String() string {
	return s.Raw
}
