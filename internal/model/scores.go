package model

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrNegativeScore = errors.New("scores can't be negative")

// Scores holds how many answers fell into each letter category.
type Scores struct {
	A int `json:"A"`
	B int `json:"B"`
	C int `json:"C"`
	D int `json:"D"`
}

// Validate makes sure no category count is negative
func (s Scores) Validate() error {
	if s.A < 0 || s.B < 0 || s.C < 0 || s.D < 0 {
		return ErrNegativeScore
	}

	return nil
}

// String returns the compact "A:1,B:2,C:0,D:3" form that's stored
// in the quiz history.
func (s Scores) String() string {
	return fmt.Sprintf("A:%d,B:%d,C:%d,D:%d", s.A, s.B, s.C, s.D)
}

// Dominant returns the letters sharing the highest count in alphabetical
// order, e.g. "AC". All zero scores return an empty string.
func (s Scores) Dominant() string {
	best := max(s.A, s.B, s.C, s.D)
	if best == 0 {
		return ""
	}

	var b strings.Builder
	for i, n := range []int{s.A, s.B, s.C, s.D} {
		if n == best {
			b.WriteByte(byte('A' + i))
		}
	}

	return b.String()
}

// ParseScores reads the compact form produced by String.
func ParseScores(str string) (Scores, error) {
	var s Scores
	if str == "" {
		return s, nil
	}

	for _, part := range strings.Split(str, ",") {
		letter, count, ok := strings.Cut(part, ":")
		if !ok {
			return Scores{}, fmt.Errorf("malformed score %q", part)
		}

		n, err := strconv.Atoi(count)
		if err != nil {
			return Scores{}, fmt.Errorf("malformed score %q, %w", part, err)
		}

		switch letter {
		case "A":
			s.A = n
		case "B":
			s.B = n
		case "C":
			s.C = n
		case "D":
			s.D = n
		default:
			return Scores{}, fmt.Errorf("unknown category %q", letter)
		}
	}

	return s, s.Validate()
}

// Value implements the driver.Valuer interface.
// The compact string form is what ends up in the column.
func (s Scores) Value() (driver.Value, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	return s.String(), nil
}

// Scan implements the sql.Scanner intterface.
func (s *Scores) Scan(value any) error {
	if value == nil {
		*s = Scores{}
		return nil
	}

	str, ok := value.(string)
	if !ok {
		b, ok := value.([]byte)
		if !ok {
			return fmt.Errorf("failed to scan Scores, %v", value)
		}

		str = string(b)
	}

	parsed, err := ParseScores(str)
	if err != nil {
		return err
	}

	*s = parsed
	return nil
}
