package school

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Score is a grade component. The backend sends numbers, numeric strings or null.
type Score struct {
	Value float64
	Valid bool
}

func NewScore(v float64) Score {
	return Score{Value: v, Valid: true}
}

// ParseScore parses a form value; an empty string is a cleared score.
func ParseScore(s string) (Score, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Score{}, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return Score{}, errors.Errorf("%q is not a number", s)
	}
	return NewScore(v), nil
}

func (s Score) String() string {
	if !s.Valid {
		return ""
	}
	return strconv.FormatFloat(s.Value, 'f', -1, 64)
}

func (s Score) MarshalJSON() ([]byte, error) {
	if !s.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(s.Value)
}

func (s *Score) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*s = Score{}
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		parsed, err := ParseScore(str)
		if err != nil {
			return err
		}
		*s = parsed
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return errors.Wrap(err, "decoding score")
	}
	*s = NewScore(v)
	return nil
}
