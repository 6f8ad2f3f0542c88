package question

import (
	"encoding/json"
	"errors"
	"strings"
)

// Answer is a learner submission: either a single option id or a list of
// option ids. Both shapes are accepted on the wire.
type Answer struct {
	IDs   []string
	Multi bool // submitted as an array
}

// Single builds a single-id answer.
func Single(id string) Answer { return Answer{IDs: []string{id}} }

// Multiple builds an array answer.
func Multiple(ids ...string) Answer { return Answer{IDs: ids, Multi: true} }

var (
	ErrEmptyAnswer   = errors.New("answer is empty")
	ErrBlankOptionID = errors.New("answer contains an empty option id")
)

// Validate checks the answer shape: a non-empty string, or a non-empty
// array of non-empty strings.
func (a Answer) Validate() error {
	if len(a.IDs) == 0 {
		return ErrEmptyAnswer
	}
	for _, id := range a.IDs {
		if strings.TrimSpace(id) == "" {
			if a.Multi {
				return ErrBlankOptionID
			}
			return ErrEmptyAnswer
		}
	}
	return nil
}

func (a Answer) MarshalJSON() ([]byte, error) {
	if !a.Multi && len(a.IDs) == 1 {
		return json.Marshal(a.IDs[0])
	}
	ids := a.IDs
	if ids == nil {
		ids = []string{}
	}
	return json.Marshal(ids)
}

func (a *Answer) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*a = Answer{}
		if s != "" {
			a.IDs = []string{s}
		}
		return nil
	}
	var ids []string
	if err := json.Unmarshal(b, &ids); err != nil {
		return errors.New("answer must be a string or an array of strings")
	}
	*a = Answer{IDs: ids, Multi: true}
	return nil
}

// String renders the answer for logs and audit rows.
func (a Answer) String() string {
	if a.Multi {
		return "[" + strings.Join(a.IDs, ",") + "]"
	}
	return strings.Join(a.IDs, ",")
}
