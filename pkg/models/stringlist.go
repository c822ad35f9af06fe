package models

import (
	"database/sql/driver"
	"strings"

	"github.com/pkg/errors"
	"github.com/segmentio/encoding/json"
)

// ListSeparator joins list-valued columns into a single TEXT cell. The same
// separator is used in CSV exports.
const ListSeparator = ", "

// StringList is an ordered list of strings stored as one delimited TEXT
// column and rendered as a JSON array.
type StringList []string

// ParseStringList splits a delimited cell back into a list on ListSeparator.
// A bare comma stays inside its element. Surrounding whitespace is trimmed
// from each element and blank elements are dropped.
func ParseStringList(s string) StringList {
	list := StringList{}
	for _, part := range strings.Split(s, ListSeparator) {
		part = strings.TrimSpace(part)
		if part != "" {
			list = append(list, part)
		}
	}
	return list
}

func (l StringList) String() string {
	return strings.Join(l, ListSeparator)
}

// Contains reports whether the list holds value, ignoring case.
func (l StringList) Contains(value string) bool {
	for _, v := range l {
		if strings.EqualFold(v, value) {
			return true
		}
	}
	return false
}

// MarshalJSON renders a nil list as an empty array.
func (l StringList) MarshalJSON() ([]byte, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(l))
}

// Value implements driver.Valuer.
func (l StringList) Value() (driver.Value, error) {
	return l.String(), nil
}

// Scan implements sql.Scanner.
func (l *StringList) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*l = StringList{}
	case string:
		*l = ParseStringList(v)
	case []byte:
		*l = ParseStringList(string(v))
	default:
		return errors.Errorf("cannot scan %T into StringList", src)
	}
	return nil
}
