// Package rowkey declares composite row-key layouts and validates rows
// against them before any storage write happens. Both graph store backends
// share the same specs, so a rejected row is rejected identically everywhere.
package rowkey

import (
	"fmt"
	"strings"
	"time"
)

// Values is a loose row representation: field name to value. A field counts
// as absent when it is missing from the map, nil, or the zero value of its
// type.
type Values map[string]interface{}

// Spec declares the ordered key fields and the required non-key columns of
// one physical table. Key order matters: validation always reports the first
// missing key field in declared order.
type Spec struct {
	KeyFields   []string
	ValueFields []string
}

// BadKeyError reports a missing or out-of-order row key component.
type BadKeyError struct {
	Field string
}

func (e *BadKeyError) Error() string {
	return fmt.Sprintf("missing row key field: %s", e.Field)
}

// EmptyColumnError reports a required non-key column with no value.
type EmptyColumnError struct {
	Column string
}

func (e *EmptyColumnError) Error() string {
	return fmt.Sprintf("required column is empty: %s", e.Column)
}

// CheckKey verifies that every declared key field has a value. It returns a
// BadKeyError naming the first absent field in declared order.
func (s Spec) CheckKey(vals Values) error {
	for _, f := range s.KeyFields {
		if !present(vals[f]) {
			return &BadKeyError{Field: f}
		}
	}
	return nil
}

// CheckRow verifies a full row before a create: all key fields first, then
// all required non-key columns. Key errors take precedence over column
// errors.
func (s Spec) CheckRow(vals Values) error {
	if err := s.CheckKey(vals); err != nil {
		return err
	}
	for _, col := range s.ValueFields {
		if !present(vals[col]) {
			return &EmptyColumnError{Column: col}
		}
	}
	return nil
}

// CheckPrefix verifies a partial key used for range scans: trailing key
// components may be absent, but a present component after an absent one is a
// BadKeyError naming the absent component.
func (s Spec) CheckPrefix(vals Values) error {
	missing := ""
	for _, f := range s.KeyFields {
		if !present(vals[f]) {
			if missing == "" {
				missing = f
			}
			continue
		}
		if missing != "" {
			return &BadKeyError{Field: missing}
		}
	}
	return nil
}

// RowKey builds the sortable string row key for a full key. Components are
// fixed-width encoded so byte order matches logical order, then joined with
// ':' which sorts below every digit's successor ';' (used for prefix upper
// bounds).
func (s Spec) RowKey(vals Values) (string, error) {
	if err := s.CheckKey(vals); err != nil {
		return "", err
	}
	parts := make([]string, len(s.KeyFields))
	for i, f := range s.KeyFields {
		parts[i] = EncodeComponent(vals[f])
	}
	return strings.Join(parts, ":"), nil
}

// PrefixBounds returns the half-open [low, high) row-key range covering every
// row whose leading key components equal the given prefix values.
func (s Spec) PrefixBounds(vals Values) (string, string, error) {
	if err := s.CheckPrefix(vals); err != nil {
		return "", "", err
	}
	var parts []string
	for _, f := range s.KeyFields {
		if !present(vals[f]) {
			break
		}
		parts = append(parts, EncodeComponent(vals[f]))
	}
	if len(parts) == 0 {
		return "", "", nil
	}
	low := strings.Join(parts, ":") + ":"
	// ';' is ':'+1, so high bounds the prefix without matching any key in it
	high := strings.Join(parts, ":") + ";"
	if len(parts) == len(s.KeyFields) {
		low = strings.Join(parts, ":")
	}
	return low, high, nil
}

// EncodeComponent renders one key component in a fixed-width, order-preserving
// form. Integer ids are padded to 20 digits, the full uint64 width, and
// timestamps to 19 digits of UnixNano.
func EncodeComponent(v interface{}) string {
	switch x := v.(type) {
	case uint:
		return fmt.Sprintf("%020d", x)
	case uint64:
		return fmt.Sprintf("%020d", x)
	case int:
		return fmt.Sprintf("%020d", x)
	case int64:
		return fmt.Sprintf("%020d", x)
	case time.Time:
		return fmt.Sprintf("%019d", x.UnixNano())
	case string:
		return x
	default:
		return fmt.Sprintf("%v", x)
	}
}

func present(v interface{}) bool {
	switch x := v.(type) {
	case nil:
		return false
	case uint:
		return x != 0
	case uint64:
		return x != 0
	case int:
		return x != 0
	case int64:
		return x != 0
	case string:
		return x != ""
	case time.Time:
		return !x.IsZero()
	default:
		return true
	}
}
