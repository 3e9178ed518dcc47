package model

import "fmt"

func assignString(dst *string, column string, v any) error {
	switch val := v.(type) {
	case string:
		*dst = val
	case []byte:
		*dst = string(val)
	default:
		return fmt.Errorf("column %s: expected text, got %T", column, v)
	}
	return nil
}

func assignOptString(dst **string, column string, v any) error {
	if v == nil {
		*dst = nil
		return nil
	}
	var s string
	if err := assignString(&s, column, v); err != nil {
		return err
	}
	*dst = &s
	return nil
}

func assignInt(dst *int64, column string, v any) error {
	switch val := v.(type) {
	case int64:
		*dst = val
	case int:
		*dst = int64(val)
	default:
		return fmt.Errorf("column %s: expected integer, got %T", column, v)
	}
	return nil
}

func assignOptInt(dst **int64, column string, v any) error {
	if v == nil {
		*dst = nil
		return nil
	}
	var n int64
	if err := assignInt(&n, column, v); err != nil {
		return err
	}
	*dst = &n
	return nil
}

// assignBool accepts both driver representations: go-sqlite3 decodes
// BOOLEAN columns to bool, other drivers return the stored integer.
func assignBool(dst *bool, column string, v any) error {
	switch val := v.(type) {
	case bool:
		*dst = val
	case int64:
		*dst = val != 0
	default:
		return fmt.Errorf("column %s: expected boolean, got %T", column, v)
	}
	return nil
}

func optString(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

func optInt(p *int64) any {
	if p == nil {
		return nil
	}
	return *p
}

// appendUnique appends e unless an entity with the same key is present.
func appendUnique[T Entity](list []T, e T) []T {
	k := e.Key()
	for _, existing := range list {
		if existing.Key() == k {
			return list
		}
	}
	return append(list, e)
}

func entities[T Entity](list []T) []Entity {
	out := make([]Entity, len(list))
	for i, e := range list {
		out[i] = e
	}
	return out
}

func single(e Entity, isNil bool) []Entity {
	if isNil {
		return nil
	}
	return []Entity{e}
}
