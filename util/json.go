// util/json.go
// Copyright(c) 2022-2025 autopilot contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package util

import (
	"encoding/json"
	"fmt"
	"io"
	"reflect"
	"strings"
)

///////////////////////////////////////////////////////////////////////////
// JSON

func UnmarshalJSON[T any](r io.Reader, out *T) error {
	// The raw bytes are needed to turn decoder offsets into line numbers.
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	return UnmarshalJSONBytes(b, out)
}

// UnmarshalJSONBytes decodes b into out; syntax and type errors are
// reported with the line and column where they occurred.
func UnmarshalJSONBytes[T any](b []byte, out *T) error {
	err := json.Unmarshal(b, out)
	if err == nil {
		return nil
	}

	lineChar := func(offset int64) (line, char int) {
		line, char = 1, 1
		for i := 0; i < int(offset) && i < len(b); i++ {
			if b[i] == '\n' {
				line++
				char = 1
			} else {
				char++
			}
		}
		return
	}

	switch jerr := err.(type) {
	case *json.SyntaxError:
		line, char := lineChar(jerr.Offset)
		return fmt.Errorf("Error at line %d, character %d: %v", line, char, jerr)

	case *json.UnmarshalTypeError:
		line, char := lineChar(jerr.Offset)
		return fmt.Errorf("Error at line %d, character %d: %s value for %s.%s invalid for type %s",
			line, char, jerr.Value, jerr.Struct, jerr.Field, jerr.Type.String())

	default:
		return err
	}
}

// CheckJSON checks that the provided JSON is syntactically valid and that
// it matches the layout of T: every object key must correspond to a
// json-tagged field (so misspelled settings are caught rather than
// silently ignored) and values must have compatible kinds.
func CheckJSON[T any](contents []byte, e *ErrorLogger) {
	defer e.CheckDepth(e.CurrentDepth())

	var items any
	if err := UnmarshalJSONBytes(contents, &items); err != nil {
		e.Error(err)
		return
	}

	ty := reflect.TypeOf((*T)(nil)).Elem()
	typeCheckJSON(items, ty, e)
}

func typeCheckJSON(v any, ty reflect.Type, e *ErrorLogger) {
	for ty.Kind() == reflect.Ptr {
		ty = ty.Elem()
	}

	mismatch := func() {
		e.ErrorString("unexpected %s value provided for %s", jsonKind(v), ty)
	}

	switch ty.Kind() {
	case reflect.Bool:
		if _, ok := v.(bool); !ok {
			mismatch()
		}

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		if _, ok := v.(float64); !ok {
			mismatch()
		}

	case reflect.String:
		if _, ok := v.(string); !ok {
			mismatch()
		}

	case reflect.Array, reflect.Slice:
		array, ok := v.([]any)
		if !ok {
			mismatch()
			return
		}
		if ty.Kind() == reflect.Array && len(array) != ty.Len() {
			e.ErrorString("expected %d elements, got %d", ty.Len(), len(array))
		}
		for _, item := range array {
			typeCheckJSON(item, ty.Elem(), e)
		}

	case reflect.Map:
		m, ok := v.(map[string]any)
		if !ok {
			mismatch()
			return
		}
		for k, mv := range m {
			e.Push(k)
			typeCheckJSON(mv, ty.Elem(), e)
			e.Pop()
		}

	case reflect.Struct:
		items, ok := v.(map[string]any)
		if !ok {
			mismatch()
			return
		}

		fields := make(map[string]reflect.Type)
		for _, field := range reflect.VisibleFields(ty) {
			if jtag, ok := field.Tag.Lookup("json"); ok {
				name, _, _ := strings.Cut(jtag, ",")
				if name != "-" {
					fields[name] = field.Type
				}
			}
		}

		for item, value := range items {
			if fty, ok := fields[item]; ok {
				e.Push(item)
				typeCheckJSON(value, fty, e)
				e.Pop()
			} else {
				e.ErrorString("The entry %q is not an expected JSON object. Is it misspelled?", item)
			}
		}
	}
}

func jsonKind(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case float64:
		return "number"
	case string:
		return "string"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return reflect.TypeOf(v).String()
	}
}
