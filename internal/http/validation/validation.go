package validation

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

type FieldErrors map[string]string

// FromBindError turns a bind/validation error into a field->message map.
// dst is the bound struct pointer (needed to read the json tags).
func FromBindError(err error, dst any) FieldErrors {
	out := FieldErrors{}

	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		for _, fe := range ve {
			out[fieldKey(dst, fe)] = messageForTag(fe.Tag(), fe.Param())
		}
		return out
	}

	// other bind failures (type mismatch, bad JSON)
	out["_"] = "Request body is invalid."
	return out
}

// fieldKey walks fe.Namespace() through dst's struct tags so nested failures
// come back under their json path: "shipping_address.postal_code",
// "items[0].quantity".
func fieldKey(dst any, fe validator.FieldError) string {
	t := reflect.TypeOf(dst)
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	segs := strings.Split(fe.Namespace(), ".")
	if len(segs) > 1 {
		segs = segs[1:] // drop the root struct name
	}

	parts := make([]string, 0, len(segs))
	for _, seg := range segs {
		name, idx := seg, ""
		if i := strings.IndexByte(seg, '['); i >= 0 {
			name, idx = seg[:i], seg[i:]
		}
		if t.Kind() != reflect.Struct {
			return strings.ToLower(fe.Field())
		}
		f, ok := t.FieldByName(name)
		if !ok {
			return strings.ToLower(fe.Field())
		}
		parts = append(parts, jsonName(f)+idx)

		t = f.Type
		for t.Kind() == reflect.Pointer || t.Kind() == reflect.Slice || t.Kind() == reflect.Array {
			t = t.Elem()
		}
	}
	return strings.Join(parts, ".")
}

func jsonName(f reflect.StructField) string {
	tag := f.Tag.Get("json")
	if i := strings.Index(tag, ","); i >= 0 {
		tag = tag[:i]
	}
	if tag == "" || tag == "-" {
		return strings.ToLower(f.Name)
	}
	return tag
}

func messageForTag(tag, param string) string {
	switch tag {
	case "required":
		return "This field is required."
	case "min":
		return "Must be at least " + param + "."
	case "max":
		return "Must be at most " + param + "."
	case "len":
		return "Must be exactly " + param + " characters."
	case "oneof":
		return "Must be one of: " + param + "."
	case "gt":
		return "Must be greater than " + param + "."
	default:
		return "Invalid value."
	}
}
