// Package validation holds the create and update schemas for user payloads.
// Decoding and validation happen in one step: a raw JSON body either becomes
// typed repository params or a single *Error describing the first violation.
package validation

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/Skryldev/userservice/models"
)

// Error is a client input violation. It is never produced by the store.
type Error struct {
	// Field is the JSON path of the offending field, e.g. "social.github".
	// Empty when the body as a whole is unacceptable.
	Field string
	// Message is safe to return to the caller verbatim.
	Message string
}

func (e *Error) Error() string { return e.Message }

// IsValidation reports whether err is (or wraps) a validation *Error.
func IsValidation(err error) bool {
	var ve *Error
	return errors.As(err, &ve)
}

// createUserInput is the create schema: every top-level field is required.
type createUserInput struct {
	Email     *string        `json:"email" validate:"required,min=1,email"`
	FirstName *string        `json:"firstName" validate:"required,min=1"`
	LastName  *string        `json:"lastName" validate:"required,min=1"`
	Social    *models.Social `json:"social"`
}

// updateUserInput is the update schema: same field rules, all optional.
type updateUserInput struct {
	Email     *string        `json:"email" validate:"omitempty,min=1,email"`
	FirstName *string        `json:"firstName" validate:"omitempty,min=1"`
	LastName  *string        `json:"lastName" validate:"omitempty,min=1"`
	Social    *models.Social `json:"social"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

const msgInvalidJSON = "request body is not valid JSON"

// DecodeCreate validates body against the create schema.
func DecodeCreate(body []byte) (models.CreateUserParams, error) {
	var in createUserInput
	if err := decode(body, &in); err != nil {
		return models.CreateUserParams{}, err
	}
	return models.CreateUserParams{
		Email:     *in.Email,
		FirstName: *in.FirstName,
		LastName:  *in.LastName,
		Social:    in.Social,
	}, nil
}

// DecodeUpdate validates body against the update schema and returns a patch
// for the user identified by id. Fields absent from the body stay nil.
func DecodeUpdate(id int64, body []byte) (models.UpdateUserParams, error) {
	var in updateUserInput
	if err := decode(body, &in); err != nil {
		return models.UpdateUserParams{}, err
	}
	return models.UpdateUserParams{
		ID:        id,
		Email:     in.Email,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Social:    in.Social,
	}, nil
}

// decode binds a JSON object onto dst and validates it. Schema fields are
// checked in declaration order, each for type then rules; keys the schema
// does not name are reported only after every schema field passed.
func decode(body []byte, dst any) error {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return &Error{Message: `"value" must be of type object`}
	}
	return bindObject(trimmed, reflect.ValueOf(dst).Elem(), "")
}

func bindObject(data []byte, dst reflect.Value, prefix string) error {
	members, keys, err := readObject(data)
	if err != nil {
		return &Error{Message: msgInvalidJSON}
	}

	t := dst.Type()
	known := make(map[string]bool, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		name := jsonName(sf)
		known[name] = true
		path := prefix + name
		fv := dst.Field(i)

		if raw, ok := members[name]; ok {
			if err := bindField(raw, fv, path); err != nil {
				return err
			}
		}
		if tag := sf.Tag.Get("validate"); tag != "" {
			if err := validate.Var(fv.Interface(), tag); err != nil {
				return ruleError(path, err)
			}
		}
	}

	for _, k := range keys {
		if !known[k] {
			path := prefix + k
			return &Error{Field: path, Message: fmt.Sprintf("%q is not allowed", path)}
		}
	}
	return nil
}

// bindField decodes raw into fv. An explicit null is a type violation, never
// "absent": absent fields are the only way to leave a value untouched.
func bindField(raw json.RawMessage, fv reflect.Value, path string) error {
	raw = bytes.TrimSpace(raw)
	if bytes.Equal(raw, []byte("null")) {
		return typeError(path, fv.Type())
	}

	st := fv.Type()
	for st.Kind() == reflect.Pointer {
		st = st.Elem()
	}
	if st.Kind() == reflect.Struct {
		if raw[0] != '{' {
			return typeError(path, fv.Type())
		}
		v := reflect.New(st)
		if err := bindObject(raw, v.Elem(), path+"."); err != nil {
			return err
		}
		if fv.Kind() == reflect.Pointer {
			fv.Set(v)
		} else {
			fv.Set(v.Elem())
		}
		return nil
	}

	if err := json.Unmarshal(raw, fv.Addr().Interface()); err != nil {
		return typeError(path, fv.Type())
	}
	return nil
}

// readObject returns the members of a JSON object with their keys in
// document order. Anything after the closing brace is an error.
func readObject(data []byte) (map[string]json.RawMessage, []string, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	if _, err := dec.Token(); err != nil {
		return nil, nil, err
	}

	members := make(map[string]json.RawMessage)
	var keys []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, nil, fmt.Errorf("object key is %T", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, nil, err
		}
		if _, seen := members[key]; !seen {
			keys = append(keys, key)
		}
		members[key] = raw
	}
	if _, err := dec.Token(); err != nil {
		return nil, nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, nil, errors.New("trailing data after object")
	}
	return members, keys, nil
}

func typeError(path string, t reflect.Type) error {
	return &Error{Field: path, Message: fmt.Sprintf("%q must be of type %s", path, jsonType(t))}
}

func ruleError(path string, err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &Error{Field: path, Message: err.Error()}
	}
	return &Error{Field: path, Message: message(path, verrs[0].Tag())}
}

func jsonName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	if name == "" {
		return f.Name
	}
	return name
}

func message(field, tag string) string {
	switch tag {
	case "required":
		return fmt.Sprintf("%q is required", field)
	case "min":
		return fmt.Sprintf("%q is not allowed to be empty", field)
	case "email":
		return fmt.Sprintf("%q must be a valid email", field)
	case "url":
		return fmt.Sprintf("%q must be a valid uri", field)
	}
	return fmt.Sprintf("%q failed the %q rule", field, tag)
}

func jsonType(t reflect.Type) string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.String:
		return "string"
	case reflect.Struct, reflect.Map:
		return "object"
	case reflect.Slice, reflect.Array:
		return "array"
	case reflect.Bool:
		return "boolean"
	}
	return "number"
}
