package validation

import (
	"errors"
	"strings"
	"testing"
)

func TestDecodeCreate_Valid(t *testing.T) {
	body := []byte(`{
		"email": "a@b.com",
		"firstName": "A",
		"lastName": "B",
		"social": {"github": "https://github.com/a", "website": "https://a.dev"}
	}`)

	p, err := DecodeCreate(body)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Email != "a@b.com" || p.FirstName != "A" || p.LastName != "B" {
		t.Fatalf("unexpected params: %+v", p)
	}
	if p.Social == nil || p.Social.Github == nil || *p.Social.Github != "https://github.com/a" {
		t.Fatalf("social not decoded: %+v", p.Social)
	}
	if p.Social.Facebook != nil || p.Social.Twitter != nil {
		t.Fatalf("absent links should stay nil: %+v", p.Social)
	}
}

func TestDecodeCreate_SocialOptional(t *testing.T) {
	p, err := DecodeCreate([]byte(`{"email":"a@b.com","firstName":"A","lastName":"B"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Social != nil {
		t.Fatalf("expected nil social, got %+v", p.Social)
	}

	p, err = DecodeCreate([]byte(`{"email":"a@b.com","firstName":"A","lastName":"B","social":{}}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Social == nil {
		t.Fatal("expected empty social object")
	}
}

func TestDecodeCreate_Violations(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantField string
		wantMsg   string
	}{
		{"missing email", `{"firstName":"A","lastName":"B"}`, "email", `"email" is required`},
		{"missing firstName", `{"email":"a@b.com","lastName":"B"}`, "firstName", `"firstName" is required`},
		{"missing lastName", `{"email":"a@b.com","firstName":"A"}`, "lastName", `"lastName" is required`},
		{"bad email", `{"email":"nope","firstName":"A","lastName":"B"}`, "email", `"email" must be a valid email`},
		{"empty firstName", `{"email":"a@b.com","firstName":"","lastName":"B"}`, "firstName", "firstName"},
		{"bad social uri", `{"email":"a@b.com","firstName":"A","lastName":"B","social":{"twitter":"not a uri"}}`, "social.twitter", `"social.twitter" must be a valid uri`},
		{"unknown field", `{"id":7,"email":"a@b.com","firstName":"A","lastName":"B"}`, "id", `"id" is not allowed`},
		{"unknown social field", `{"email":"a@b.com","firstName":"A","lastName":"B","social":{"myspace":"https://x"}}`, "social.myspace", `"social.myspace" is not allowed`},
		{"null email", `{"email":null,"firstName":"A","lastName":"B"}`, "email", `"email" must be of type string`},
		{"null social", `{"email":"a@b.com","firstName":"A","lastName":"B","social":null}`, "social", `"social" must be of type object`},
		{"null social link", `{"email":"a@b.com","firstName":"A","lastName":"B","social":{"github":null}}`, "social.github", `"social.github" must be of type string`},
		{"trailing data", `{"email":"a@b.com","firstName":"A","lastName":"B"} garbage`, "", "not valid JSON"},
		{"second object", `{"email":"a@b.com","firstName":"A","lastName":"B"}{}`, "", "not valid JSON"},
		{"wrong type", `{"email":"a@b.com","firstName":5,"lastName":"B"}`, "firstName", `"firstName" must be of type string`},
		{"social not object", `{"email":"a@b.com","firstName":"A","lastName":"B","social":"x"}`, "social", `"social" must be of type object`},
		{"array body", `[1,2]`, "", `"value" must be of type object`},
		{"empty body", ``, "", `"value" must be of type object`},
		{"malformed", `{"email":`, "", "not valid JSON"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := DecodeCreate([]byte(test.body))
			var ve *Error
			if !errors.As(err, &ve) {
				t.Fatalf("expected *Error, got %T (%v)", err, err)
			}
			if ve.Field != test.wantField {
				t.Errorf("field = %q, want %q", ve.Field, test.wantField)
			}
			if !strings.Contains(ve.Message, test.wantMsg) {
				t.Errorf("message = %q, want it to contain %q", ve.Message, test.wantMsg)
			}
		})
	}
}

func TestDecodeCreate_FirstViolationOnly(t *testing.T) {
	_, err := DecodeCreate([]byte(`{}`))
	var ve *Error
	if !errors.As(err, &ve) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if ve.Message != `"email" is required` {
		t.Fatalf("expected only the first violation, got %q", ve.Message)
	}
}

func TestDecodeCreate_DoesNotMutateBody(t *testing.T) {
	body := []byte(`  {"email":"a@b.com","firstName":"A","lastName":"B"}  `)
	orig := string(body)
	if _, err := DecodeCreate(body); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(body) != orig {
		t.Fatalf("body mutated: %q", body)
	}
}

func TestDecodeUpdate_EmptyPatch(t *testing.T) {
	p, err := DecodeUpdate(3, []byte(`{}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.ID != 3 || !p.Empty() {
		t.Fatalf("expected empty patch for id 3, got %+v", p)
	}
}

func TestDecodeUpdate_Partial(t *testing.T) {
	p, err := DecodeUpdate(9, []byte(`{"firstName":"Z","social":{"github":"https://github.com/z"}}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.FirstName == nil || *p.FirstName != "Z" {
		t.Fatalf("firstName not set: %+v", p)
	}
	if p.Email != nil || p.LastName != nil {
		t.Fatalf("absent fields must stay nil: %+v", p)
	}
	if p.Social == nil || p.Social.Github == nil {
		t.Fatalf("social not decoded: %+v", p.Social)
	}
}

func TestDecodeUpdate_Violations(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantMsg string
	}{
		{"bad email", `{"email":"x"}`, `"email" must be a valid email`},
		{"empty lastName", `{"lastName":""}`, "lastName"},
		{"bad social uri", `{"social":{"facebook":"facebook"}}`, `"social.facebook" must be a valid uri`},
		{"id not allowed", `{"id":1}`, `"id" is not allowed`},
		{"null lastName", `{"lastName":null}`, `"lastName" must be of type string`},
		{"null firstName", `{"firstName":null}`, `"firstName" must be of type string`},
		{"null social", `{"social":null}`, `"social" must be of type object`},
		{"trailing data", `{"firstName":"Z"} x`, "not valid JSON"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := DecodeUpdate(1, []byte(test.body))
			if !IsValidation(err) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if !strings.Contains(err.Error(), test.wantMsg) {
				t.Fatalf("message = %q, want it to contain %q", err.Error(), test.wantMsg)
			}
		})
	}
}

func TestDecodeCreate_SchemaRulesBeforeUnknownKeys(t *testing.T) {
	_, err := DecodeCreate([]byte(`{"id":1,"firstName":"A","lastName":"B"}`))
	var ve *Error
	if !errors.As(err, &ve) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if ve.Message != `"email" is required` {
		t.Fatalf("message = %q, want the missing email reported before the unknown id", ve.Message)
	}
}

func TestDecodeCreate_FieldOrder(t *testing.T) {
	// lastName is malformed, email comes first in the schema.
	_, err := DecodeCreate([]byte(`{"lastName":null,"firstName":"A","email":"nope"}`))
	if err == nil || err.Error() != `"email" must be a valid email` {
		t.Fatalf("got %v, want the email violation first", err)
	}
}

func TestDecodeCreate_EmptyString(t *testing.T) {
	_, err := DecodeCreate([]byte(`{"email":"a@b.com","firstName":"","lastName":"B"}`))
	if err == nil || err.Error() != `"firstName" is not allowed to be empty` {
		t.Fatalf("got %v", err)
	}
}
