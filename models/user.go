package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// User represents a row in the "users" table.
type User struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Social    *Social   `json:"social"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Social holds a user's optional profile links. It is stored as a single JSON
// document, so it is always read and written as a whole.
type Social struct {
	Facebook *string `json:"facebook,omitempty" validate:"omitempty,url"`
	Twitter  *string `json:"twitter,omitempty" validate:"omitempty,url"`
	Github   *string `json:"github,omitempty" validate:"omitempty,url"`
	Website  *string `json:"website,omitempty" validate:"omitempty,url"`
}

// Value implements driver.Valuer.
func (s Social) Value() (driver.Value, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner. NULL columns never reach Scan when the
// destination is a **Social; database/sql leaves the pointer nil instead.
func (s *Social) Scan(src any) error {
	var b []byte
	switch v := src.(type) {
	case nil:
		*s = Social{}
		return nil
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return fmt.Errorf("models: cannot scan %T into Social", src)
	}
	return json.Unmarshal(b, s)
}

// CreateUserParams holds the fields required to create a new user.
// Input types are kept separate from the domain model so the id and
// timestamps can never be mass-assigned.
type CreateUserParams struct {
	Email     string
	FirstName string
	LastName  string
	Social    *Social
}

// UpdateUserParams is a patch. Nil fields are left untouched; non-nil fields
// replace the stored value. Social is replaced as a whole: supplying a Social
// with only Github set clears the other three links.
type UpdateUserParams struct {
	ID        int64
	Email     *string
	FirstName *string
	LastName  *string
	Social    *Social
}

// Empty reports whether the patch changes nothing.
func (p UpdateUserParams) Empty() bool {
	return p.Email == nil && p.FirstName == nil && p.LastName == nil && p.Social == nil
}
