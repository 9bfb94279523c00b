package model

import "autosnap/pkg/docstore"

type Client struct {
	ID        string `json:"id"`
	Name      string `json:"name" validate:"required,min=1,max=100"`
	Surname   string `json:"surname" validate:"omitempty,max=100"`
	Birthdate string `json:"birthdate" validate:"omitempty,max=20"`
	Email     string `json:"email" validate:"omitempty,email"`
	Phone     string `json:"phone" validate:"omitempty,e164"`
	Note      string `json:"note" validate:"omitempty,max=1000"`
	Cars      []*Car `json:"cars,omitempty" validate:"-"`
}

func ClientFromDocument(doc *docstore.Document) *Client {
	f := doc.Data
	return &Client{
		ID:        doc.Key(),
		Name:      f.String("name"),
		Surname:   f.String("surname"),
		Birthdate: f.String("birthdate"),
		Email:     f.String("email"),
		Phone:     f.String("phone"),
		Note:      f.String("note"),
	}
}

// Fields excludes cars; they are separate nodes under the client.
func (c *Client) Fields() map[string]any {
	return map[string]any{
		"name":      c.Name,
		"surname":   c.Surname,
		"birthdate": c.Birthdate,
		"email":     c.Email,
		"phone":     c.Phone,
		"note":      c.Note,
	}
}

func (c *Client) FullName() string {
	if c.Surname == "" {
		return c.Name
	}
	return c.Name + " " + c.Surname
}
