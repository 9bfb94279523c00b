package model

import "autosnap/pkg/docstore"

// User is an account. It acts as a service center once it offers services.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username" validate:"required,min=2,max=100"`
	Email    string `json:"email" validate:"omitempty,email"`
	Phone    string `json:"phone" validate:"omitempty,e164"`
	Address  string `json:"address,omitempty" validate:"omitempty,max=200"`
}

type UserUpdate struct {
	Username *string `json:"username,omitempty" validate:"omitempty,min=2,max=100"`
	Email    *string `json:"email,omitempty" validate:"omitempty,email"`
	Phone    *string `json:"phone,omitempty" validate:"omitempty,e164"`
	Address  *string `json:"address,omitempty" validate:"omitempty,max=200"`
}

func UserFromDocument(doc *docstore.Document) *User {
	f := doc.Data
	return &User{
		ID:       doc.Key(),
		Username: f.String("username"),
		Email:    f.String("email"),
		Phone:    f.String("phone"),
		Address:  f.String("address"),
	}
}

func (u *User) Fields() map[string]any {
	return map[string]any{
		"username": u.Username,
		"email":    u.Email,
		"phone":    u.Phone,
		"address":  u.Address,
	}
}

// Fields returns only the fields that are set.
func (u *UserUpdate) Fields() map[string]any {
	out := map[string]any{}
	if u.Username != nil {
		out["username"] = *u.Username
	}
	if u.Email != nil {
		out["email"] = *u.Email
	}
	if u.Phone != nil {
		out["phone"] = *u.Phone
	}
	if u.Address != nil {
		out["address"] = *u.Address
	}
	return out
}
