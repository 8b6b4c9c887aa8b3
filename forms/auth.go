package forms

import "strings"

type SignupInput struct {
	Username  string `form:"username" validate:"required,min=3,max=150,username"`
	Email     string `form:"email" validate:"omitempty,email,max=254"`
	Password  string `form:"password1" validate:"required,min=8,max=128"`
	Password2 string `form:"password2" validate:"required,eqfield=Password"`
}

// ValidateSignup checks a registration form. usernameTaken reports a clash with an existing user.
func ValidateSignup(in SignupInput, usernameTaken func(string) bool) (SignupInput, FieldErrors) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)

	fe := check(in)
	if !fe.Has("username") && usernameTaken != nil && usernameTaken(in.Username) {
		fe.Add("username", "A user with that username already exists.")
	}
	return in, fe
}

type LoginInput struct {
	Username string `form:"username" validate:"required"`
	Password string `form:"password" validate:"required"`
}

func ValidateLogin(in LoginInput) (LoginInput, FieldErrors) {
	in.Username = strings.TrimSpace(in.Username)
	return in, check(in)
}
