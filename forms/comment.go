package forms

import "strings"

// CommentInput carries the only user-editable comment field.
type CommentInput struct {
	Text string `form:"text" validate:"required,max=200"`
}

func ValidateComment(in CommentInput) (string, FieldErrors) {
	in.Text = strings.TrimSpace(in.Text)
	return in.Text, check(in)
}
