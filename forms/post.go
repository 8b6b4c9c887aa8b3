package forms

import (
	"strconv"
	"strings"
)

// PostInput is the raw post form. Group holds the selected group id or "".
type PostInput struct {
	Text  string `form:"text" validate:"required"`
	Group string `form:"group"`
}

// PostData is a validated post form.
type PostData struct {
	Text    string
	GroupID *uint
}

// ValidatePost checks the post form. groupExists reports whether a group id may be chosen.
func ValidatePost(in PostInput, groupExists func(id uint) bool) (PostData, FieldErrors) {
	in.Text = strings.TrimSpace(in.Text)
	in.Group = strings.TrimSpace(in.Group)

	fe := check(in)
	out := PostData{Text: in.Text}
	if in.Group != "" {
		id, err := strconv.ParseUint(in.Group, 10, 64)
		if err != nil || id == 0 || groupExists == nil || !groupExists(uint(id)) {
			fe.Add("group", "Select a valid choice. That choice is not one of the available choices.")
		} else {
			gid := uint(id)
			out.GroupID = &gid
		}
	}
	return out, fe
}
