package forms

import "strings"

type GroupInput struct {
	Title       string `form:"title" validate:"required,max=200"`
	Slug        string `form:"slug" validate:"required,max=50,slug"`
	Description string `form:"description" validate:"required"`
}

// ValidateGroup checks a group form. slugTaken reports an existing slug.
func ValidateGroup(in GroupInput, slugTaken func(slug string) bool) (GroupInput, FieldErrors) {
	in.Title = strings.TrimSpace(in.Title)
	in.Slug = strings.TrimSpace(in.Slug)
	in.Description = strings.TrimSpace(in.Description)

	fe := check(in)
	if !fe.Has("slug") && slugTaken != nil && slugTaken(in.Slug) {
		fe.Add("slug", "Group with this Slug already exists.")
	}
	return in, fe
}
