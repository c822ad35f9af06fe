package libraries

type CreateLibraryPayload struct {
	Name string   `json:"name" mod:"trim" validate:"required,max=100"`
	Tags []string `json:"tags,omitempty" validate:"omitempty,max=50,dive,max=100"`
}

type ListLibrariesQuery struct {
	Search *string `query:"search" json:"search,omitempty" mod:"trim" validate:"omitempty,max=100"`
}
