package catalog

type SearchQuery struct {
	Q string `query:"q" json:"q" mod:"trim" validate:"required,max=300"`
}
