package interchange

import "mime/multipart"

type ImportPayload struct {
	FormFiles map[string]*multipart.FileHeader `form:"-" json:"-"`
}
