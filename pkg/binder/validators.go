package binder

import (
	"net/url"

	"github.com/go-playground/validator/v10"
)

// SortOrders lists the accepted values for book list ordering.
var SortOrders = []string{"date_desc", "date_asc", "alpha_asc", "alpha_desc"}

// urlValidator accepts the empty string or an absolute http(s) URL. Empty is
// allowed because catalog entries without artwork carry no thumbnail.
func urlValidator(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	u, err := url.Parse(value)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func sortOrderValidator(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	for _, s := range SortOrders {
		if value == s {
			return true
		}
	}
	return false
}
