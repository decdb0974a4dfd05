package composables

import (
	"net/http"
	"strconv"

	"github.com/iota-uz/hookrelay/pkg/configuration"
)

type PaginationParams struct {
	Limit  int
	Offset int
	Page   int
}

// UsePaginated reads page/limit query parameters, clamping limit to the
// configured page size bounds.
func UsePaginated(r *http.Request) PaginationParams {
	conf := configuration.Use()

	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		page = 1
	}

	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit < 1 {
		limit = conf.PageSize
	} else if limit > conf.MaxPageSize {
		limit = conf.MaxPageSize
	}

	return PaginationParams{
		Limit:  limit,
		Offset: (page - 1) * limit,
		Page:   page,
	}
}
