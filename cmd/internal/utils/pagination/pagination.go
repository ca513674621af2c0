package pagination

import (
	"math"
	"strconv"

	"medappointments/cmd/internal/domain/store"
	"medappointments/cmd/internal/utils/apierror"
)

const (
	DefaultPageNumber = 1
	DefaultPageSize   = 10
	MaxPageSize       = 100
)

// PageQuery is a validated 1-based page request.
type PageQuery struct {
	PageNumber int
	PageSize   int
}

// New validates pageNumber >= 1 and 1 <= pageSize <= MaxPageSize. The resulting
// offset must fit in an int.
func New(pageNumber, pageSize int) (PageQuery, apierror.ErrorResponse) {
	if pageNumber < 1 {
		return PageQuery{}, apierror.NewValidation("page_number must be at least 1")
	}
	if pageSize < 1 {
		return PageQuery{}, apierror.NewValidation("page_size must be at least 1")
	}
	if pageSize > MaxPageSize {
		return PageQuery{}, apierror.NewValidation("page_size must be at most " + strconv.Itoa(MaxPageSize))
	}
	if pageNumber-1 > math.MaxInt/pageSize {
		return PageQuery{}, apierror.NewValidation("page_number is out of range")
	}
	return PageQuery{PageNumber: pageNumber, PageSize: pageSize}, nil
}

// Parse reads raw query parameters, falling back to the defaults when a value is absent.
func Parse(rawNumber, rawSize string) (PageQuery, apierror.ErrorResponse) {
	number, size := DefaultPageNumber, DefaultPageSize
	var err error
	if rawNumber != "" {
		if number, err = strconv.Atoi(rawNumber); err != nil {
			return PageQuery{}, apierror.NewInvalidParamTypeError("page_number", "int")
		}
	}
	if rawSize != "" {
		if size, err = strconv.Atoi(rawSize); err != nil {
			return PageQuery{}, apierror.NewInvalidParamTypeError("page_size", "int")
		}
	}
	return New(number, size)
}

func (p PageQuery) Offset() int {
	return (p.PageNumber - 1) * p.PageSize
}

func (p PageQuery) Limit() int {
	return p.PageSize
}

func (p PageQuery) Page() store.Page {
	return store.Page{Offset: p.Offset(), Limit: p.Limit()}
}

// Response wraps one page of results.
type Response struct {
	Data       any  `json:"data"`
	PageNumber int  `json:"page_number"`
	PageSize   int  `json:"page_size"`
	HasMore    bool `json:"has_more"`
}

// NewResponse reports HasMore when the page came back full; the next page may still
// turn out empty.
func NewResponse(data any, count int, p PageQuery) *Response {
	return &Response{
		Data:       data,
		PageNumber: p.PageNumber,
		PageSize:   p.PageSize,
		HasMore:    count == p.PageSize,
	}
}
