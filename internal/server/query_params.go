package server

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/affiliate/pkg/db/pagination"
	"github.com/spf13/cast"
)

// parsePagination reads the 0-based page and size query parameters.
func parsePagination(c *gin.Context) (pagination.Pagination, error) {
	page, err := queryInt(c, "page")
	if err != nil {
		return pagination.Pagination{}, newValidationError("page", "invalid_page", "page must be a non-negative integer")
	}
	size, err := queryInt(c, "size")
	if err != nil {
		return pagination.Pagination{}, newValidationError("size", "invalid_size", "size must be a positive integer")
	}
	if page < 0 || size < 0 {
		return pagination.Pagination{}, newValidationError("page", "invalid_page", "page and size must not be negative")
	}
	return pagination.Pagination{Page: page, Size: size}.Normalize(), nil
}

func queryInt(c *gin.Context, key string) (int, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return 0, nil
	}
	return cast.ToIntE(raw)
}

func queryString(c *gin.Context, keys ...string) string {
	for _, key := range keys {
		if v := strings.TrimSpace(c.Query(key)); v != "" {
			return v
		}
	}
	return ""
}

func queryStatus(c *gin.Context) string {
	return strings.ToUpper(queryString(c, "status"))
}
