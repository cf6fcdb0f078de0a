package handlers

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"storefront/internal/apperr"
	"storefront/internal/store"
)

func parsePaginationParams(pageStr, limitStr string) (store.Page, error) {
	page := store.Page{Page: 1, Limit: store.DefaultLimit}

	if pageStr = strings.TrimSpace(pageStr); pageStr != "" {
		p, err := strconv.ParseInt(pageStr, 10, 64)
		if err != nil || p < 1 {
			return store.Page{}, apperr.Invalid("page", "must be a positive integer")
		}
		page.Page = p
	}

	if limitStr = strings.TrimSpace(limitStr); limitStr != "" {
		l, err := strconv.ParseInt(limitStr, 10, 64)
		if err != nil || l < 1 {
			return store.Page{}, apperr.Invalid("limit", "must be a positive integer")
		}
		if l > store.MaxLimit {
			l = store.MaxLimit
		}
		page.Limit = l
	}

	return page, nil
}

func paginated(data interface{}, page store.Page, total int64) gin.H {
	totalPages := int64(0)
	if total > 0 {
		totalPages = (total + page.Limit - 1) / page.Limit
	}
	return gin.H{
		"data": data,
		"pagination": gin.H{
			"page":       page.Page,
			"limit":      page.Limit,
			"total":      total,
			"totalPages": totalPages,
		},
	}
}
