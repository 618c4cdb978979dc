package handlers

import (
	"net/http"
	"strconv"

	"filerepo/services"
	"filerepo/utils"

	"github.com/gin-gonic/gin"
)

func GetMyRepository(c *gin.Context) {
	tree, err := getServices().Repository.ListMyRepository(c.Request.Context(), currentIdentity(c))
	if respondServiceError(c, err) {
		return
	}
	utils.Success(c, tree)
}

// GetAllRepositories pages through owners by id; pass next_cursor back as cursor.
func GetAllRepositories(c *gin.Context) {
	query := services.AllRepositoriesQuery{Search: c.Query("search")}

	if raw := c.Query("cursor"); raw != "" {
		cursor, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			utils.Error(c, http.StatusBadRequest, "invalid cursor")
			return
		}
		query.Cursor = uint(cursor)
	}
	if raw := c.Query("per_page"); raw != "" {
		perPage, err := strconv.Atoi(raw)
		if err != nil || perPage < 1 {
			utils.Error(c, http.StatusBadRequest, "invalid per_page")
			return
		}
		query.PerPage = perPage
	}

	out, err := getServices().Repository.ListAllRepositories(c.Request.Context(), currentIdentity(c), query)
	if respondServiceError(c, err) {
		return
	}
	utils.Success(c, out)
}
