package handlers

import (
	"filerepo/utils"

	"github.com/gin-gonic/gin"
)

func ListPendingUsers(c *gin.Context) {
	users, err := getServices().User.ListPendingUsers(c.Request.Context())
	if respondServiceError(c, err) {
		return
	}
	utils.Success(c, users)
}

func ApproveUser(c *gin.Context) {
	userID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	user, err := getServices().User.ApproveUser(c.Request.Context(), currentIdentity(c), userID)
	if respondServiceError(c, err) {
		return
	}
	utils.SuccessWithMessage(c, "user approved", user)
}

func RejectUser(c *gin.Context) {
	userID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	user, err := getServices().User.RejectUser(c.Request.Context(), currentIdentity(c), userID)
	if respondServiceError(c, err) {
		return
	}
	utils.SuccessWithMessage(c, "user rejected", user)
}
