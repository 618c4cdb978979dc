package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"filerepo/logger"
	"filerepo/middleware"
	"filerepo/services"
	"filerepo/utils"

	"github.com/gin-gonic/gin"
)

var appServices *services.Container

func SetServices(container *services.Container) {
	appServices = container
}

func getServices() *services.Container {
	if appServices == nil {
		panic("services container is not initialized")
	}
	return appServices
}

func respondServiceError(c *gin.Context, err error) bool {
	if err == nil {
		return false
	}
	var appErr *services.AppError
	if errors.As(err, &appErr) {
		if appErr.HTTPCode >= http.StatusInternalServerError {
			logger.Errorw(appErr.Message, "path", c.Request.URL.Path, "user_id", c.GetUint(middleware.ContextUserID), "error", appErr.Err)
		}
		if appErr.Data != nil {
			utils.ErrorWithData(c, appErr.HTTPCode, appErr.Message, appErr.Data)
		} else {
			utils.Error(c, appErr.HTTPCode, appErr.Message)
		}
		return true
	}
	logger.Errorw("unclassified service error", "path", c.Request.URL.Path, "error", err)
	utils.Error(c, http.StatusInternalServerError, "internal error")
	return true
}

// currentIdentity reads the caller set by middleware.AuthMiddleware.
func currentIdentity(c *gin.Context) services.Identity {
	return services.Identity{
		UserID:      c.GetUint(middleware.ContextUserID),
		DisplayName: c.GetString(middleware.ContextUserName),
		Role:        c.GetString(middleware.ContextUserRole),
	}
}

func parseIDParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		utils.Error(c, http.StatusBadRequest, "invalid "+name)
		return 0, false
	}
	return uint(id), true
}
