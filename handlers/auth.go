package handlers

import (
	"net/http"

	"filerepo/services"
	"filerepo/utils"

	"github.com/gin-gonic/gin"
)

type RegisterRequest struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := getServices().Auth.Register(c.Request.Context(), services.RegisterInput{
		FullName: req.FullName,
		Email:    req.Email,
		Password: req.Password,
	})
	if respondServiceError(c, err) {
		return
	}
	utils.Created(c, "registration received, awaiting approval", user)
}

func Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, http.StatusBadRequest, "invalid request body")
		return
	}

	out, err := getServices().Auth.Login(c.Request.Context(), services.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if respondServiceError(c, err) {
		return
	}
	utils.Success(c, out)
}

// Logout only acknowledges; tokens are stateless and expire on their own.
func Logout(c *gin.Context) {
	utils.SuccessWithMessage(c, "logged out", nil)
}

func GetProfile(c *gin.Context) {
	user, err := getServices().Auth.GetProfile(c.Request.Context(), currentIdentity(c).UserID)
	if respondServiceError(c, err) {
		return
	}
	utils.Success(c, user)
}
