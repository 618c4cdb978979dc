package handlers

import (
	"net/http"

	"filerepo/services"
	"filerepo/utils"

	"github.com/gin-gonic/gin"
)

type CreateFolderRequest struct {
	FolderName string `json:"folder_name"`
	ParentID   *uint  `json:"parent_id"`
}

// UpdateFolderRequest leaves the parent alone when parent_id is absent and
// moves the folder to the top level when it is null.
type UpdateFolderRequest struct {
	FolderName string             `json:"folder_name"`
	ParentID   utils.OptionalUint `json:"parent_id"`
}

func CreateFolder(c *gin.Context) {
	var req CreateFolderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, http.StatusBadRequest, "invalid request body")
		return
	}

	svc := getServices()
	folder, err := svc.Folder.CreateFolder(c.Request.Context(), currentIdentity(c), services.CreateFolderInput{
		Name:     req.FolderName,
		ParentID: req.ParentID,
	})
	if respondServiceError(c, err) {
		return
	}
	utils.Created(c, "folder created", svc.Repository.DescribeFolder(folder))
}

func UpdateFolder(c *gin.Context) {
	folderID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req UpdateFolderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, http.StatusBadRequest, "invalid request body")
		return
	}

	svc := getServices()
	folder, err := svc.Folder.UpdateFolder(c.Request.Context(), currentIdentity(c), folderID, services.UpdateFolderInput{
		Name:     req.FolderName,
		Reparent: req.ParentID.Present,
		ParentID: req.ParentID.Value,
	})
	if respondServiceError(c, err) {
		return
	}
	utils.Success(c, svc.Repository.DescribeFolder(folder))
}

func DeleteFolder(c *gin.Context) {
	folderID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if respondServiceError(c, getServices().Folder.DeleteFolder(c.Request.Context(), currentIdentity(c), folderID)) {
		return
	}
	utils.SuccessWithMessage(c, "folder deleted", nil)
}
