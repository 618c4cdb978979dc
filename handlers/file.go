package handlers

import (
	"errors"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"filerepo/config"
	"filerepo/models"
	"filerepo/services"
	"filerepo/utils"

	"github.com/gin-gonic/gin"
)

// multipartOverhead is allowed on top of the file size for boundaries and form fields.
const multipartOverhead = 1 << 20

type RenameFileRequest struct {
	FileName string `json:"file_name"`
}

func accessMeta(c *gin.Context, action string) services.AccessMeta {
	return services.AccessMeta{
		Action:    action,
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}
}

func UploadFile(c *gin.Context) {
	var maxFileSize int64
	if config.AppConfig != nil {
		maxFileSize = config.AppConfig.Storage.MaxFileSize
	}
	if maxFileSize > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxFileSize+multipartOverhead)
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			utils.ErrorWithData(c, http.StatusRequestEntityTooLarge, "file exceeds the size limit", gin.H{"max_file_size": maxFileSize})
			return
		}
		utils.Error(c, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	var folderID *uint
	if raw := strings.TrimSpace(c.PostForm("folder_id")); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil || id == 0 {
			utils.Error(c, http.StatusBadRequest, "invalid folder_id")
			return
		}
		v := uint(id)
		folderID = &v
	}

	svc := getServices()
	created, err := svc.File.UploadFile(c.Request.Context(), currentIdentity(c), services.UploadFileInput{
		FolderID: folderID,
		FileName: header.Filename,
		MimeType: header.Header.Get("Content-Type"),
		Size:     header.Size,
		Content:  file,
	})
	if respondServiceError(c, err) {
		return
	}
	utils.Created(c, "file uploaded", svc.Repository.DescribeFile(created))
}

func RenameFile(c *gin.Context) {
	fileID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req RenameFileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, http.StatusBadRequest, "invalid request body")
		return
	}

	svc := getServices()
	renamed, err := svc.File.RenameFile(c.Request.Context(), currentIdentity(c), fileID, req.FileName)
	if respondServiceError(c, err) {
		return
	}
	utils.Success(c, svc.Repository.DescribeFile(renamed))
}

func DeleteFile(c *gin.Context) {
	fileID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if respondServiceError(c, getServices().File.DeleteFile(c.Request.Context(), currentIdentity(c), fileID)) {
		return
	}
	utils.SuccessWithMessage(c, "file deleted", nil)
}

func DownloadFile(c *gin.Context) {
	serveFile(c, "attachment", models.AccessActionDownload)
}

func PreviewFile(c *gin.Context) {
	serveFile(c, "inline", models.AccessActionPreview)
}

// serveFile streams the stored object; http.ServeContent answers Range and
// conditional requests.
func serveFile(c *gin.Context, disposition string, action string) {
	fileID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	out, err := getServices().File.OpenFile(c.Request.Context(), currentIdentity(c), fileID, accessMeta(c, action))
	if respondServiceError(c, err) {
		return
	}
	defer out.Object.Close()

	c.Header("Content-Type", out.ContentType)
	c.Header("Content-Disposition", mime.FormatMediaType(disposition, map[string]string{"filename": out.DownloadName}))
	c.Header("X-Content-Type-Options", "nosniff")
	if disposition == "inline" {
		// Stored types are user supplied; uploaded HTML must not script the API origin.
		c.Header("Content-Security-Policy", "sandbox")
	}
	http.ServeContent(c.Writer, c.Request, out.DownloadName, out.Object.ModTime, out.Object)
}

func GetThumbnail(c *gin.Context) {
	fileID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	out, err := getServices().File.GetThumbnail(c.Request.Context(), currentIdentity(c), fileID, accessMeta(c, models.AccessActionThumbnail))
	if respondServiceError(c, err) {
		return
	}
	c.Header("Cache-Control", "private, max-age=300")
	c.Data(http.StatusOK, "image/jpeg", out.Content)
}
