package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"filerepo/middleware"
	"filerepo/models"
	"filerepo/services"
	"filerepo/storage"

	"github.com/gin-gonic/gin"
)

var (
	alice = services.Identity{UserID: 1, DisplayName: "Alice Smith", Role: models.RoleUser}
	boss  = services.Identity{UserID: 9, DisplayName: "Principal", Role: models.RolePrincipal}
)

type fakeFolderService struct {
	createIn  services.CreateFolderInput
	updateIn  services.UpdateFolderInput
	updateID  uint
	deletedID uint
	err       error
}

func (f *fakeFolderService) CreateFolder(ctx context.Context, owner services.Identity, in services.CreateFolderInput) (models.Folder, error) {
	f.createIn = in
	if f.err != nil {
		return models.Folder{}, f.err
	}
	return models.Folder{ID: 10, UserID: owner.UserID, FolderName: in.Name, ParentID: in.ParentID, Path: "user_Alice_Smith/" + in.Name}, nil
}

func (f *fakeFolderService) UpdateFolder(ctx context.Context, owner services.Identity, folderID uint, in services.UpdateFolderInput) (models.Folder, error) {
	f.updateID, f.updateIn = folderID, in
	if f.err != nil {
		return models.Folder{}, f.err
	}
	return models.Folder{ID: folderID, UserID: owner.UserID, FolderName: in.Name, ParentID: in.ParentID, Path: "user_Alice_Smith/" + in.Name}, nil
}

func (f *fakeFolderService) DeleteFolder(ctx context.Context, owner services.Identity, folderID uint) error {
	f.deletedID = folderID
	return f.err
}

type fakeFileService struct {
	uploadIn      services.UploadFileInput
	uploadContent []byte
	renamedTo     string
	meta          services.AccessMeta
	viewer        services.Identity
	content       []byte
	file          models.File
	err           error
}

func (f *fakeFileService) UploadFile(ctx context.Context, owner services.Identity, in services.UploadFileInput) (models.File, error) {
	f.uploadIn = in
	if in.Content != nil {
		f.uploadContent, _ = io.ReadAll(in.Content)
	}
	if f.err != nil {
		return models.File{}, f.err
	}
	return models.File{ID: 50, UserID: owner.UserID, FolderID: in.FolderID, FileName: in.FileName, FilePath: "user_Alice_Smith/x_" + in.FileName, FileSize: in.Size}, nil
}

func (f *fakeFileService) RenameFile(ctx context.Context, owner services.Identity, fileID uint, name string) (models.File, error) {
	f.renamedTo = name
	if f.err != nil {
		return models.File{}, f.err
	}
	return models.File{ID: fileID, UserID: owner.UserID, FileName: name, FilePath: "user_Alice_Smith/y_" + name}, nil
}

func (f *fakeFileService) DeleteFile(ctx context.Context, owner services.Identity, fileID uint) error {
	return f.err
}

type nopSeekCloser struct {
	*bytes.Reader
}

func (nopSeekCloser) Close() error { return nil }

func (f *fakeFileService) OpenFile(ctx context.Context, viewer services.Identity, fileID uint, meta services.AccessMeta) (services.FileAccessOutput, error) {
	f.viewer, f.meta = viewer, meta
	if f.err != nil {
		return services.FileAccessOutput{}, f.err
	}
	return services.FileAccessOutput{
		File:         f.file,
		Object:       &storage.Object{ReadSeekCloser: nopSeekCloser{bytes.NewReader(f.content)}, Size: int64(len(f.content)), ModTime: time.Unix(1700000000, 0)},
		ContentType:  f.file.FileType,
		DownloadName: f.file.FileName,
	}, nil
}

func (f *fakeFileService) GetThumbnail(ctx context.Context, viewer services.Identity, fileID uint, meta services.AccessMeta) (services.ThumbnailOutput, error) {
	f.viewer, f.meta = viewer, meta
	if f.err != nil {
		return services.ThumbnailOutput{}, f.err
	}
	return services.ThumbnailOutput{File: f.file, Content: []byte("jpeg-bytes")}, nil
}

type fakeRepositoryService struct {
	query services.AllRepositoriesQuery
}

func (f *fakeRepositoryService) ListMyRepository(ctx context.Context, owner services.Identity) (services.RepositoryTree, error) {
	return services.RepositoryTree{Folders: []services.FolderNode{}, Files: []services.FileNode{}}, nil
}

func (f *fakeRepositoryService) ListAllRepositories(ctx context.Context, viewer services.Identity, in services.AllRepositoriesQuery) (services.AllRepositoriesOutput, error) {
	f.query = in
	return services.AllRepositoriesOutput{Repositories: []services.OwnerRepository{}, PerPage: in.PerPage}, nil
}

func (f *fakeRepositoryService) DescribeFolder(folder models.Folder) services.FolderNode {
	return services.FolderNode{ID: folder.ID, FolderName: folder.FolderName, ParentID: folder.ParentID, Path: folder.Path, FolderURL: "/storage/" + folder.Path}
}

func (f *fakeRepositoryService) DescribeFile(file models.File) services.FileNode {
	return services.FileNode{ID: file.ID, FileName: file.FileName, FilePath: file.FilePath, FileURL: "/storage/" + file.FilePath}
}

type fakeAuthService struct {
	services.AuthService
	registered services.RegisterInput
	err        error
}

func (f *fakeAuthService) Register(ctx context.Context, in services.RegisterInput) (services.AuthUser, error) {
	f.registered = in
	if f.err != nil {
		return services.AuthUser{}, f.err
	}
	return services.AuthUser{ID: 3, FullName: in.FullName, Email: in.Email, Role: models.RoleUser, IsActive: true}, nil
}

func (f *fakeAuthService) Login(ctx context.Context, in services.LoginInput) (services.LoginOutput, error) {
	if f.err != nil {
		return services.LoginOutput{}, f.err
	}
	return services.LoginOutput{Token: "signed", User: services.AuthUser{ID: 3, Email: in.Email}}, nil
}

type fakeUserService struct {
	principal services.Identity
	decided   uint
	err       error
}

func (f *fakeUserService) ListPendingUsers(ctx context.Context) ([]services.AuthUser, error) {
	return []services.AuthUser{{ID: 3, FullName: "Pending"}}, nil
}

func (f *fakeUserService) ApproveUser(ctx context.Context, principal services.Identity, userID uint) (services.AuthUser, error) {
	f.principal, f.decided = principal, userID
	if f.err != nil {
		return services.AuthUser{}, f.err
	}
	return services.AuthUser{ID: userID, IsApproved: true}, nil
}

func (f *fakeUserService) RejectUser(ctx context.Context, principal services.Identity, userID uint) (services.AuthUser, error) {
	f.principal, f.decided = principal, userID
	return services.AuthUser{ID: userID}, f.err
}

type testApp struct {
	folders *fakeFolderService
	files   *fakeFileService
	repo    *fakeRepositoryService
	auth    *fakeAuthService
	users   *fakeUserService
	router  *gin.Engine
}

// newTestApp installs fake services and a router whose requests all run as who.
func newTestApp(t *testing.T, who services.Identity) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

	app := &testApp{
		folders: &fakeFolderService{},
		files:   &fakeFileService{},
		repo:    &fakeRepositoryService{},
		auth:    &fakeAuthService{},
		users:   &fakeUserService{},
	}
	prev := appServices
	SetServices(&services.Container{
		Auth:       app.auth,
		User:       app.users,
		Folder:     app.folders,
		File:       app.files,
		Repository: app.repo,
	})
	t.Cleanup(func() { appServices = prev })

	r := gin.New()
	r.POST("/api/register", Register)
	r.POST("/api/login", Login)

	api := r.Group("/api")
	api.Use(func(c *gin.Context) {
		c.Set(middleware.ContextUserID, who.UserID)
		c.Set(middleware.ContextUserName, who.DisplayName)
		c.Set(middleware.ContextUserRole, who.Role)
		c.Next()
	})
	api.POST("/logout", Logout)
	api.GET("/my-repository", GetMyRepository)
	api.GET("/all-repositories", GetAllRepositories)
	api.POST("/folders", CreateFolder)
	api.POST("/folders/:id", UpdateFolder)
	api.DELETE("/folders/:id", DeleteFolder)
	api.POST("/files", UploadFile)
	api.POST("/files/:id", RenameFile)
	api.DELETE("/files/:id", DeleteFile)
	api.GET("/files/:id/download", DownloadFile)
	api.GET("/files/:id/preview", PreviewFile)
	api.GET("/files/:id/thumbnail", GetThumbnail)
	api.GET("/principal/pending-users", ListPendingUsers)
	api.POST("/principal/users/:id/approve", ApproveUser)
	api.POST("/principal/users/:id/reject", RejectUser)
	app.router = r
	return app
}

func (a *testApp) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func (a *testApp) doJSON(method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	return a.do(req)
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder, data interface{}) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("response is not an envelope: %v: %s", err, w.Body.String())
	}
	if data != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, data); err != nil {
			t.Fatalf("decode data: %v", err)
		}
	}
	return env
}
