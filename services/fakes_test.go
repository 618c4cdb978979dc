package services

import (
	"context"
	"sort"
	"strings"
	"testing"
	"time"

	"filerepo/config"
	"filerepo/models"
	"filerepo/repositories"
	"filerepo/storage"

	"gorm.io/gorm"
)

type fakeTxManager struct{}

func (fakeTxManager) WithTransaction(_ context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type fakeUserRepo struct {
	usersByID map[uint]models.User
	nextID    uint
	updateErr error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{usersByID: map[uint]models.User{}, nextID: 1}
}

func (r *fakeUserRepo) CountByEmail(_ context.Context, email string) (int64, error) {
	var n int64
	for _, u := range r.usersByID {
		if u.Email == email {
			n++
		}
	}
	return n, nil
}

func (r *fakeUserRepo) Create(_ context.Context, _ *gorm.DB, user *models.User) error {
	if user.ID == 0 {
		user.ID = r.nextID
		r.nextID++
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	r.usersByID[user.ID] = *user
	return nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, _ *gorm.DB, email string) (models.User, error) {
	for _, u := range r.usersByID {
		if u.Email == email {
			return u, nil
		}
	}
	return models.User{}, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) GetByID(_ context.Context, _ *gorm.DB, userID uint) (models.User, error) {
	user, ok := r.usersByID[userID]
	if !ok {
		return models.User{}, gorm.ErrRecordNotFound
	}
	return user, nil
}

func (r *fakeUserRepo) ListPending(_ context.Context, _ *gorm.DB) ([]models.User, error) {
	var out []models.User
	for _, u := range r.sorted() {
		if !u.IsApproved && u.IsActive && !u.IsArchived {
			out = append(out, u)
		}
	}
	return out, nil
}

func (r *fakeUserRepo) UpdateByID(_ context.Context, _ *gorm.DB, userID uint, updates map[string]interface{}) error {
	if r.updateErr != nil {
		return r.updateErr
	}
	user, ok := r.usersByID[userID]
	if !ok {
		return nil
	}
	if v, ok := updates["is_approved"].(bool); ok {
		user.IsApproved = v
	}
	if v, ok := updates["is_active"].(bool); ok {
		user.IsActive = v
	}
	r.usersByID[userID] = user
	return nil
}

// ListForRepositoryView ignores Search; matching owners is the gorm query's job.
func (r *fakeUserRepo) ListForRepositoryView(_ context.Context, _ *gorm.DB, in repositories.RepositoryViewQuery) ([]models.User, error) {
	var out []models.User
	for _, u := range r.sorted() {
		if u.ID <= in.AfterID {
			continue
		}
		out = append(out, u)
		if in.Limit > 0 && len(out) == in.Limit {
			break
		}
	}
	return out, nil
}

func (r *fakeUserRepo) sorted() []models.User {
	out := make([]models.User, 0, len(r.usersByID))
	for _, u := range r.usersByID {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

type fakeFolderRepo struct {
	byID      map[uint]models.Folder
	nextID    uint
	createErr error
	updateErr error
}

func newFakeFolderRepo() *fakeFolderRepo {
	return &fakeFolderRepo{byID: map[uint]models.Folder{}, nextID: 100}
}

func (r *fakeFolderRepo) GetByID(_ context.Context, _ *gorm.DB, folderID uint) (models.Folder, error) {
	f, ok := r.byID[folderID]
	if !ok {
		return models.Folder{}, gorm.ErrRecordNotFound
	}
	return f, nil
}

func (r *fakeFolderRepo) GetByIDAndUser(_ context.Context, _ *gorm.DB, folderID uint, userID uint) (models.Folder, error) {
	f, ok := r.byID[folderID]
	if !ok || f.UserID != userID {
		return models.Folder{}, gorm.ErrRecordNotFound
	}
	return f, nil
}

func (r *fakeFolderRepo) Create(_ context.Context, _ *gorm.DB, folder *models.Folder) error {
	if r.createErr != nil {
		return r.createErr
	}
	if folder.ID == 0 {
		folder.ID = r.nextID
		r.nextID++
	}
	r.byID[folder.ID] = *folder
	return nil
}

func (r *fakeFolderRepo) ListByUser(ctx context.Context, tx *gorm.DB, userID uint) ([]models.Folder, error) {
	return r.ListByUserIDs(ctx, tx, []uint{userID})
}

func (r *fakeFolderRepo) ListByUserIDs(_ context.Context, _ *gorm.DB, userIDs []uint) ([]models.Folder, error) {
	want := map[uint]bool{}
	for _, id := range userIDs {
		want[id] = true
	}
	var out []models.Folder
	for _, f := range r.byID {
		if want[f.UserID] {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].FolderName != out[j].FolderName {
			return out[i].FolderName < out[j].FolderName
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *fakeFolderRepo) CountByPath(_ context.Context, _ *gorm.DB, path string, excludeID uint) (int64, error) {
	var n int64
	for _, f := range r.byID {
		if f.Path == path && f.ID != excludeID {
			n++
		}
	}
	return n, nil
}

func (r *fakeFolderRepo) UpdateByID(_ context.Context, _ *gorm.DB, folderID uint, updates map[string]interface{}) error {
	if r.updateErr != nil {
		return r.updateErr
	}
	f, ok := r.byID[folderID]
	if !ok {
		return nil
	}
	if v, ok := updates["folder_name"].(string); ok {
		f.FolderName = v
	}
	if v, ok := updates["path"].(string); ok {
		f.Path = v
	}
	if v, ok := updates["parent_id"]; ok {
		f.ParentID, _ = v.(*uint)
	}
	r.byID[folderID] = f
	return nil
}

func (r *fakeFolderRepo) DeleteByID(_ context.Context, _ *gorm.DB, folderID uint) error {
	delete(r.byID, folderID)
	return nil
}

// byPath finds a folder by its stored path; tests use it to assert cascades.
func (r *fakeFolderRepo) byPath(path string) (models.Folder, bool) {
	for _, f := range r.byID {
		if f.Path == path {
			return f, true
		}
	}
	return models.Folder{}, false
}

type fakeFileRepo struct {
	byID      map[uint]models.File
	nextID    uint
	createErr error
	updateErr error
	deleteErr error
}

func newFakeFileRepo() *fakeFileRepo {
	return &fakeFileRepo{byID: map[uint]models.File{}, nextID: 500}
}

func (r *fakeFileRepo) GetByID(_ context.Context, _ *gorm.DB, fileID uint) (models.File, error) {
	f, ok := r.byID[fileID]
	if !ok {
		return models.File{}, gorm.ErrRecordNotFound
	}
	return f, nil
}

func (r *fakeFileRepo) GetByIDAndUser(_ context.Context, _ *gorm.DB, fileID uint, userID uint) (models.File, error) {
	f, ok := r.byID[fileID]
	if !ok || f.UserID != userID {
		return models.File{}, gorm.ErrRecordNotFound
	}
	return f, nil
}

func (r *fakeFileRepo) Create(_ context.Context, _ *gorm.DB, file *models.File) error {
	if r.createErr != nil {
		return r.createErr
	}
	if file.ID == 0 {
		file.ID = r.nextID
		r.nextID++
	}
	r.byID[file.ID] = *file
	return nil
}

func (r *fakeFileRepo) ListByUser(ctx context.Context, tx *gorm.DB, userID uint) ([]models.File, error) {
	return r.ListByUserIDs(ctx, tx, []uint{userID})
}

func (r *fakeFileRepo) ListByUserIDs(_ context.Context, _ *gorm.DB, userIDs []uint) ([]models.File, error) {
	want := map[uint]bool{}
	for _, id := range userIDs {
		want[id] = true
	}
	var out []models.File
	for _, f := range r.byID {
		if want[f.UserID] {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].FileName != out[j].FileName {
			return out[i].FileName < out[j].FileName
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *fakeFileRepo) UpdateByID(_ context.Context, _ *gorm.DB, fileID uint, updates map[string]interface{}) error {
	if r.updateErr != nil {
		return r.updateErr
	}
	f, ok := r.byID[fileID]
	if !ok {
		return nil
	}
	if v, ok := updates["file_name"].(string); ok {
		f.FileName = v
	}
	if v, ok := updates["file_path"].(string); ok {
		f.FilePath = v
	}
	r.byID[fileID] = f
	return nil
}

func (r *fakeFileRepo) DeleteByID(_ context.Context, _ *gorm.DB, fileID uint) error {
	if r.deleteErr != nil {
		return r.deleteErr
	}
	delete(r.byID, fileID)
	return nil
}

type fakeAuditRepo struct {
	approvals []models.ApprovalLog
	accesses  []models.FileAccessLog
}

func (r *fakeAuditRepo) CreateApproval(_ context.Context, _ *gorm.DB, entry *models.ApprovalLog) error {
	r.approvals = append(r.approvals, *entry)
	return nil
}

func (r *fakeAuditRepo) CreateFileAccess(_ context.Context, _ *gorm.DB, entry *models.FileAccessLog) error {
	r.accesses = append(r.accesses, *entry)
	return nil
}

func newTestStorage(t *testing.T, maxSize int64) *storage.LocalStorage {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir(), "http://files.test/storage", maxSize)
	if err != nil {
		t.Fatalf("NewLocalStorage failed: %v", err)
	}
	return store
}

// failingMoveStorage rejects every Move while delegating everything else.
type failingMoveStorage struct {
	storage.Backend
	moveErr error
}

func (s failingMoveStorage) Move(context.Context, string, string) error {
	return s.moveErr
}

// treeFixture wires the tree services over fakes and a temp storage root.
type treeFixture struct {
	folders *fakeFolderRepo
	files   *fakeFileRepo
	audit   *fakeAuditRepo
	store   storage.Backend
	folder  FolderService
	file    FileService
}

const testMaxFileSize = 10 << 20

var thumbnailTestConfig = config.ThumbnailConfig{Width: 64, Height: 64, Quality: 80}

func newTreeFixture(t *testing.T) *treeFixture {
	t.Helper()
	return newTreeFixtureWithStore(t, newTestStorage(t, testMaxFileSize), newFakeFolderRepo(), newFakeFileRepo())
}

func newTreeFixtureWithStore(t *testing.T, store storage.Backend, folders *fakeFolderRepo, files *fakeFileRepo) *treeFixture {
	t.Helper()
	locker := repositories.NewMemorySubtreeLocker()
	audit := &fakeAuditRepo{}
	thumbs := NewThumbnailService(thumbnailTestConfig)
	return &treeFixture{
		folders: folders,
		files:   files,
		audit:   audit,
		store:   store,
		folder:  NewFolderService(fakeTxManager{}, folders, files, store, locker, time.Second),
		file:    NewFileService(folders, files, audit, store, thumbs, locker, time.Second),
	}
}

func (f *treeFixture) mkdir(t *testing.T, owner Identity, name string, parentID *uint) models.Folder {
	t.Helper()
	folder, err := f.folder.CreateFolder(context.Background(), owner, CreateFolderInput{Name: name, ParentID: parentID})
	if err != nil {
		t.Fatalf("CreateFolder %q failed: %v", name, err)
	}
	return folder
}

func (f *treeFixture) upload(t *testing.T, owner Identity, name string, folderID *uint, body string) models.File {
	t.Helper()
	file, err := f.file.UploadFile(context.Background(), owner, UploadFileInput{
		FolderID: folderID,
		FileName: name,
		Size:     int64(len(body)),
		Content:  strings.NewReader(body),
	})
	if err != nil {
		t.Fatalf("UploadFile %q failed: %v", name, err)
	}
	return file
}

func (f *treeFixture) exists(t *testing.T, p string) bool {
	t.Helper()
	ok, err := f.store.Exists(context.Background(), p)
	if err != nil {
		t.Fatalf("Exists %q failed: %v", p, err)
	}
	return ok
}

func uintPtr(v uint) *uint {
	return &v
}

var (
	alice = Identity{UserID: 1, DisplayName: "Alice Smith", Role: models.RoleUser}
	bob   = Identity{UserID: 2, DisplayName: "Bob", Role: models.RoleUser}
	boss  = Identity{UserID: 9, DisplayName: "Principal", Role: models.RolePrincipal}
)
