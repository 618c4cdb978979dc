package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path"
	"time"

	"filerepo/logger"
	"filerepo/models"
	"filerepo/repositories"
	"filerepo/storage"
)

type UploadFileInput struct {
	FolderID *uint
	FileName string
	MimeType string
	Size     int64
	Content  io.Reader
}

// AccessMeta describes the request reading a file, for the audit trail.
type AccessMeta struct {
	Action    string
	IPAddress string
	UserAgent string
}

// FileAccessOutput is an open stored object plus what a response needs to
// serve it. Callers must close Object.
type FileAccessOutput struct {
	File         models.File
	Object       *storage.Object
	ContentType  string
	DownloadName string
}

type ThumbnailOutput struct {
	File    models.File
	Content []byte
}

type FileService interface {
	UploadFile(ctx context.Context, owner Identity, in UploadFileInput) (models.File, error)
	RenameFile(ctx context.Context, owner Identity, fileID uint, name string) (models.File, error)
	DeleteFile(ctx context.Context, owner Identity, fileID uint) error
	OpenFile(ctx context.Context, viewer Identity, fileID uint, meta AccessMeta) (FileAccessOutput, error)
	GetThumbnail(ctx context.Context, viewer Identity, fileID uint, meta AccessMeta) (ThumbnailOutput, error)
}

type fileService struct {
	folders    repositories.FolderRepository
	files      repositories.FileRepository
	audit      repositories.AuditRepository
	store      storage.Backend
	thumbnails ThumbnailService
	guard      subtreeGuard
	resolver   folderResolver
}

func NewFileService(
	folders repositories.FolderRepository,
	files repositories.FileRepository,
	audit repositories.AuditRepository,
	store storage.Backend,
	thumbnails ThumbnailService,
	locker repositories.SubtreeLocker,
	lockWait time.Duration,
) FileService {
	return &fileService{
		folders:    folders,
		files:      files,
		audit:      audit,
		store:      store,
		thumbnails: thumbnails,
		guard:      subtreeGuard{locker: locker, wait: lockWait},
		resolver:   folderResolver{folders: folders},
	}
}

func (s *fileService) UploadFile(ctx context.Context, owner Identity, in UploadFileInput) (models.File, error) {
	name, err := normalizeName("file_name", baseName(in.FileName))
	if err != nil {
		return models.File{}, err
	}
	if in.Content == nil {
		return models.File{}, errValidation("file is required", nil)
	}
	limit := s.store.MaxObjectSize()
	if limit > 0 && in.Size > limit {
		return models.File{}, errTooLarge(limit)
	}

	var folder *models.Folder
	keys := func() ([]string, error) {
		folder = nil
		if in.FolderID != nil {
			f, err := s.folders.GetByIDAndUser(ctx, nil, *in.FolderID, owner.UserID)
			if err != nil {
				if isNotFound(err) {
					return nil, errValidation("folder not found", nil)
				}
				return nil, errOperationFailed("failed to query folder", err)
			}
			folder = &f
		}
		key, err := s.resolver.scopeKey(ctx, nil, owner.UserID, folder)
		if err != nil {
			return nil, errOperationFailed("failed to resolve folder", err)
		}
		return []string{key}, nil
	}

	var file models.File
	err = s.guard.run(ctx, keys, func() error {
		dir := userRootPath(owner.DisplayName)
		if folder != nil {
			dir = folder.Path
		}
		if err := s.store.EnsureDirectory(ctx, dir); err != nil {
			return storageError("failed to prepare folder directory", err, limit)
		}

		filePath := resolveFilePath(folder, owner.DisplayName, newUploadBasename(name))
		written, err := s.store.WriteUploadedObject(ctx, filePath, in.Content, in.Size)
		if err != nil {
			return storageError("failed to store file", err, limit)
		}

		file = models.File{
			UserID:   owner.UserID,
			FolderID: in.FolderID,
			FileName: name,
			FilePath: filePath,
			FileType: detectMimeType(in.MimeType, name),
			FileSize: written,
		}
		if err := s.files.Create(ctx, nil, &file); err != nil {
			if delErr := s.store.DeleteFile(ctx, filePath); delErr != nil {
				logger.Errorw("orphaned stored file after failed insert", "path", filePath, "error", delErr)
			}
			return errOperationFailed("failed to save file record", err)
		}
		return nil
	})
	if err != nil {
		return models.File{}, err
	}

	logger.Infow("file uploaded", "user_id", owner.UserID, "file_id", file.ID, "path", file.FilePath, "size", file.FileSize)
	return file, nil
}

// ownedFileKeys loads the caller's file and the lock covering its folder.
func (s *fileService) ownedFileKeys(ctx context.Context, owner Identity, fileID uint, file *models.File) func() ([]string, error) {
	return func() ([]string, error) {
		f, err := s.files.GetByIDAndUser(ctx, nil, fileID, owner.UserID)
		if err != nil {
			if isNotFound(err) {
				return nil, errNotFound("file not found")
			}
			return nil, errOperationFailed("failed to query file", err)
		}
		*file = f

		var folder *models.Folder
		if f.FolderID != nil {
			parent, err := s.folders.GetByIDAndUser(ctx, nil, *f.FolderID, owner.UserID)
			if err != nil {
				return nil, errOperationFailed("failed to query folder", err)
			}
			folder = &parent
		}
		key, err := s.resolver.scopeKey(ctx, nil, owner.UserID, folder)
		if err != nil {
			return nil, errOperationFailed("failed to resolve folder", err)
		}
		return []string{key}, nil
	}
}

func (s *fileService) RenameFile(ctx context.Context, owner Identity, fileID uint, name string) (models.File, error) {
	name, err := normalizeName("file_name", name)
	if err != nil {
		return models.File{}, err
	}

	var (
		file    models.File
		oldPath string
	)
	err = s.guard.run(ctx, s.ownedFileKeys(ctx, owner, fileID, &file), func() error {
		displayName, basename := renameTarget(name, file.FilePath)
		newPath := path.Join(path.Dir(file.FilePath), basename)

		if err := s.store.Move(ctx, file.FilePath, newPath); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return errOperationFailed("stored file is missing", err)
			}
			return storageError("failed to move stored file", err, s.store.MaxObjectSize())
		}

		updates := map[string]interface{}{"file_name": displayName, "file_path": newPath}
		if err := s.files.UpdateByID(ctx, nil, file.ID, updates); err != nil {
			if undoErr := s.store.Move(ctx, newPath, file.FilePath); undoErr != nil {
				logger.Errorw("failed to restore stored file after database error",
					"file_id", file.ID, "from", newPath, "to", file.FilePath, "error", undoErr)
			}
			return errOperationFailed("failed to rename file", err)
		}
		oldPath = file.FilePath
		file.FileName = displayName
		file.FilePath = newPath
		return nil
	})
	if err != nil {
		return models.File{}, err
	}

	logger.Infow("file renamed", "user_id", owner.UserID, "file_id", file.ID, "from", oldPath, "to", file.FilePath)
	return file, nil
}

func (s *fileService) DeleteFile(ctx context.Context, owner Identity, fileID uint) error {
	var file models.File
	err := s.guard.run(ctx, s.ownedFileKeys(ctx, owner, fileID, &file), func() error {
		if err := s.store.DeleteFile(ctx, file.FilePath); err != nil {
			if !errors.Is(err, storage.ErrNotFound) {
				return errOperationFailed("failed to delete stored file", err)
			}
			logger.Warnw("stored file already missing", "file_id", file.ID, "path", file.FilePath)
		}
		if err := s.files.DeleteByID(ctx, nil, file.ID); err != nil {
			return errOperationFailed("failed to delete file record", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	logger.Infow("file deleted", "user_id", owner.UserID, "file_id", fileID)
	return nil
}

// readableFile returns a file the viewer may read: their own, or any file
// when the viewer is a principal.
func (s *fileService) readableFile(ctx context.Context, viewer Identity, fileID uint) (models.File, error) {
	file, err := s.files.GetByID(ctx, nil, fileID)
	if err != nil {
		if isNotFound(err) {
			return models.File{}, errNotFound("file not found")
		}
		return models.File{}, errOperationFailed("failed to query file", err)
	}
	if file.UserID != viewer.UserID && !viewer.IsPrincipal() {
		return models.File{}, errNotFound("file not found")
	}
	return file, nil
}

func (s *fileService) openObject(ctx context.Context, file models.File) (*storage.Object, error) {
	obj, err := s.store.OpenForRead(ctx, file.FilePath)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			logger.Warnw("file record points at a missing object", "file_id", file.ID, "path", file.FilePath)
			return nil, errNotFound("file content not found")
		}
		return nil, errOperationFailed("failed to open file", err)
	}
	return obj, nil
}

func (s *fileService) recordAccess(ctx context.Context, viewer Identity, file models.File, meta AccessMeta) {
	if file.UserID == viewer.UserID {
		return
	}
	entry := models.FileAccessLog{
		FileID:    file.ID,
		OwnerID:   file.UserID,
		ActorID:   viewer.UserID,
		Action:    meta.Action,
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
		FileSize:  file.FileSize,
	}
	if err := s.audit.CreateFileAccess(ctx, nil, &entry); err != nil {
		logger.Warnw("failed to record file access", "file_id", file.ID, "actor_id", viewer.UserID, "error", err)
	}
}

func (s *fileService) OpenFile(ctx context.Context, viewer Identity, fileID uint, meta AccessMeta) (FileAccessOutput, error) {
	file, err := s.readableFile(ctx, viewer, fileID)
	if err != nil {
		return FileAccessOutput{}, err
	}
	obj, err := s.openObject(ctx, file)
	if err != nil {
		return FileAccessOutput{}, err
	}
	s.recordAccess(ctx, viewer, file, meta)

	return FileAccessOutput{
		File:         file,
		Object:       obj,
		ContentType:  detectMimeType(file.FileType, file.FileName),
		DownloadName: file.FileName,
	}, nil
}

func (s *fileService) GetThumbnail(ctx context.Context, viewer Identity, fileID uint, meta AccessMeta) (ThumbnailOutput, error) {
	file, err := s.readableFile(ctx, viewer, fileID)
	if err != nil {
		return ThumbnailOutput{}, err
	}
	if !IsImageFile(file.FileName, file.FileType) {
		return ThumbnailOutput{}, errValidation("file is not an image", nil)
	}
	obj, err := s.openObject(ctx, file)
	if err != nil {
		return ThumbnailOutput{}, err
	}
	defer obj.Close()

	var buf bytes.Buffer
	if err := s.thumbnails.Generate(obj, &buf); err != nil {
		return ThumbnailOutput{}, errValidation("failed to decode image", err)
	}
	s.recordAccess(ctx, viewer, file, meta)
	return ThumbnailOutput{File: file, Content: buf.Bytes()}, nil
}
