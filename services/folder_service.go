package services

import (
	"context"
	"errors"
	"time"

	"filerepo/logger"
	"filerepo/models"
	"filerepo/repositories"
	"filerepo/storage"

	"gorm.io/gorm"
)

type CreateFolderInput struct {
	Name     string
	ParentID *uint
}

// UpdateFolderInput renames a folder and optionally moves it. ParentID is only
// applied when Reparent is set; a nil ParentID then means top level.
type UpdateFolderInput struct {
	Name     string
	Reparent bool
	ParentID *uint
}

type FolderService interface {
	CreateFolder(ctx context.Context, owner Identity, in CreateFolderInput) (models.Folder, error)
	UpdateFolder(ctx context.Context, owner Identity, folderID uint, in UpdateFolderInput) (models.Folder, error)
	DeleteFolder(ctx context.Context, owner Identity, folderID uint) error
}

type folderService struct {
	txManager TxManager
	folders   repositories.FolderRepository
	files     repositories.FileRepository
	store     storage.Backend
	guard     subtreeGuard
	resolver  folderResolver
}

func NewFolderService(
	txManager TxManager,
	folders repositories.FolderRepository,
	files repositories.FileRepository,
	store storage.Backend,
	locker repositories.SubtreeLocker,
	lockWait time.Duration,
) FolderService {
	return &folderService{
		txManager: txManager,
		folders:   folders,
		files:     files,
		store:     store,
		guard:     subtreeGuard{locker: locker, wait: lockWait},
		resolver:  folderResolver{folders: folders},
	}
}

// loadParent fetches an owned parent folder. A parent the caller does not own
// is a bad request rather than a missing resource.
func (s *folderService) loadParent(ctx context.Context, userID uint, parentID *uint) (*models.Folder, error) {
	if parentID == nil {
		return nil, nil
	}
	parent, err := s.folders.GetByIDAndUser(ctx, nil, *parentID, userID)
	if err != nil {
		if isNotFound(err) {
			return nil, errValidation("parent folder not found", nil)
		}
		return nil, errOperationFailed("failed to query parent folder", err)
	}
	return &parent, nil
}

func (s *folderService) CreateFolder(ctx context.Context, owner Identity, in CreateFolderInput) (models.Folder, error) {
	name, err := normalizeName("folder_name", in.Name)
	if err != nil {
		return models.Folder{}, err
	}

	var parent *models.Folder
	keys := func() ([]string, error) {
		parent, err = s.loadParent(ctx, owner.UserID, in.ParentID)
		if err != nil {
			return nil, err
		}
		key, err := s.resolver.scopeKey(ctx, nil, owner.UserID, parent)
		if err != nil {
			return nil, errOperationFailed("failed to resolve parent folder", err)
		}
		return []string{key, repositories.NamespaceKey(userRootPath(owner.DisplayName))}, nil
	}

	var folder models.Folder
	err = s.guard.run(ctx, keys, func() error {
		folderPath := resolveFolderPath(parent, owner.DisplayName, name)
		count, err := s.folders.CountByPath(ctx, nil, folderPath, 0)
		if err != nil {
			return errOperationFailed("failed to check folder path", err)
		}
		if count > 0 {
			return errConflict("a folder with the same name already exists here", nil)
		}

		folder = models.Folder{
			UserID:     owner.UserID,
			FolderName: name,
			ParentID:   in.ParentID,
			Path:       folderPath,
		}
		if err := s.folders.Create(ctx, nil, &folder); err != nil {
			return errOperationFailed("failed to create folder", err)
		}

		if err := s.store.EnsureDirectory(ctx, folderPath); err != nil {
			if delErr := s.folders.DeleteByID(ctx, nil, folder.ID); delErr != nil {
				logger.Errorw("folder row left without directory",
					"folder_id", folder.ID, "path", folderPath, "error", delErr)
			}
			return storageError("failed to create folder directory", err, s.store.MaxObjectSize())
		}
		return nil
	})
	if err != nil {
		return models.Folder{}, err
	}

	logger.Infow("folder created", "user_id", owner.UserID, "folder_id", folder.ID, "path", folder.Path)
	return folder, nil
}

func (s *folderService) UpdateFolder(ctx context.Context, owner Identity, folderID uint, in UpdateFolderInput) (models.Folder, error) {
	name, err := normalizeName("folder_name", in.Name)
	if err != nil {
		return models.Folder{}, err
	}

	var (
		folder    models.Folder
		newParent *models.Folder
	)
	keys := func() ([]string, error) {
		folder, err = s.folders.GetByIDAndUser(ctx, nil, folderID, owner.UserID)
		if err != nil {
			if isNotFound(err) {
				return nil, errNotFound("folder not found")
			}
			return nil, errOperationFailed("failed to query folder", err)
		}
		oldKey, err := s.resolver.scopeKey(ctx, nil, owner.UserID, &folder)
		if err != nil {
			return nil, errOperationFailed("failed to resolve folder", err)
		}
		out := []string{oldKey, repositories.NamespaceKey(userRootPath(owner.DisplayName))}
		if folder.ParentID == nil {
			out = append(out, repositories.SubtreeKey(owner.UserID, 0))
		}

		newParent = nil
		if !in.Reparent {
			if folder.ParentID != nil {
				parent, err := s.folders.GetByIDAndUser(ctx, nil, *folder.ParentID, owner.UserID)
				if err != nil {
					return nil, errOperationFailed("failed to query parent folder", err)
				}
				newParent = &parent
			}
			return out, nil
		}

		if in.ParentID == nil {
			return append(out,
				repositories.SubtreeKey(owner.UserID, 0),
				repositories.SubtreeKey(owner.UserID, folder.ID),
			), nil
		}
		newParent, err = s.loadParent(ctx, owner.UserID, in.ParentID)
		if err != nil {
			return nil, err
		}
		chain, err := s.resolver.ancestry(ctx, nil, *newParent)
		if err != nil {
			return nil, errOperationFailed("failed to resolve target folder", err)
		}
		for _, ancestor := range chain {
			if ancestor.ID == folder.ID {
				return nil, errValidation("cannot move a folder into itself or one of its subfolders", nil)
			}
		}
		return append(out, repositories.SubtreeKey(owner.UserID, chain[len(chain)-1].ID)), nil
	}

	err = s.guard.run(ctx, keys, func() error {
		oldPath := folder.Path
		newPath := resolveFolderPath(newParent, owner.DisplayName, name)

		var parentID *uint
		if newParent != nil {
			parentID = &newParent.ID
		}
		updates := map[string]interface{}{
			"folder_name": name,
			"parent_id":   parentID,
			"path":        newPath,
		}

		if newPath == oldPath {
			if err := s.folders.UpdateByID(ctx, nil, folder.ID, updates); err != nil {
				return errOperationFailed("failed to update folder", err)
			}
			folder.FolderName = name
			folder.ParentID = parentID
			return nil
		}

		count, err := s.folders.CountByPath(ctx, nil, newPath, folder.ID)
		if err != nil {
			return errOperationFailed("failed to check folder path", err)
		}
		if count > 0 {
			return errConflict("a folder with the same name already exists here", nil)
		}

		moved, err := s.relocateDirectory(ctx, oldPath, newPath)
		if err != nil {
			return err
		}

		err = s.txManager.WithTransaction(ctx, func(tx *gorm.DB) error {
			if err := s.folders.UpdateByID(ctx, tx, folder.ID, updates); err != nil {
				return err
			}
			return s.rebaseSubtree(ctx, tx, owner.UserID, folder.ID, oldPath, newPath)
		})
		if err != nil {
			if moved {
				if undoErr := s.store.Move(ctx, newPath, oldPath); undoErr != nil {
					logger.Errorw("failed to restore folder directory after database error",
						"folder_id", folder.ID, "from", newPath, "to", oldPath, "error", undoErr)
				}
			}
			return errOperationFailed("failed to update folder", err)
		}

		folder.FolderName = name
		folder.ParentID = parentID
		folder.Path = newPath
		return nil
	})
	if err != nil {
		return models.Folder{}, err
	}

	logger.Infow("folder updated", "user_id", owner.UserID, "folder_id", folder.ID, "path", folder.Path)
	return folder, nil
}

// relocateDirectory moves the folder's directory and reports whether anything
// was moved. A directory that never got created is recreated at the new path.
func (s *folderService) relocateDirectory(ctx context.Context, oldPath, newPath string) (bool, error) {
	limit := s.store.MaxObjectSize()
	exists, err := s.store.Exists(ctx, oldPath)
	if err != nil {
		return false, storageError("failed to inspect folder directory", err, limit)
	}
	if !exists {
		logger.Warnw("folder directory missing, recreating at new path", "old_path", oldPath, "new_path", newPath)
		if err := s.store.EnsureDirectory(ctx, newPath); err != nil {
			return false, storageError("failed to create folder directory", err, limit)
		}
		return false, nil
	}
	if err := s.store.Move(ctx, oldPath, newPath); err != nil {
		return false, storageError("failed to move folder directory", err, limit)
	}
	return true, nil
}

// rebaseSubtree rewrites the stored paths of every descendant folder and file.
func (s *folderService) rebaseSubtree(ctx context.Context, tx *gorm.DB, userID, folderID uint, oldPath, newPath string) error {
	folders, err := s.folders.ListByUser(ctx, tx, userID)
	if err != nil {
		return err
	}
	inSubtree := descendantIDs(folders, folderID)

	for _, f := range folders {
		if f.ID == folderID || !inSubtree[f.ID] {
			continue
		}
		if rebased, ok := rebase(f.Path, oldPath, newPath); ok {
			if err := s.folders.UpdateByID(ctx, tx, f.ID, map[string]interface{}{"path": rebased}); err != nil {
				return err
			}
		}
	}

	files, err := s.files.ListByUser(ctx, tx, userID)
	if err != nil {
		return err
	}
	for _, f := range files {
		if f.FolderID == nil || !inSubtree[*f.FolderID] {
			continue
		}
		if rebased, ok := rebase(f.FilePath, oldPath, newPath); ok {
			if err := s.files.UpdateByID(ctx, tx, f.ID, map[string]interface{}{"file_path": rebased}); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *folderService) DeleteFolder(ctx context.Context, owner Identity, folderID uint) error {
	var folder models.Folder
	keys := func() ([]string, error) {
		var err error
		folder, err = s.folders.GetByIDAndUser(ctx, nil, folderID, owner.UserID)
		if err != nil {
			if isNotFound(err) {
				return nil, errNotFound("folder not found")
			}
			return nil, errOperationFailed("failed to query folder", err)
		}
		key, err := s.resolver.scopeKey(ctx, nil, owner.UserID, &folder)
		if err != nil {
			return nil, errOperationFailed("failed to resolve folder", err)
		}
		if folder.ParentID == nil {
			return []string{key, repositories.SubtreeKey(owner.UserID, 0)}, nil
		}
		return []string{key}, nil
	}

	var removed deleteTally
	err := s.guard.run(ctx, keys, func() error {
		folders, err := s.folders.ListByUser(ctx, nil, owner.UserID)
		if err != nil {
			return errOperationFailed("failed to list folders", err)
		}
		files, err := s.files.ListByUser(ctx, nil, owner.UserID)
		if err != nil {
			return errOperationFailed("failed to list files", err)
		}

		tree := subtreeSnapshot{
			children: map[uint][]models.Folder{},
			files:    map[uint][]models.File{},
		}
		for _, f := range folders {
			if f.ParentID != nil {
				tree.children[*f.ParentID] = append(tree.children[*f.ParentID], f)
			}
		}
		for _, f := range files {
			if f.FolderID != nil {
				tree.files[*f.FolderID] = append(tree.files[*f.FolderID], f)
			}
		}
		return s.deleteNode(ctx, tree, folder, &removed, map[uint]bool{})
	})
	if err != nil {
		return err
	}

	logger.Infow("folder deleted", "user_id", owner.UserID, "folder_id", folderID,
		"folders", removed.folders, "files", removed.files)
	return nil
}

type subtreeSnapshot struct {
	children map[uint][]models.Folder
	files    map[uint][]models.File
}

type deleteTally struct {
	folders int
	files   int
}

// deleteNode removes a folder bottom-up: children first, then its files
// (object before row), then its directory, then its row. Objects that are
// already gone are skipped; any database failure stops the walk.
func (s *folderService) deleteNode(ctx context.Context, tree subtreeSnapshot, folder models.Folder, tally *deleteTally, visited map[uint]bool) error {
	if visited[folder.ID] {
		return errOperationFailed("failed to delete folder", errFolderCycle)
	}
	visited[folder.ID] = true

	for _, child := range tree.children[folder.ID] {
		if err := s.deleteNode(ctx, tree, child, tally, visited); err != nil {
			return err
		}
	}

	for _, f := range tree.files[folder.ID] {
		if err := s.store.DeleteFile(ctx, f.FilePath); err != nil {
			if !errors.Is(err, storage.ErrNotFound) {
				return errOperationFailed("failed to delete stored file", err)
			}
			logger.Warnw("stored file already missing", "file_id", f.ID, "path", f.FilePath)
		}
		if err := s.files.DeleteByID(ctx, nil, f.ID); err != nil {
			return errOperationFailed("failed to delete file record", err)
		}
		tally.files++
	}

	if err := s.store.DeleteEmptyDirectory(ctx, folder.Path); err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			logger.Warnw("folder directory not removed", "folder_id", folder.ID, "path", folder.Path, "error", err)
		}
	}
	if err := s.folders.DeleteByID(ctx, nil, folder.ID); err != nil {
		return errOperationFailed("failed to delete folder record", err)
	}
	tally.folders++
	return nil
}
