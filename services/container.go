package services

import (
	"time"

	"filerepo/config"
	"filerepo/repositories"
	"filerepo/storage"
)

type Container struct {
	Auth       AuthService
	User       UserService
	Folder     FolderService
	File       FileService
	Repository RepositoryService
	Thumbnail  ThumbnailService
	Cleanup    CleanupService
}

func NewContainer(repos repositories.Container, store storage.Backend, cfg *config.Config) *Container {
	lockWait := time.Duration(cfg.Lock.WaitSeconds) * time.Second
	thumbnails := NewThumbnailService(cfg.Thumbnail)

	container := &Container{
		Auth:       NewAuthService(repos.Users),
		User:       NewUserService(repos.TxManager, repos.Users, repos.Audit),
		Folder:     NewFolderService(repos.TxManager, repos.Folders, repos.Files, store, repos.Locker, lockWait),
		File:       NewFileService(repos.Folders, repos.Files, repos.Audit, store, thumbnails, repos.Locker, lockWait),
		Repository: NewRepositoryService(repos.Users, repos.Folders, repos.Files, store, cfg.Pagination),
		Thumbnail:  thumbnails,
		Cleanup:    NewCleanupService(store, time.Duration(cfg.Storage.TempRetention)*time.Second),
	}
	SetCleanupService(container.Cleanup)
	return container
}
