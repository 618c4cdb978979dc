package services

import (
	"context"
	"strings"
	"time"

	"filerepo/config"
	"filerepo/models"
	"filerepo/repositories"
	"filerepo/storage"
)

type FileNode struct {
	ID           uint      `json:"id"`
	FolderID     *uint     `json:"folder_id"`
	FileName     string    `json:"file_name"`
	FilePath     string    `json:"file_path"`
	FileType     string    `json:"file_type"`
	FileSize     int64     `json:"file_size"`
	IsArchived   bool      `json:"is_archived"`
	FileURL      string    `json:"file_url"`
	UserFullName string    `json:"user_full_name,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type FolderNode struct {
	ID           uint         `json:"id"`
	FolderName   string       `json:"folder_name"`
	ParentID     *uint        `json:"parent_id"`
	Path         string       `json:"path"`
	IsArchived   bool         `json:"is_archived"`
	FolderURL    string       `json:"folder_url"`
	UserFullName string       `json:"user_full_name,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
	Children     []FolderNode `json:"children"`
	Files        []FileNode   `json:"files"`
}

// RepositoryTree is one owner's folders nested by parent, plus files kept at
// the top level.
type RepositoryTree struct {
	Folders []FolderNode `json:"folders"`
	Files   []FileNode   `json:"files"`
}

type OwnerRepository struct {
	UserID       uint   `json:"user_id"`
	UserFullName string `json:"user_full_name"`
	RepositoryTree
}

type AllRepositoriesQuery struct {
	Search  string
	Cursor  uint
	PerPage int
}

type AllRepositoriesOutput struct {
	Repositories []OwnerRepository `json:"repositories"`
	PerPage      int               `json:"per_page"`
	NextCursor   *uint             `json:"next_cursor"`
}

type RepositoryService interface {
	ListMyRepository(ctx context.Context, owner Identity) (RepositoryTree, error)
	ListAllRepositories(ctx context.Context, viewer Identity, in AllRepositoriesQuery) (AllRepositoriesOutput, error)
	// DescribeFolder and DescribeFile annotate a single record with its locator.
	DescribeFolder(f models.Folder) FolderNode
	DescribeFile(f models.File) FileNode
}

type repositoryService struct {
	users      repositories.UserRepository
	folders    repositories.FolderRepository
	files      repositories.FileRepository
	store      storage.Backend
	pagination config.PaginationConfig
}

func NewRepositoryService(
	users repositories.UserRepository,
	folders repositories.FolderRepository,
	files repositories.FileRepository,
	store storage.Backend,
	pagination config.PaginationConfig,
) RepositoryService {
	return &repositoryService{users: users, folders: folders, files: files, store: store, pagination: pagination}
}

func (s *repositoryService) ListMyRepository(ctx context.Context, owner Identity) (RepositoryTree, error) {
	folders, err := s.folders.ListByUser(ctx, nil, owner.UserID)
	if err != nil {
		return RepositoryTree{}, errOperationFailed("failed to list folders", err)
	}
	files, err := s.files.ListByUser(ctx, nil, owner.UserID)
	if err != nil {
		return RepositoryTree{}, errOperationFailed("failed to list files", err)
	}
	return s.buildTree(folders, files, ""), nil
}

func (s *repositoryService) ListAllRepositories(ctx context.Context, viewer Identity, in AllRepositoriesQuery) (AllRepositoriesOutput, error) {
	if !viewer.IsPrincipal() {
		return AllRepositoriesOutput{}, errForbidden("principal access required")
	}

	perPage := in.PerPage
	if perPage <= 0 {
		perPage = s.pagination.DefaultPageSize
	}
	if s.pagination.MaxPageSize > 0 && perPage > s.pagination.MaxPageSize {
		perPage = s.pagination.MaxPageSize
	}
	search := strings.TrimSpace(in.Search)

	owners, err := s.users.ListForRepositoryView(ctx, nil, repositories.RepositoryViewQuery{
		Search:  search,
		AfterID: in.Cursor,
		Limit:   perPage + 1,
	})
	if err != nil {
		return AllRepositoriesOutput{}, errOperationFailed("failed to list users", err)
	}

	out := AllRepositoriesOutput{Repositories: []OwnerRepository{}, PerPage: perPage}
	if len(owners) > perPage {
		owners = owners[:perPage]
		next := owners[len(owners)-1].ID
		out.NextCursor = &next
	}
	if len(owners) == 0 {
		return out, nil
	}

	ids := make([]uint, 0, len(owners))
	for _, u := range owners {
		ids = append(ids, u.ID)
	}
	folders, err := s.folders.ListByUserIDs(ctx, nil, ids)
	if err != nil {
		return AllRepositoriesOutput{}, errOperationFailed("failed to list folders", err)
	}
	files, err := s.files.ListByUserIDs(ctx, nil, ids)
	if err != nil {
		return AllRepositoriesOutput{}, errOperationFailed("failed to list files", err)
	}

	foldersByUser := map[uint][]models.Folder{}
	for _, f := range folders {
		foldersByUser[f.UserID] = append(foldersByUser[f.UserID], f)
	}
	filesByUser := map[uint][]models.File{}
	for _, f := range files {
		filesByUser[f.UserID] = append(filesByUser[f.UserID], f)
	}

	for _, u := range owners {
		tree := s.buildTree(foldersByUser[u.ID], filesByUser[u.ID], u.FullName)
		if search != "" && !containsFold(u.FullName, search) {
			tree = pruneTree(tree, search)
		}
		out.Repositories = append(out.Repositories, OwnerRepository{
			UserID:         u.ID,
			UserFullName:   u.FullName,
			RepositoryTree: tree,
		})
	}
	return out, nil
}

// buildTree nests folders under their parents in input order. A folder whose
// parent is not in the set is shown at the top level, and so is a file whose
// folder is missing.
func (s *repositoryService) buildTree(folders []models.Folder, files []models.File, ownerName string) RepositoryTree {
	known := make(map[uint]bool, len(folders))
	for _, f := range folders {
		known[f.ID] = true
	}

	filesByFolder := map[uint][]FileNode{}
	tree := RepositoryTree{Folders: []FolderNode{}, Files: []FileNode{}}
	for _, f := range files {
		node := s.fileNode(f, ownerName)
		if f.FolderID != nil && known[*f.FolderID] {
			filesByFolder[*f.FolderID] = append(filesByFolder[*f.FolderID], node)
			continue
		}
		tree.Files = append(tree.Files, node)
	}

	children := map[uint][]models.Folder{}
	var roots []models.Folder
	for _, f := range folders {
		if f.ParentID != nil && known[*f.ParentID] && *f.ParentID != f.ID {
			children[*f.ParentID] = append(children[*f.ParentID], f)
			continue
		}
		roots = append(roots, f)
	}

	visited := map[uint]bool{}
	var build func(f models.Folder) FolderNode
	build = func(f models.Folder) FolderNode {
		visited[f.ID] = true
		node := s.folderNode(f, ownerName)
		node.Files = append(node.Files, filesByFolder[f.ID]...)
		for _, child := range children[f.ID] {
			if !visited[child.ID] {
				node.Children = append(node.Children, build(child))
			}
		}
		return node
	}
	for _, root := range roots {
		tree.Folders = append(tree.Folders, build(root))
	}
	// Folders caught in a parent cycle have no root; surface them anyway.
	for _, f := range folders {
		if !visited[f.ID] {
			tree.Folders = append(tree.Folders, build(f))
		}
	}
	return tree
}

func (s *repositoryService) DescribeFolder(f models.Folder) FolderNode {
	return s.folderNode(f, "")
}

func (s *repositoryService) DescribeFile(f models.File) FileNode {
	return s.fileNode(f, "")
}

func (s *repositoryService) folderNode(f models.Folder, ownerName string) FolderNode {
	return FolderNode{
		ID:           f.ID,
		FolderName:   f.FolderName,
		ParentID:     f.ParentID,
		Path:         f.Path,
		IsArchived:   f.IsArchived,
		FolderURL:    s.store.PublicLocator(f.Path),
		UserFullName: ownerName,
		CreatedAt:    f.CreatedAt,
		UpdatedAt:    f.UpdatedAt,
		Children:     []FolderNode{},
		Files:        []FileNode{},
	}
}

func (s *repositoryService) fileNode(f models.File, ownerName string) FileNode {
	return FileNode{
		ID:           f.ID,
		FolderID:     f.FolderID,
		FileName:     f.FileName,
		FilePath:     f.FilePath,
		FileType:     f.FileType,
		FileSize:     f.FileSize,
		IsArchived:   f.IsArchived,
		FileURL:      s.store.PublicLocator(f.FilePath),
		UserFullName: ownerName,
		CreatedAt:    f.CreatedAt,
		UpdatedAt:    f.UpdatedAt,
	}
}

// pruneTree keeps matching nodes and the folders leading to them. A matching
// folder keeps its whole subtree.
func pruneTree(tree RepositoryTree, search string) RepositoryTree {
	out := RepositoryTree{Folders: []FolderNode{}, Files: []FileNode{}}
	for _, f := range tree.Files {
		if containsFold(f.FileName, search) {
			out.Files = append(out.Files, f)
		}
	}
	for _, folder := range tree.Folders {
		if pruned, ok := pruneFolder(folder, search); ok {
			out.Folders = append(out.Folders, pruned)
		}
	}
	return out
}

func pruneFolder(node FolderNode, search string) (FolderNode, bool) {
	if containsFold(node.FolderName, search) {
		return node, true
	}
	kept := node
	kept.Children = []FolderNode{}
	kept.Files = []FileNode{}
	for _, f := range node.Files {
		if containsFold(f.FileName, search) {
			kept.Files = append(kept.Files, f)
		}
	}
	for _, child := range node.Children {
		if pruned, ok := pruneFolder(child, search); ok {
			kept.Children = append(kept.Children, pruned)
		}
	}
	return kept, len(kept.Files) > 0 || len(kept.Children) > 0
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
