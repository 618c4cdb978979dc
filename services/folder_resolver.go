package services

import (
	"context"
	"errors"
	"path"
	"strings"

	"filerepo/models"
	"filerepo/repositories"

	"gorm.io/gorm"
)

var errFolderCycle = errors.New("folder ancestry contains a cycle")

// Sanitize turns a display name into one storage path segment. Every rune
// outside [A-Za-z0-9_-] becomes '_'; a name with nothing worth keeping becomes "_".
func Sanitize(name string) string {
	kept := false
	out := strings.Map(func(r rune) rune {
		if isSegmentRune(r) {
			kept = true
			return r
		}
		return '_'
	}, name)
	if !kept {
		return "_"
	}
	return out
}

func isSegmentRune(r rune) bool {
	return r == '_' || r == '-' ||
		(r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z') ||
		(r >= '0' && r <= '9')
}

// userRootPath is the storage namespace holding everything a user owns.
func userRootPath(displayName string) string {
	return "user_" + Sanitize(displayName)
}

// resolveFolderPath anchors a folder under its persisted parent path, or under
// the owner's namespace when it has no parent.
func resolveFolderPath(parent *models.Folder, ownerDisplayName string, folderName string) string {
	if parent == nil {
		return userRootPath(ownerDisplayName) + "/" + Sanitize(folderName)
	}
	return strings.TrimRight(parent.Path, "/") + "/" + Sanitize(folderName)
}

// resolveFilePath places a generated basename inside the folder directory, or
// the owner's namespace for root files.
func resolveFilePath(folder *models.Folder, ownerDisplayName string, basename string) string {
	if folder == nil {
		return userRootPath(ownerDisplayName) + "/" + basename
	}
	return path.Join(folder.Path, basename)
}

type folderResolver struct {
	folders repositories.FolderRepository
}

// ancestry returns folder followed by each ancestor up to the top-level folder.
func (r folderResolver) ancestry(ctx context.Context, tx *gorm.DB, folder models.Folder) ([]models.Folder, error) {
	chain := []models.Folder{folder}
	seen := map[uint]bool{folder.ID: true}
	current := folder
	for current.ParentID != nil {
		parent, err := r.folders.GetByIDAndUser(ctx, tx, *current.ParentID, folder.UserID)
		if err != nil {
			return nil, err
		}
		if seen[parent.ID] {
			return nil, errFolderCycle
		}
		seen[parent.ID] = true
		chain = append(chain, parent)
		current = parent
	}
	return chain, nil
}

func (r folderResolver) topLevelID(ctx context.Context, tx *gorm.DB, folder models.Folder) (uint, error) {
	chain, err := r.ancestry(ctx, tx, folder)
	if err != nil {
		return 0, err
	}
	return chain[len(chain)-1].ID, nil
}

// scopeKey is the subtree lock covering folder, or the owner's namespace for nil.
func (r folderResolver) scopeKey(ctx context.Context, tx *gorm.DB, userID uint, folder *models.Folder) (string, error) {
	if folder == nil {
		return repositories.SubtreeKey(userID, 0), nil
	}
	top, err := r.topLevelID(ctx, tx, *folder)
	if err != nil {
		return "", err
	}
	return repositories.SubtreeKey(userID, top), nil
}

// descendantIDs collects rootID and every folder beneath it from a snapshot of
// the owner's folders.
func descendantIDs(all []models.Folder, rootID uint) map[uint]bool {
	children := make(map[uint][]uint, len(all))
	for _, f := range all {
		if f.ParentID != nil {
			children[*f.ParentID] = append(children[*f.ParentID], f.ID)
		}
	}
	out := map[uint]bool{rootID: true}
	queue := []uint{rootID}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, child := range children[id] {
			if !out[child] {
				out[child] = true
				queue = append(queue, child)
			}
		}
	}
	return out
}

// rebase swaps the oldPrefix directory for newPrefix at the front of p.
func rebase(p string, oldPrefix string, newPrefix string) (string, bool) {
	if !strings.HasPrefix(p, oldPrefix+"/") {
		return p, false
	}
	return newPrefix + p[len(oldPrefix):], true
}
