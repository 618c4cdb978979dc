package services

import (
	"mime"
	"path"
	"strings"

	"github.com/google/uuid"
)

const maxExtensionLength = 16

// baseName strips any client-side directory, whichever separator it used.
func baseName(name string) string {
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		return name[i+1:]
	}
	return name
}

// fileExtension returns the extension of name when it is short and alphanumeric.
func fileExtension(name string) string {
	ext := path.Ext(name)
	if len(ext) < 2 || len(ext) > maxExtensionLength || ext == name {
		return ""
	}
	for _, r := range ext[1:] {
		if !(r >= 'a' && r <= 'z') && !(r >= 'A' && r <= 'Z') && !(r >= '0' && r <= '9') {
			return ""
		}
	}
	return ext
}

func sanitizeFileName(name string) string {
	base := baseName(name)
	ext := fileExtension(base)
	return Sanitize(strings.TrimSuffix(base, ext)) + ext
}

// newUploadBasename prefixes a fresh token so identical names never collide.
func newUploadBasename(originalName string) string {
	return uuid.NewString() + "_" + sanitizeFileName(originalName)
}

// renameTarget keeps the stored extension. It returns the display name to
// persist and a fresh basename for the object.
func renameTarget(newName string, currentPath string) (string, string) {
	ext := fileExtension(path.Base(currentPath))
	stem := newName
	displayName := newName
	if ext != "" {
		if strings.EqualFold(path.Ext(newName), ext) {
			stem = newName[:len(newName)-len(ext)]
		} else {
			displayName = newName + ext
		}
	}
	return displayName, uuid.NewString() + "_" + Sanitize(stem) + ext
}

// detectMimeType prefers the client's declaration and falls back to the extension.
func detectMimeType(declared string, fileName string) string {
	if declared = strings.TrimSpace(declared); declared != "" && declared != "application/octet-stream" {
		return declared
	}
	if byExt := mime.TypeByExtension(strings.ToLower(fileExtension(baseName(fileName)))); byExt != "" {
		return byExt
	}
	if declared != "" {
		return declared
	}
	return "application/octet-stream"
}
