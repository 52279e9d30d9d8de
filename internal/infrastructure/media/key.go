package media

import (
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ObjectKey returns folder/<uuid><ext> with the extension lowercased.
func ObjectKey(folder, filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	folder = strings.Trim(folder, "/")
	if folder == "" {
		return uuid.NewString() + ext
	}
	return folder + "/" + uuid.NewString() + ext
}

func contentTypeOr(ct string) string {
	if ct == "" {
		return "application/octet-stream"
	}
	return ct
}
