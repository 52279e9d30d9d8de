package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/oksasatya/go-media-identity/internal/domain/entity"
	"github.com/oksasatya/go-media-identity/pkg/apperr"
)

// Uploads stages multipart files on local disk before they reach the services.
type Uploads struct {
	Dir     string
	MaxSize int64
}

// Stage saves the file in field under Dir. A missing field yields nil.
func (u Uploads) Stage(c *gin.Context, field string) (*entity.StagedFile, error) {
	fh, err := c.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.BadRequest("invalid multipart form")
	}
	if u.MaxSize > 0 && fh.Size > u.MaxSize {
		return nil, apperr.BadRequest(fmt.Sprintf("%s exceeds the %d MB limit", field, u.MaxSize>>20))
	}
	if err := os.MkdirAll(u.Dir, 0o750); err != nil {
		return nil, apperr.Internal("", err)
	}

	dst := filepath.Join(u.Dir, uuid.NewString()+strings.ToLower(filepath.Ext(fh.Filename)))
	if err := c.SaveUploadedFile(fh, dst); err != nil {
		return nil, apperr.Internal("", err)
	}
	return &entity.StagedFile{
		Path:        dst,
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
	}, nil
}

func discard(files ...*entity.StagedFile) {
	for _, f := range files {
		if f != nil {
			_ = os.Remove(f.Path)
		}
	}
}
