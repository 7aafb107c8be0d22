package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/sitebuilder/internal/providers/storage"
	"go.uber.org/zap"
)

// Upload stores an admin asset as "{unixMillis}-{sanitized name}".
func (s *Server) Upload(c *gin.Context) {
	maxUpload := s.storefront.Get().MaxUploadBytes
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUpload+multipartOverhead)

	header, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			AbortWithError(c, newValidationError("file", "file_too_large", "file is too large"))
			return
		}
		AbortWithError(c, newValidationError("file", "required", "file is required"))
		return
	}
	if header.Size > maxUpload {
		AbortWithError(c, newValidationError("file", "file_too_large", "file is too large"))
		return
	}

	file, err := header.Open()
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	defer file.Close()

	name := fmt.Sprintf("%d-%s", s.clock.Now().UnixMilli(), storage.Sanitize(header.Filename))
	url, err := s.storage.Put(c.Request.Context(), storage.UploadsPrefix+"/"+name, header.Header.Get("Content-Type"), file, header.Size)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.log.Info("file uploaded", zap.String("url", url), zap.Int64("size", header.Size))
	c.JSON(http.StatusCreated, gin.H{"url": url})
}
