package httpapi

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"

	"github.com/dmitrijs2005/selva/internal/common"
	"github.com/dmitrijs2005/selva/internal/server/forms"
	"github.com/gin-gonic/gin"
)

// readParts decodes a multipart body into parts, keeping submission order.
// A part is a file part when its Content-Disposition has a filename
// parameter, even an empty one.
func (s *Server) readParts(c *gin.Context) ([]forms.Part, error) {
	if s.maxUploadSize > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.maxUploadSize)
	}

	mr, err := c.Request.MultipartReader()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorMalformedInput, err)
	}

	var parts []forms.Part
	for {
		p, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return parts, nil
		}
		if err != nil {
			return nil, multipartError(err)
		}

		content, err := io.ReadAll(p)
		if err != nil {
			return nil, multipartError(err)
		}

		part := forms.Part{Name: p.FormName(), Content: content}
		if _, params, err := mime.ParseMediaType(p.Header.Get("Content-Disposition")); err == nil {
			if _, ok := params["filename"]; ok {
				part.IsFile = true
				part.FileName = p.FileName()
			}
		}
		_ = p.Close()

		if part.Name == "" {
			continue
		}
		parts = append(parts, part)
	}
}

func multipartError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return err
	}
	return fmt.Errorf("%w: %v", common.ErrorMalformedInput, err)
}
