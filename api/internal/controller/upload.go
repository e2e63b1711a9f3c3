package controller

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"camRelay/api/internal/entity"
	"camRelay/api/internal/store"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var errNoData = errors.New("no data")

// uploadFrame accepts either a raw image body (metadata in the query string) or
// a multipart form with the image in the configured file field.
func (r *Server) uploadFrame(ctx *gin.Context) {
	ctx.Request.Body = http.MaxBytesReader(ctx.Writer, ctx.Request.Body, r.cfg.Upload.MaxBytes)

	payload, meta, err := r.readUpload(ctx)
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			ctx.String(http.StatusRequestEntityTooLarge, "too large")
		case errors.Is(err, errNoData):
			ctx.String(http.StatusBadRequest, "no data")
		default:
			r.logger.Warn("read upload failed", zap.Error(err))
			ctx.String(http.StatusBadRequest, "bad upload")
		}
		return
	}

	frame, err := r.store.Publish(payload, meta)
	if err != nil {
		if errors.Is(err, store.ErrEmptyPayload) {
			ctx.String(http.StatusBadRequest, "no data")
			return
		}
		r.logger.Error("publish frame failed", zap.Error(err))
		ctx.String(http.StatusInternalServerError, "error")
		return
	}

	r.dispatcher.Offer(frame)

	r.logger.Debug("frame published",
		zap.Uint64("seq", frame.Sequence),
		zap.Int("size", frame.Size()),
		zap.Any("metadata", frame.Metadata),
	)

	ctx.String(http.StatusOK, "ok")
}

func (r *Server) readUpload(ctx *gin.Context) ([]byte, map[string]string, error) {
	meta := make(map[string]string)

	if ctx.ContentType() != gin.MIMEMultipartPOSTForm {
		payload, err := io.ReadAll(ctx.Request.Body)
		if err != nil {
			return nil, nil, fmt.Errorf("read body: %w", err)
		}

		for _, key := range entity.MetaKeys {
			if v := ctx.Query(key); v != "" {
				meta[key] = v
			}
		}

		return payload, meta, nil
	}

	fh, err := ctx.FormFile(r.cfg.Upload.FormField)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil, errNoData
		}
		return nil, nil, fmt.Errorf("read form: %w", err)
	}

	f, err := fh.Open()
	if err != nil {
		return nil, nil, fmt.Errorf("open form file: %w", err)
	}
	defer f.Close()

	payload, err := io.ReadAll(f)
	if err != nil {
		return nil, nil, fmt.Errorf("read form file: %w", err)
	}

	for _, key := range entity.MetaKeys {
		if v := ctx.PostForm(key); v != "" {
			meta[key] = v
		}
	}

	return payload, meta, nil
}
