package controller

import (
	"context"
	"net/http"
	"time"

	"camRelay/api/internal/broadcaster"
	"camRelay/api/internal/sink"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func (r *Server) stream(ctx *gin.Context) {
	b := broadcaster.New(r.store, ctx.Writer,
		broadcaster.WithPollInterval(r.cfg.Stream.PollInterval),
		broadcaster.WithWriteTimeout(r.cfg.Stream.WriteTimeout),
		broadcaster.WithLogger(r.logger),
	)

	if err := r.viewers.Add(b); err != nil {
		r.logger.Warn("reject viewer", zap.Int("viewers", r.viewers.Len()), zap.Error(err))
		ctx.String(http.StatusServiceUnavailable, "too many viewers")
		return
	}
	defer r.viewers.Remove(b.ID())

	h := ctx.Writer.Header()
	h.Set("Content-Type", broadcaster.ContentType)
	h.Set("Cache-Control", "no-cache, no-store, must-revalidate")
	h.Set("Pragma", "no-cache")
	ctx.Status(http.StatusOK)
	ctx.Writer.Flush()

	streamCtx, cancel := context.WithCancel(ctx.Request.Context())
	defer cancel()
	stop := context.AfterFunc(r.streamCtx, cancel)
	defer stop()

	r.logger.Info("viewer connected", zap.String("viewerID", b.ID()), zap.String("remote", ctx.ClientIP()))

	err := b.Run(streamCtx)

	stats := b.Stats()
	fields := []zap.Field{
		zap.String("viewerID", b.ID()),
		zap.Uint64("sent", stats.Sent),
		zap.Uint64("skipped", stats.Skipped),
		zap.Uint64("lastSeq", stats.LastSequence),
	}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	r.logger.Info("viewer disconnected", fields...)
}

type statsResponse struct {
	Sequence    uint64              `json:"seq"`
	PublishedAt *time.Time          `json:"published_at,omitempty"`
	Viewers     []broadcaster.Stats `json:"viewers"`
	Sinks       sink.Stats          `json:"sinks"`
}

func (r *Server) stats(ctx *gin.Context) {
	res := statsResponse{
		Viewers: r.viewers.Stats(),
		Sinks:   r.dispatcher.Stats(),
	}

	if frame, ok := r.store.Snapshot(); ok {
		res.Sequence = frame.Sequence
		res.PublishedAt = &frame.PublishedAt
	}

	ctx.JSON(http.StatusOK, res)
}

func (r *Server) latestFrame(ctx *gin.Context) {
	frame, ok := r.store.Snapshot()
	if !ok {
		ctx.String(http.StatusNotFound, "no frame")
		return
	}

	ctx.Header("Cache-Control", "no-cache")
	ctx.Header("ETag", `"`+frame.ID+`"`)
	ctx.Data(http.StatusOK, "image/jpeg", frame.Payload)
}

// closeStreams ends every active /stream loop.
func (r *Server) closeStreams() {
	r.cancelStream()
}
