package middleware

import (
	"log/slog"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ahrie-ai/backend/internal/logger"
)

// ProcessTimeHeader reports how long the handler chain took, in seconds.
const ProcessTimeHeader = "X-Process-Time"

// timedWriter stamps X-Process-Time just before the headers go out.
type timedWriter struct {
	gin.ResponseWriter
	start   time.Time
	stamped bool
}

func (w *timedWriter) stamp() {
	if w.stamped || w.ResponseWriter.Written() {
		return
	}
	w.stamped = true
	w.Header().Set(ProcessTimeHeader, strconv.FormatFloat(time.Since(w.start).Seconds(), 'f', 4, 64))
}

func (w *timedWriter) WriteHeaderNow() {
	w.stamp()
	w.ResponseWriter.WriteHeaderNow()
}

func (w *timedWriter) Write(b []byte) (int, error) {
	w.stamp()
	return w.ResponseWriter.Write(b)
}

func (w *timedWriter) WriteString(s string) (int, error) {
	w.stamp()
	return w.ResponseWriter.WriteString(s)
}

// AccessLog logs one line per request and sets X-Process-Time.
func AccessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		tw := &timedWriter{ResponseWriter: c.Writer, start: start}
		c.Writer = tw

		c.Next()
		tw.stamp()
		elapsed := time.Since(start)

		status := c.Writer.Status()
		level := slog.LevelInfo
		switch {
		case status >= 500:
			level = slog.LevelError
		case status >= 400:
			level = slog.LevelWarn
		}
		ctx := c.Request.Context()
		logger.FromContext(ctx).Log(ctx, level, "http request",
			"method", c.Request.Method,
			"path", path,
			"status", status,
			"bytes", c.Writer.Size(),
			"duration", elapsed,
			"client_ip", c.ClientIP(),
			"request_id", GetRequestID(c),
		)
	}
}
