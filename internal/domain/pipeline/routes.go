package pipeline

import "github.com/gin-gonic/gin"

func RegisterRoutes(r *gin.RouterGroup, h *Handler) {
	files := r.Group("/files")
	{
		files.GET("/:id/processing-status", h.Status)
		files.GET("/:id/transcript", h.Transcript)
		files.GET("/:id/analysis", h.Analysis)
		files.POST("/:id/process", h.Process)
	}
}

// RegisterDevRoutes exposes the mock-mode toggle. Callers only mount it
// outside production.
func RegisterDevRoutes(r *gin.RouterGroup, h *Handler, mw ...gin.HandlerFunc) {
	dev := r.Group("/dev", mw...)
	{
		dev.GET("/mock-audio", h.GetMockMode)
		dev.PUT("/mock-audio", h.SetMockMode)
	}
}
