package file

import "github.com/gin-gonic/gin"

func RegisterRoutes(r *gin.RouterGroup, h *Handler) {
	files := r.Group("/files")
	{
		files.POST("", h.Upload)
		files.GET("", h.List)
		files.GET("/:id", h.Download)
		files.GET("/:id/info", h.Info)
		files.DELETE("/:id", h.Delete)
	}
}
