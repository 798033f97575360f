package intake

import "github.com/gin-gonic/gin"

func RegisterRoutes(r *gin.RouterGroup, h *Handler) {
	intakes := r.Group("/intakes")
	{
		intakes.GET("", h.List)
		intakes.POST("", h.Create)
		intakes.GET("/:id", h.Get)
	}
}
