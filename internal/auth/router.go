package auth

import "github.com/gin-gonic/gin"

// SetupAuthRoutes registers the token endpoint
func SetupAuthRoutes(rg *gin.RouterGroup, controller *Controller) {
	oauth := rg.Group("/oauth")
	{
		oauth.POST("/token", controller.IssueToken) // client credentials grant
	}
}
