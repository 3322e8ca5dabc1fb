package response

import "github.com/gin-gonic/gin"

// Err writes the error envelope every failure shares: {"error": msg}.
// Messages are short and human-readable; internals never leak here.
func Err(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"error": msg})
}

// AbortErr is Err for middleware, stopping the chain.
func AbortErr(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}
