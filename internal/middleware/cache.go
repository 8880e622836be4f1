package middleware

import "github.com/gin-gonic/gin"

// NoStore forbids caching of the response at every layer. Exam content and
// answer state must never be served from a browser or proxy cache.
func NoStore() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Cache-Control", "no-store")
		c.Header("Pragma", "no-cache")
		c.Next()
	}
}
