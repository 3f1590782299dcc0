package server

import "github.com/gin-gonic/gin"

// Routes assembles the gin engine for the gateway: health check at the root,
// the WebSocket endpoint, the presence query, and the test page.
func (g *Gateway) Routes() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/", g.Health)
	r.GET("/ws", g.HandleWS)
	r.GET("/channels/:channel/members", g.Members)
	r.GET("/test", g.TestPage)
	return r
}
