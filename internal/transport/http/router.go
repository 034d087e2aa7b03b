package http

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"dopamine-dashboard/internal/app"
)

// Options tunes the router.
type Options struct {
	CORSOrigins  []string
	CookieSecure bool
	TokenTTL     time.Duration
}

// Server holds the HTTP handlers of the dashboard API.
type Server struct {
	auth        *app.AuthService
	meets       *app.MeetService
	submissions *app.SubmissionService
	ws          *WSHandler
	opts        Options
}

func NewServer(authSvc *app.AuthService, meets *app.MeetService, submissions *app.SubmissionService, opts Options) *Server {
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = 24 * time.Hour
	}
	return &Server{
		auth:        authSvc,
		meets:       meets,
		submissions: submissions,
		ws:          NewWSHandler(submissions),
		opts:        opts,
	}
}

// Router builds the gin engine with every route mounted.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	if len(s.opts.CORSOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     s.opts.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	r.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	api := r.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.POST("/google", s.googleLogin)
	authGroup.POST("/register", s.register)
	authGroup.POST("/login", s.login)
	authGroup.POST("/logout", s.logout)
	authGroup.GET("/me", s.requireAuth(false), s.me)

	user := api.Group("", s.requireAuth(false))
	admin := api.Group("", s.requireAuth(false), requireAdmin)

	user.GET("/meets", s.listMeets)
	user.GET("/meets/:id", s.getMeet)
	user.POST("/meets/:id/start", s.startMeet)
	user.POST("/meets/:id/submit", s.submitMeet)
	user.POST("/meets/:id/evaluate", s.evaluateMeet)
	user.GET("/meets/:id/attempt", s.myAttempt)

	admin.POST("/meets", s.createMeet)
	admin.PATCH("/meets/:id/status", s.updateMeetStatus)
	admin.DELETE("/meets/:id", s.deleteMeet)
	admin.POST("/meets/:id/questions", s.addQuestions)
	admin.DELETE("/meets/:id/questions/:questionId", s.removeQuestion)

	user.POST("/answers", s.recordAnswer)
	user.GET("/answers/leaderboard/cumulative", s.cumulativeLeaderboard)
	user.GET("/answers/leaderboard/:meetId", s.meetLeaderboard)
	user.GET("/answers/me/stats", s.myStats)

	admin.GET("/admin/stats", s.dashboard)

	r.GET("/ws/meets/:id/leaderboard", s.requireAuth(true), s.ws.ServeWS)
	return r
}
