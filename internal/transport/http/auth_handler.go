package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"dopamine-dashboard/internal/app"
)

type googleLoginRequest struct {
	IDToken string `json:"idToken"`
}

func (s *Server) googleLogin(c *gin.Context) {
	var req googleLoginRequest
	if !bindJSON(c, &req) {
		return
	}
	session, err := s.auth.GoogleLogin(c.Request.Context(), req.IDToken)
	if err != nil {
		writeError(c, err)
		return
	}
	s.writeSession(c, http.StatusOK, session)
}

func (s *Server) register(c *gin.Context) {
	var req app.RegisterInput
	if !bindJSON(c, &req) {
		return
	}
	session, err := s.auth.Register(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	s.writeSession(c, http.StatusCreated, session)
}

func (s *Server) login(c *gin.Context) {
	var req app.LoginInput
	if !bindJSON(c, &req) {
		return
	}
	session, err := s.auth.Login(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	s.writeSession(c, http.StatusOK, session)
}

func (s *Server) logout(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(tokenCookie, "", -1, "/", "", s.opts.CookieSecure, true)
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

func (s *Server) me(c *gin.Context) {
	user, err := s.auth.Me(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (s *Server) writeSession(c *gin.Context, status int, session app.Session) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(tokenCookie, session.Token, int(s.opts.TokenTTL.Seconds()), "/", "", s.opts.CookieSecure, true)
	c.JSON(status, session)
}
