package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Leganyst/docwatch/internal/model"
	"github.com/Leganyst/docwatch/internal/service"
)

type signupRequest struct {
	FullName string `json:"fullName" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	Phone    string `json:"phone"`
	Country  string `json:"country"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type oauthRequest struct {
	// Google sends an ID token, Facebook a user access token.
	Token       string `json:"token"`
	IDToken     string `json:"idToken"`
	AccessToken string `json:"accessToken"`
}

func (r oauthRequest) credential() string {
	for _, v := range []string{r.Token, r.IDToken, r.AccessToken} {
		if v != "" {
			return v
		}
	}
	return ""
}

// POST /auth/signup
func (s *Server) signup(c *gin.Context) {
	var in signupRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		fail(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	sess, err := s.auth.Signup(c.Request.Context(), service.SignupInput{
		FullName: in.FullName,
		Email:    in.Email,
		Password: in.Password,
		Phone:    in.Phone,
		Country:  in.Country,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	s.startSession(c, http.StatusCreated, "account created", sess)
}

// POST /auth/login
func (s *Server) login(c *gin.Context) {
	var in loginRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		fail(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	sess, err := s.auth.Login(c.Request.Context(), in.Email, in.Password)
	if err != nil {
		s.writeError(c, err)
		return
	}
	s.startSession(c, http.StatusOK, "logged in", sess)
}

// POST /auth/oauth/google, /auth/oauth/facebook
func (s *Server) oauth(provider model.AuthProvider) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in oauthRequest
		if err := c.ShouldBindJSON(&in); err != nil {
			fail(c, http.StatusBadRequest, "invalid request body: "+err.Error())
			return
		}
		sess, err := s.auth.OAuth(c.Request.Context(), provider, in.credential())
		if err != nil {
			s.writeError(c, err)
			return
		}
		s.startSession(c, http.StatusOK, "logged in", sess)
	}
}

// POST /auth/logout
func (s *Server) logout(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(tokenCookie, "", -1, "/", s.cookie.Domain, s.cookie.Secure, true)
	respond(c, http.StatusOK, "logged out", nil)
}

// GET /auth/me
func (s *Server) me(c *gin.Context) {
	u, err := s.auth.Me(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	respond(c, http.StatusOK, "ok", toUserDTO(u))
}

func (s *Server) startSession(c *gin.Context, status int, message string, sess *service.Session) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(tokenCookie, sess.Token, int(s.cookie.TTL.Seconds()), "/", s.cookie.Domain, s.cookie.Secure, true)
	respond(c, status, message, gin.H{
		"user":  toUserDTO(sess.User),
		"token": sess.Token,
	})
}
