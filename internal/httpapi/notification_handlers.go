package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Leganyst/docwatch/internal/model"
)

// subscribeRequest mirrors the browser's PushSubscription.toJSON().
type subscribeRequest struct {
	Endpoint string `json:"endpoint" binding:"required"`
	Keys     struct {
		P256dh string `json:"p256dh"`
		Auth   string `json:"auth"`
	} `json:"keys"`
}

type endpointRequest struct {
	Endpoint string `json:"endpoint"`
}

// GET /notifications/public-key
func (s *Server) publicKey(c *gin.Context) {
	key, err := s.subs.PublicKey()
	if err != nil {
		s.writeError(c, err)
		return
	}
	respond(c, http.StatusOK, "ok", gin.H{"publicKey": key})
}

// POST /notifications/subscribe
func (s *Server) subscribe(c *gin.Context) {
	var in subscribeRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		fail(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	sub, err := s.subs.Subscribe(c.Request.Context(), currentUser(c).ID, in.Endpoint, model.PushKeys{
		P256dh: in.Keys.P256dh,
		Auth:   in.Keys.Auth,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	respond(c, http.StatusCreated, "subscribed", toSubscriptionDTO(sub))
}

// POST /notifications/opt-in
func (s *Server) optIn(c *gin.Context) {
	s.toggle(c, true)
}

// POST /notifications/opt-out
func (s *Server) optOut(c *gin.Context) {
	s.toggle(c, false)
}

// toggle reads an optional endpoint; an empty body applies to all subscriptions.
func (s *Server) toggle(c *gin.Context, enabled bool) {
	var in endpointRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&in); err != nil {
			fail(c, http.StatusBadRequest, "invalid request body: "+err.Error())
			return
		}
	}
	var (
		n   int64
		err error
	)
	if enabled {
		n, err = s.subs.OptIn(c.Request.Context(), currentUser(c).ID, in.Endpoint)
	} else {
		n, err = s.subs.OptOut(c.Request.Context(), currentUser(c).ID, in.Endpoint)
	}
	if err != nil {
		s.writeError(c, err)
		return
	}
	msg := "notifications disabled"
	if enabled {
		msg = "notifications enabled"
	}
	respond(c, http.StatusOK, msg, gin.H{"updated": n, "enabled": enabled})
}

// POST /notifications/unsubscribe
func (s *Server) unsubscribe(c *gin.Context) {
	var in endpointRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		fail(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if err := s.subs.Unsubscribe(c.Request.Context(), currentUser(c).ID, in.Endpoint); err != nil {
		s.writeError(c, err)
		return
	}
	respond(c, http.StatusOK, "unsubscribed", nil)
}
