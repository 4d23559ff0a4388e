package httpapi

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Leganyst/docwatch/internal/service"
)

// documentRequest is shared by create and update. Any status sent by the
// client is not part of it and is ignored.
type documentRequest struct {
	Country    *string `json:"country"`
	Type       *string `json:"type"`
	Number     *string `json:"number"`
	IssueDate  *string `json:"issueDate"`
	ExpiryDate *string `json:"expiryDate"`
}

func (r documentRequest) patch() (service.DocumentPatch, error) {
	p := service.DocumentPatch{Country: r.Country, Type: r.Type, Number: r.Number}
	if r.IssueDate != nil {
		t, err := parseDate("issueDate", *r.IssueDate)
		if err != nil {
			return p, err
		}
		p.IssueDate = &t
	}
	if r.ExpiryDate != nil {
		t, err := parseDate("expiryDate", *r.ExpiryDate)
		if err != nil {
			return p, err
		}
		p.ExpiryDate = &t
	}
	return p, nil
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}

func pageParams(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	return page, limit
}

func pathID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		fail(c, http.StatusBadRequest, "invalid id")
		return uuid.Nil, false
	}
	return id, true
}

// GET /documents?page&limit
func (s *Server) listDocuments(c *gin.Context) {
	page, limit := pageParams(c)
	res, err := s.docs.List(c.Request.Context(), currentUser(c).ID, page, limit)
	if err != nil {
		s.writeError(c, err)
		return
	}
	respondPage(c, "ok", res, toDocumentDTO)
}

// POST /documents
func (s *Server) createDocument(c *gin.Context) {
	var in documentRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		fail(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	p, err := in.patch()
	if err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	doc, err := s.docs.Create(c.Request.Context(), currentUser(c).ID, service.DocumentInput{
		Country:    deref(p.Country),
		Type:       deref(p.Type),
		Number:     deref(p.Number),
		IssueDate:  deref(p.IssueDate),
		ExpiryDate: deref(p.ExpiryDate),
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	respond(c, http.StatusCreated, "document created", toDocumentDTO(*doc))
}

// PUT /documents/:id
func (s *Server) updateDocument(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var in documentRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		fail(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	p, err := in.patch()
	if err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	doc, err := s.docs.Update(c.Request.Context(), currentUser(c).ID, id, p)
	if err != nil {
		s.writeError(c, err)
		return
	}
	respond(c, http.StatusOK, "document updated", toDocumentDTO(*doc))
}

// DELETE /documents/:id
func (s *Server) deleteDocument(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := s.docs.Delete(c.Request.Context(), currentUser(c).ID, id); err != nil {
		s.writeError(c, err)
		return
	}
	respond(c, http.StatusOK, "document deleted", nil)
}
