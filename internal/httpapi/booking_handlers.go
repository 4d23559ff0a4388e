package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Leganyst/docwatch/internal/model"
	"github.com/Leganyst/docwatch/internal/service"
)

type bookingRequest struct {
	Date       string `json:"date" binding:"required"`
	StartTime  string `json:"startTime" binding:"required"`
	LessonType string `json:"lessonType" binding:"required"`
	Notes      string `json:"notes"`
}

type verifyPaymentRequest struct {
	Reference  string    `json:"reference" binding:"required"`
	DocumentID uuid.UUID `json:"documentId" binding:"required"`
}

// GET /bookings?page&limit
func (s *Server) listBookings(c *gin.Context) {
	page, limit := pageParams(c)
	res, err := s.bookings.List(c.Request.Context(), currentUser(c).ID, page, limit)
	if err != nil {
		s.writeError(c, err)
		return
	}
	respondPage(c, "ok", res, toBookingDTO)
}

// POST /bookings
func (s *Server) createBooking(c *gin.Context) {
	var in bookingRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		fail(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	b, err := s.bookings.Create(c.Request.Context(), currentUser(c).ID, service.BookingInput{
		Date:       in.Date,
		StartTime:  in.StartTime,
		LessonType: model.LessonType(in.LessonType),
		Notes:      in.Notes,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	respond(c, http.StatusCreated, "booking created", toBookingDTO(*b))
}

// PUT /bookings/:id/cancel
func (s *Server) cancelBooking(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	b, err := s.bookings.Cancel(c.Request.Context(), currentUser(c).ID, id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	respond(c, http.StatusOK, "booking cancelled", toBookingDTO(*b))
}

// POST /payments/verify
func (s *Server) verifyPayment(c *gin.Context) {
	var in verifyPaymentRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		fail(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	res, err := s.payments.Verify(c.Request.Context(), currentUser(c).ID, in.Reference, in.DocumentID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	msg := "payment verified, document extended"
	if res.Replayed {
		msg = "payment already processed"
	}
	respond(c, http.StatusOK, msg, gin.H{
		"payment":  toPaymentDTO(res.Payment),
		"document": toDocumentDTO(*res.Document),
		"replayed": res.Replayed,
	})
}
