package api

import (
	"net/http"
	"strconv"

	"skirental/internal/service"

	"github.com/gin-gonic/gin"
)

func (s *HTTPServer) handleStartCart(c *gin.Context) {
	employer, ok := requireEmployer(c)
	if !ok {
		return
	}
	sessionID, ok := s.requireSession(c)
	if !ok {
		return
	}

	var req service.StartCartInput
	if err := c.ShouldBindJSON(&req); err != nil {
		abortError(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	cart, err := s.svc.Carts.Start(c.Request.Context(), sessionID, employer, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, cart)
}

func (s *HTTPServer) handleGetCart(c *gin.Context) {
	sessionID, ok := s.requireSession(c)
	if !ok {
		return
	}
	cart, err := s.svc.Carts.Get(c.Request.Context(), sessionID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

func (s *HTTPServer) handleCancelCart(c *gin.Context) {
	sessionID, ok := s.requireSession(c)
	if !ok {
		return
	}
	if err := s.svc.Carts.Cancel(c.Request.Context(), sessionID); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *HTTPServer) handleAddLine(c *gin.Context) {
	sessionID, ok := s.requireSession(c)
	if !ok {
		return
	}

	var req service.AddLineInput
	if err := c.ShouldBindJSON(&req); err != nil {
		abortError(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	cart, err := s.svc.Carts.AddLine(c.Request.Context(), sessionID, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

func (s *HTTPServer) handleRemoveLine(c *gin.Context) {
	sessionID, ok := s.requireSession(c)
	if !ok {
		return
	}
	equipmentID, err := strconv.ParseInt(c.Param("equipmentId"), 10, 64)
	if err != nil || equipmentID <= 0 {
		abortError(c, http.StatusBadRequest, "equipmentId must be a positive integer")
		return
	}

	cart, err := s.svc.Carts.RemoveLine(c.Request.Context(), sessionID, equipmentID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

func (s *HTTPServer) handleCommit(c *gin.Context) {
	employer, ok := requireEmployer(c)
	if !ok {
		return
	}
	sessionID, ok := s.requireSession(c)
	if !ok {
		return
	}

	rental, err := s.svc.Bookings.Commit(c.Request.Context(), sessionID, employer)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, rental)
}
