package api

import (
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"skirental/internal/listing"
	"skirental/internal/models"
	"skirental/internal/service"

	"github.com/gin-gonic/gin"
)

func (s *HTTPServer) sessionID(c *gin.Context) string {
	return strings.TrimSpace(c.GetHeader(headerName(s.cfg.Auth.HeaderSessionID, sessionHeaderDefault)))
}

// listRequest reads page, total, filter, search, sort and dir. A selection is only set when
// its query parameters are present, so an empty query restores the remembered one.
func (s *HTTPServer) listRequest(c *gin.Context) service.ListRequest {
	req := service.ListRequest{
		SessionID: s.sessionID(c),
		Page: listing.ParsePageRequest(c.Query("page"), c.Query("total"), listing.PageDefaults{
			PageSize:    s.listing.DefaultPageSize,
			MaxPageSize: s.listing.MaxPageSize,
		}),
	}

	column, hasColumn := c.GetQuery("filter")
	search, hasSearch := c.GetQuery("search")
	if hasColumn || hasSearch {
		filter := listing.ParseFilterSelection(column, search)
		req.Filter = &filter
	}

	sortColumn, hasSort := c.GetQuery("sort")
	dir, hasDir := c.GetQuery("dir")
	if hasSort || hasDir {
		sort := listing.ParseSortSelection(sortColumn, dir)
		req.Sort = &sort
	}
	return req
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		abortError(c, http.StatusBadRequest, name+" must be a positive integer")
		return 0, false
	}
	return id, true
}

func requireEmployer(c *gin.Context) (*models.Employer, bool) {
	employer, ok := currentEmployer(c)
	if !ok {
		abortError(c, http.StatusUnauthorized, errNoEmployer.Error())
		return nil, false
	}
	return employer, true
}

func (s *HTTPServer) requireSession(c *gin.Context) (string, bool) {
	id := s.sessionID(c)
	if id == "" {
		abortError(c, http.StatusBadRequest, service.ErrSessionRequired.Error())
		return "", false
	}
	return id, true
}

func (s *HTTPServer) handleCustomers(c *gin.Context) {
	employer, ok := requireEmployer(c)
	if !ok {
		return
	}
	page, err := s.svc.Listings.Customers(c.Request.Context(), employer, s.listRequest(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (s *HTTPServer) handleRents(c *gin.Context) {
	employer, ok := requireEmployer(c)
	if !ok {
		return
	}
	page, err := s.svc.Listings.Rents(c.Request.Context(), employer, s.listRequest(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (s *HTTPServer) handleReturns(c *gin.Context) {
	employer, ok := requireEmployer(c)
	if !ok {
		return
	}
	page, err := s.svc.Listings.Returns(c.Request.Context(), employer, s.listRequest(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (s *HTTPServer) handleRentsExport(c *gin.Context) {
	employer, ok := requireEmployer(c)
	if !ok {
		return
	}
	if s.svc.Exporter == nil {
		abortError(c, http.StatusNotImplemented, "exports are not configured")
		return
	}

	rows, err := s.svc.Listings.RentsForExport(c.Request.Context(), employer, s.listRequest(c), s.exports.RowLimit)
	if err != nil {
		writeError(c, err)
		return
	}
	path, err := s.svc.Exporter.Rents(rows, "Rents of "+employer.FullName())
	if err != nil {
		writeError(c, err)
		return
	}
	c.FileAttachment(path, filepath.Base(path))
}

func (s *HTTPServer) handleClearPreferences(c *gin.Context) {
	sessionID, ok := s.requireSession(c)
	if !ok {
		return
	}
	if err := s.svc.Listings.ClearPreferences(c.Request.Context(), sessionID, c.Param("name")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type createCustomerRequest struct {
	FirstName     string  `json:"first_name" binding:"required"`
	LastName      string  `json:"last_name" binding:"required"`
	Pesel         string  `json:"pesel"`
	Email         string  `json:"email" binding:"required"`
	PhoneAreaCode string  `json:"phone_area_code"`
	PhoneNumber   string  `json:"phone_number"`
	Street        string  `json:"street"`
	BuildingNr    string  `json:"building_nr"`
	ApartmentNr   *string `json:"apartment_nr"`
	PostalCode    string  `json:"postal_code"`
	City          string  `json:"city"`
}

func (s *HTTPServer) handleCreateCustomer(c *gin.Context) {
	var req createCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortError(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	customer := &models.Customer{
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		Pesel:         req.Pesel,
		Email:         req.Email,
		PhoneAreaCode: req.PhoneAreaCode,
		PhoneNumber:   req.PhoneNumber,
		Street:        req.Street,
		BuildingNr:    req.BuildingNr,
		ApartmentNr:   req.ApartmentNr,
		PostalCode:    req.PostalCode,
		City:          req.City,
	}
	if err := s.svc.Customers.Create(c.Request.Context(), customer); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, customer)
}

func (s *HTTPServer) handleDeleteCustomer(c *gin.Context) {
	employer, ok := requireEmployer(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	removal, err := s.svc.Customers.Delete(c.Request.Context(), s.sessionID(c), employer, id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, removal)
}

type returnRequest struct {
	Description string `json:"description"`
}

func (s *HTTPServer) handleReturnRent(c *gin.Context) {
	employer, ok := requireEmployer(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req returnRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			abortError(c, http.StatusBadRequest, "invalid request body: "+err.Error())
			return
		}
	}

	ret, err := s.svc.Returns.Process(c.Request.Context(), employer, id, strings.TrimSpace(req.Description))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, ret)
}

func (s *HTTPServer) handleAvailability(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	inv, err := s.svc.Catalog.Availability(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"equipment_id":    inv.EquipmentID,
		"total_capacity":  inv.TotalCapacity,
		"available_count": inv.AvailableCount,
		"reserved":        inv.Reserved(),
	})
}
