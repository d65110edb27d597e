package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"skirental/internal/database"
	"skirental/internal/domain"
	"skirental/internal/listing"
	"skirental/internal/metrics"
	"skirental/internal/models"

	"github.com/rs/zerolog"
)

// ListRequest is one listing request. Nil Filter and Sort mean the request carried no
// selection, in which case the one remembered for the session is used.
type ListRequest struct {
	SessionID string
	Page      listing.PageRequest
	Filter    *listing.FilterSelection
	Sort      *listing.SortSelection
}

type ListPage[T any] struct {
	Rows    []T                     `json:"rows"`
	Page    listing.PageResult      `json:"page"`
	Filter  listing.FilterSelection `json:"filter"`
	Sort    listing.SortSelection   `json:"sort"`
	Columns []listing.FilterColumn  `json:"columns"`
	// SortKeys lists the accepted sort column keys.
	SortKeys    []string `json:"sort_keys"`
	HasPrevious bool     `json:"has_previous"`
	HasNext     bool     `json:"has_next"`
}

type ListingService struct {
	repo     domain.ListingRepository
	sessions domain.SessionRepository
	logger   *zerolog.Logger
	now      func() time.Time
}

func NewListingService(repo domain.ListingRepository, sessions domain.SessionRepository, logger *zerolog.Logger) *ListingService {
	return &ListingService{repo: repo, sessions: sessions, logger: logger, now: time.Now}
}

func (s *ListingService) Customers(ctx context.Context, viewer *models.Employer, req ListRequest) (*ListPage[models.CustomerRecord], error) {
	return listPage[models.CustomerRecord](ctx, s, database.CustomersListing, viewer, req)
}

func (s *ListingService) Rents(ctx context.Context, viewer *models.Employer, req ListRequest) (*ListPage[models.RentRecord], error) {
	return listPage[models.RentRecord](ctx, s, database.RentsListing, viewer, req)
}

func (s *ListingService) Returns(ctx context.Context, viewer *models.Employer, req ListRequest) (*ListPage[models.ReturnRecord], error) {
	return listPage[models.ReturnRecord](ctx, s, database.ReturnsListing, viewer, req)
}

// RentsForExport returns the rents the viewer would see with the same selection, without
// paging, at most limit rows.
func (s *ListingService) RentsForExport(ctx context.Context, viewer *models.Employer, req ListRequest, limit int) ([]models.RentRecord, error) {
	q, err := s.buildQuery(ctx, database.RentsListing, viewer, req)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = models.DefaultExportRowLimit
	}

	rows := []models.RentRecord{}
	if err := s.repo.SelectListing(ctx, q, 0, limit, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// ClearPreferences forgets the remembered selection of a listing.
func (s *ListingService) ClearPreferences(ctx context.Context, sessionID, name string) error {
	if _, ok := database.Listing(name); !ok {
		return fmt.Errorf("listing %q: %w", name, domain.ErrNotFound)
	}
	if sessionID == "" {
		return ErrSessionRequired
	}
	return s.sessions.ClearListingState(ctx, sessionID, name)
}

func listPage[T any](ctx context.Context, s *ListingService, reg *listing.Registry, viewer *models.Employer, req ListRequest) (*ListPage[T], error) {
	started := s.now()
	q, err := s.buildQuery(ctx, reg, viewer, req)
	if err != nil {
		return nil, err
	}

	total, err := s.repo.CountListing(ctx, q)
	if err != nil {
		return nil, err
	}

	page := listing.Paginate(total, req.Page.PageNumber, req.Page.PageSize)
	offset, err := page.Offset()
	if err != nil {
		metrics.IncPageOutOfRange(reg.Name)
		return nil, err
	}

	rows := []T{}
	if err := s.repo.SelectListing(ctx, q, offset, page.PageSize, &rows); err != nil {
		return nil, err
	}
	metrics.ObserveListing(reg.Name, started)

	return &ListPage[T]{
		Rows:        rows,
		Page:        page,
		Filter:      q.Filter,
		Sort:        q.Sort,
		Columns:     reg.Columns(),
		SortKeys:    reg.SortKeys(),
		HasPrevious: page.HasPrevious(),
		HasNext:     page.HasNext(),
	}, nil
}

func (s *ListingService) buildQuery(ctx context.Context, reg *listing.Registry, viewer *models.Employer, req ListRequest) (*listing.ListQuery, error) {
	filter, sort := s.selection(ctx, reg.Name, req)

	var scope *listing.Scope
	if reg.Scoped() {
		if viewer == nil {
			return nil, errors.New("viewer is required for scoped listings")
		}
		if !viewer.IsOwner() {
			scope = &listing.Scope{Value: viewer.ID}
		}
	}

	q, err := listing.BuildListQuery(s.repo.Dialect(), reg, filter, sort, scope)
	if err != nil {
		return nil, err
	}
	if q.FilterFallback || q.SortFallback {
		s.logger.Debug().
			Str("listing", reg.Name).
			Str("filter_column", filter.ColumnKey).
			Str("sort_column", sort.ColumnKey).
			Bool("filter_fallback", q.FilterFallback).
			Bool("sort_fallback", q.SortFallback).
			Msg("Unknown listing column, using fallback")
	}
	return q, nil
}

// selection resolves the request's selection against the one remembered for the session:
// the explicit parts of the request win and are remembered, missing parts are restored.
func (s *ListingService) selection(ctx context.Context, name string, req ListRequest) (listing.FilterSelection, listing.SortSelection) {
	var filter listing.FilterSelection
	var sort listing.SortSelection
	if req.Filter != nil {
		filter = *req.Filter
	}
	if req.Sort != nil {
		sort = *req.Sort
	}
	if req.SessionID == "" || s.sessions == nil {
		return filter, sort
	}

	if req.Filter == nil || req.Sort == nil {
		state, err := s.sessions.GetListingState(ctx, req.SessionID, name)
		if err != nil {
			s.logger.Warn().Err(err).Str("listing", name).Str("session_id", req.SessionID).Msg("Failed to load listing preferences")
		} else if state != nil {
			if req.Filter == nil {
				filter = listing.FilterSelection{ColumnKey: state.FilterColumn, SearchText: state.SearchText}
			}
			if req.Sort == nil {
				sort = listing.SortSelection{ColumnKey: state.SortColumn, Direction: listing.SortDirection(state.Direction)}
			}
		}
	}
	if req.Filter == nil && req.Sort == nil {
		return filter, sort
	}

	state := &models.ListingState{
		SessionID:    req.SessionID,
		Listing:      name,
		FilterColumn: filter.ColumnKey,
		SearchText:   filter.SearchText,
		SortColumn:   sort.ColumnKey,
		Direction:    string(sort.Direction),
		UpdatedAt:    s.now(),
	}
	if err := s.sessions.SetListingState(ctx, state); err != nil {
		s.logger.Warn().Err(err).Str("listing", name).Str("session_id", req.SessionID).Msg("Failed to store listing preferences")
	}
	return filter, sort
}
