package models

import "time"

// ListingState is the filter and sort selection remembered for one listing of a session.
type ListingState struct {
	SessionID    string    `json:"session_id"`
	Listing      string    `json:"listing"`
	FilterColumn string    `json:"filter_column,omitempty"`
	SearchText   string    `json:"search_text,omitempty"`
	SortColumn   string    `json:"sort_column,omitempty"`
	Direction    string    `json:"direction,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (s *ListingState) IsEmpty() bool {
	return s == nil || (s.FilterColumn == "" && s.SearchText == "" && s.SortColumn == "" && s.Direction == "")
}
