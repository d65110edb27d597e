package database

import (
	"context"
	"fmt"

	"skirental/internal/listing"
)

const (
	ListingCustomers = "customers"
	ListingRents     = "rents"
	ListingReturns   = "returns"
)

const (
	customerFullName = `c.first_name || ' ' || c.last_name`
	customerPhone    = `'+' || c.phone_area_code || ' ' || c.phone_number`
	customerAddress  = `c.street || ' ' || c.building_nr || COALESCE('/' || c.apartment_nr, '') || ', ' || c.postal_code || ' ' || c.city`
	employerFullName = `e.first_name || ' ' || e.last_name`

	rentGross   = `r.total_gross_price`
	returnGross = `rr.total_gross_price`
)

var CustomersListing = listing.MustRegistry(listing.Registry{
	Name:   ListingCustomers,
	Source: listing.Source{Table: "customers", Alias: "c"},
	Projection: []listing.Projection{
		{Alias: "id", Expression: "c.id"},
		{Alias: "full_name", Expression: customerFullName},
		{Alias: "pesel", Expression: "c.pesel"},
		{Alias: "email", Expression: "c.email"},
		{Alias: "phone_number", Expression: customerPhone},
		{Alias: "address", Expression: customerAddress},
	},
	FilterColumns: []listing.FilterColumn{
		{Key: "fullName", Label: "Full name", Expression: customerFullName},
		{Key: "pesel", Label: "PESEL", Expression: "c.pesel"},
		{Key: "email", Label: "Email", Expression: "c.email"},
		{Key: "phoneNumber", Label: "Phone number", Expression: customerPhone},
		{Key: "address", Label: "Address", Expression: customerAddress},
	},
	SortFields: []listing.SortField{
		{Key: "identity", Expression: "c.id"},
		{Key: "fullName", Expression: customerFullName},
		{Key: "pesel", Expression: "c.pesel"},
		{Key: "email", Expression: "c.email"},
		{Key: "phoneNumber", Expression: customerPhone},
		{Key: "address", Expression: customerAddress},
	},
	DefaultSortKey: "identity",
})

var RentsListing = listing.MustRegistry(listing.Registry{
	Name: ListingRents,
	Source: listing.Source{Table: "rents", Alias: "r", Joins: []listing.Join{
		{Table: "customers", Alias: "c", On: "c.id = r.customer_id", Left: true},
		{Table: "employers", Alias: "e", On: "e.id = r.employer_id", Left: true},
	}},
	Projection: []listing.Projection{
		{Alias: "id", Expression: "r.id"},
		{Alias: "issued_identifier", Expression: "r.issued_identifier"},
		{Alias: "issued_at", Expression: "r.issued_at"},
		{Alias: "status", Expression: "r.status"},
		{Alias: "total_net_price", Expression: "r.total_net_price"},
		{Alias: "total_gross_price", Expression: rentGross},
		{Alias: "client", Expression: "COALESCE(" + customerFullName + ", '')"},
		{Alias: "employer", Expression: "COALESCE(" + employerFullName + ", '')"},
	},
	FilterColumns: []listing.FilterColumn{
		{Key: "issuedIdentifier", Label: "Identifier", Expression: "r.issued_identifier"},
		{Key: "issuedDateTime", Label: "Issued at", Expression: "CAST(r.issued_at AS TEXT)"},
		{Key: "status", Label: "Status", Expression: "r.status"},
		{Key: "client", Label: "Client", Expression: customerFullName},
		{Key: "employer", Label: "Employer", Expression: employerFullName},
	},
	SortFields: []listing.SortField{
		{Key: "identity", Expression: "r.id"},
		{Key: "issuedIdentifier", Expression: "r.issued_identifier"},
		{Key: "issuedDateTime", Expression: "r.issued_at"},
		{Key: "status", Expression: "r.status"},
		{Key: "totalPriceNetto", Expression: "r.total_net_price"},
		{Key: "totalPriceBrutto", Expression: rentGross},
		{Key: "client", Expression: customerFullName},
		{Key: "employer", Expression: employerFullName},
	},
	DefaultSortKey:  "identity",
	ScopeExpression: "r.employer_id",
})

var ReturnsListing = listing.MustRegistry(listing.Registry{
	Name: ListingReturns,
	Source: listing.Source{Table: "rent_returns", Alias: "rr", Joins: []listing.Join{
		{Table: "rents", Alias: "r", On: "r.id = rr.rent_id"},
		{Table: "employers", Alias: "e", On: "e.id = r.employer_id", Left: true},
	}},
	Projection: []listing.Projection{
		{Alias: "id", Expression: "rr.id"},
		{Alias: "issued_identifier", Expression: "rr.issued_identifier"},
		{Alias: "issued_at", Expression: "rr.issued_at"},
		{Alias: "total_net_price", Expression: "rr.total_net_price"},
		{Alias: "total_gross_price", Expression: returnGross},
		{Alias: "rent_id", Expression: "r.id"},
		{Alias: "rent_issued_identifier", Expression: "r.issued_identifier"},
		{Alias: "employer", Expression: "COALESCE(" + employerFullName + ", '')"},
	},
	FilterColumns: []listing.FilterColumn{
		{Key: "issuedIdentifier", Label: "Identifier", Expression: "rr.issued_identifier"},
		{Key: "issuedDateTime", Label: "Issued at", Expression: "CAST(rr.issued_at AS TEXT)"},
		{Key: "rentIssuedIdentifier", Label: "Rent identifier", Expression: "r.issued_identifier"},
		{Key: "employer", Label: "Employer", Expression: employerFullName},
	},
	SortFields: []listing.SortField{
		{Key: "identity", Expression: "rr.id"},
		{Key: "issuedIdentifier", Expression: "rr.issued_identifier"},
		{Key: "issuedDateTime", Expression: "rr.issued_at"},
		{Key: "totalPriceNetto", Expression: "rr.total_net_price"},
		{Key: "totalPriceBrutto", Expression: returnGross},
		{Key: "rentIssuedIdentifier", Expression: "r.issued_identifier"},
		{Key: "employer", Expression: employerFullName},
	},
	DefaultSortKey:  "identity",
	ScopeExpression: "r.employer_id",
})

// Listing returns a registry by name.
func Listing(name string) (*listing.Registry, bool) {
	switch name {
	case ListingCustomers:
		return CustomersListing, true
	case ListingRents:
		return RentsListing, true
	case ListingReturns:
		return ReturnsListing, true
	}
	return nil, false
}

func (db *DB) CountListing(ctx context.Context, q *listing.ListQuery) (int64, error) {
	query, args, err := q.CountSQL()
	if err != nil {
		return 0, err
	}

	var total int64
	if err := db.GetContext(ctx, &total, query, args...); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", q.Registry().Name, err)
	}
	return total, nil
}

// SelectListing scans one page of rows into dest, a pointer to a slice of record structs.
func (db *DB) SelectListing(ctx context.Context, q *listing.ListQuery, offset, limit int, dest interface{}) error {
	query, args, err := q.PageSQL(offset, limit)
	if err != nil {
		return err
	}

	db.logger.Debug().Str("listing", q.Registry().Name).Str("sql", query).Msg("Listing query")
	if err := db.SelectContext(ctx, dest, query, args...); err != nil {
		return fmt.Errorf("failed to select %s: %w", q.Registry().Name, err)
	}
	return nil
}
