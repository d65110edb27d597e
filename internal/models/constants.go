package models

const (
	RentStatusOpened    = "OPENED"
	RentStatusRented    = "RENTED"
	RentStatusReturned  = "RETURNED"
	RentStatusCancelled = "CANCELLED"
)

const (
	RoleSeller = "SELLER"
	RoleOwner  = "OWNER"
)

const (
	OutboxStatusPending   = "pending"
	OutboxStatusRetry     = "retry"
	OutboxStatusCompleted = "completed"
	OutboxStatusFailed    = "failed"
)

const (
	TemplateRentCreatedCustomer  = "add-new-rent-customer"
	TemplateRentCreatedEmployer  = "add-new-rent-employer"
	TemplateRentCreatedOwner     = "add-new-rent-owner"
	TemplateRentReturnedCustomer = "rent-return-customer"
	TemplateRentReturnedEmployer = "rent-return-employer"
)

const (
	// DefaultPageNumber is used when the page query parameter is missing or invalid.
	DefaultPageNumber = 1

	// DefaultPageSize is used when the total query parameter is missing or invalid.
	DefaultPageSize = 10

	// MaxPageSize caps the page size accepted from clients.
	MaxPageSize = 100

	// DefaultCartTTL is how long an idle cart survives in the session store, in seconds.
	DefaultCartTTL = 8 * 60 * 60

	// DefaultCartLockTTL bounds how long a single cart mutation may hold the session lock, in seconds.
	DefaultCartLockTTL = 10

	// DefaultTaxRate in percent.
	DefaultTaxRate = 23

	// WorkerQueueSize is the in-memory buffer of the notification worker.
	WorkerQueueSize = 1000

	// DefaultExportRowLimit caps rows written to a single export workbook.
	DefaultExportRowLimit = 5000
)
