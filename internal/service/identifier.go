package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	RentIdentifierPrefix   = "RENT"
	ReturnIdentifierPrefix = "RET"
)

// NewIssuedIdentifier builds a document number such as RENT/20250110/3f9a0c1e.
func NewIssuedIdentifier(prefix string, at time.Time) string {
	random := strings.ReplaceAll(uuid.NewString(), "-", "")
	return fmt.Sprintf("%s/%s/%s", prefix, at.Format("20060102"), random[:8])
}
