// Package locator finds and mutates the transactional records a user
// command refers to: shopping trips (receipts) and their products.
package locator

import (
	"context"
	"fmt"

	"github.com/mwrobel/domo/internal/nlu"
)

// Candidate kinds.
const (
	KindTrip    = "paragon"
	KindProduct = "produkt"
)

// Candidate is an opaque, displayable handle to one matching record.
// Callers never inspect it beyond showing the label and passing the chosen
// element back unmodified.
type Candidate struct {
	ID    int64  `json:"id"`
	Kind  string `json:"kind"`
	Label string `json:"label"`
}

// Locator searches for candidate records and executes resolved actions.
// Candidate ordering is deterministic: repeated searches with the same
// entities return the same list in the same order.
type Locator interface {
	// FindCandidates returns the records matching the extracted entities,
	// in a stable order.
	FindCandidates(ctx context.Context, intentType string, entities map[string]nlu.Value) ([]Candidate, error)

	// ExecuteAction performs the intent's update or delete against exactly
	// the target candidate.
	ExecuteAction(ctx context.Context, intentType string, target Candidate, entities map[string]nlu.Value) error

	// CreatePurchase inserts a new shopping trip with its products in one
	// transaction. Used by the add-purchase intent, which skips search.
	CreatePurchase(ctx context.Context, entities map[string]nlu.Value) error
}

// ErrNoOperations is returned when an update intent carries no operations.
var ErrNoOperations = fmt.Errorf("locator: update without operations")
