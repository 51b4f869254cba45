// Package state holds the in-flight leave requests keyed by user.
package state

import "context"

// Storage defines the persistence contract for pending requests.
type Storage interface {
	// Get returns the pending request for the user or ErrStateNotFound.
	Get(ctx context.Context, userID string) (*PendingRequest, error)
	// Set stores the pending request, replacing any previous one for the same user.
	Set(ctx context.Context, p *PendingRequest) error
	// Delete removes the pending request for the user. Deleting a missing entry is not an error.
	Delete(ctx context.Context, userID string) error
	// List returns every stored pending request.
	List(ctx context.Context) ([]*PendingRequest, error)
}
