package mobileservice

import "context"

// Repository provides persistence for mobile service requests.
type Repository interface {
	Create(ctx context.Context, req *Request) error
	GetByID(ctx context.Context, id string) (*Request, error)
	Update(ctx context.Context, req *Request) error
	List(ctx context.Context, filter ListFilter) ([]*Request, error)
}
