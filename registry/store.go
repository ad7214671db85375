package registry

import (
	"context"

	"github.com/xraph/tollgate/id"
)

// Store is the resource registry persistence surface. CreateResource
// enforces ID uniqueness (idempotent registration); usage counters are
// incremented only through the payment settlement path, never directly.
type Store interface {
	CreateResource(ctx context.Context, r *Resource) error
	GetResource(ctx context.Context, resID id.ResourceID) (*Resource, error)
	ListResources(ctx context.Context, opts ListOpts) ([]*Resource, error)
	CountResources(ctx context.Context, opts ListOpts) (int64, error)
	UpdateResource(ctx context.Context, r *Resource) error
	RegistryStats(ctx context.Context) (*Stats, error)
}
