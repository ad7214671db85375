// Package registry models the catalog of priced, access-gated resources.
package registry

import (
	"github.com/xraph/tollgate/id"
	"github.com/xraph/tollgate/types"
)

// Resource is one registered asset: a content reference bound to an
// entitlement instrument and a per-use price. Resources are never deleted,
// only deactivated.
type Resource struct {
	types.Entity
	ID           id.ResourceID   `json:"id"`
	ContentRef   string          `json:"content_ref"`
	InstrumentID id.InstrumentID `json:"instrument_id"`
	Owner        string          `json:"owner"`

	PricePerUse types.Money `json:"price_per_use"`
	Category    string      `json:"category,omitempty"`
	Tags        []string    `json:"tags,omitempty"`
	Version     string      `json:"version,omitempty"`

	// MinBalanceForAccess overrides the instrument's access threshold when
	// positive. Zero means "use the instrument default".
	MinBalanceForAccess int64 `json:"min_balance_for_access"`

	Active     bool        `json:"active"`
	UsageCount int64       `json:"usage_count"`
	UsageSpend types.Money `json:"usage_spend"`
}

// ListOpts filters resource listings. Offset/Limit page through results in
// registration order.
type ListOpts struct {
	Owner      string
	Category   string
	ActiveOnly bool
	Offset     int
	Limit      int
}

// Stats are the registry-wide aggregates.
type Stats struct {
	TotalResources  int64 `json:"total_resources"`
	ActiveResources int64 `json:"active_resources"`
	TotalUsage      int64 `json:"total_usage"`
}
