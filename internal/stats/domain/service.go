package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	// Get serves the org's snapshot, computing it on a cache miss.
	Get(ctx context.Context) (Stats, error)
	Compute(ctx context.Context, orgID snowflake.ID) (Stats, error)
	Refresh(ctx context.Context, orgID snowflake.ID) (Stats, error)
	OrgIDs(ctx context.Context) ([]snowflake.ID, error)
}

var ErrInvalidOrganization = errors.New("invalid_organization")
