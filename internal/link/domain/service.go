package domain

import (
	"context"
	"errors"

	"github.com/smallbiznis/affiliate/pkg/db/pagination"
)

type CreateLinkRequest struct {
	AffiliateID    string  `json:"affiliateId"`
	Slug           *string `json:"slug"`
	DestinationURL string  `json:"destinationUrl"`
	UTMSource      *string `json:"utmSource"`
	UTMMedium      *string `json:"utmMedium"`
	UTMCampaign    *string `json:"utmCampaign"`
}

type ListLinkRequest struct {
	pagination.Pagination
	AffiliateID string
}

type Service interface {
	CreateLink(ctx context.Context, req CreateLinkRequest) (Link, error)
	ListLinks(ctx context.Context, req ListLinkRequest) (pagination.Page[Link], error)
	SetActive(ctx context.Context, id string, active bool) (Link, error)
	// ResolveClick counts a visit and issues an attribution token for it.
	ResolveClick(ctx context.Context, slug string, visitor Visitor) (ClickResult, error)
}

// Validation errors.
var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidID           = errors.New("invalid_id")
	ErrInvalidAffiliate    = errors.New("invalid_affiliate_id")
	ErrInvalidSlug         = errors.New("invalid_slug")
	ErrInvalidDestination  = errors.New("invalid_destination_url")
)

var ErrNotFound = errors.New("link_not_found")

// Conflict errors.
var (
	ErrSlugTaken         = errors.New("slug_taken")
	ErrAffiliateInactive = errors.New("affiliate_not_linkable")
)
