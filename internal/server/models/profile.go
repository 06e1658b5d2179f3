package models

import "github.com/dmitrijs2005/selva/internal/fields"

// BaseProfile is the single personal profile of a user.
type BaseProfile struct {
	ID     int64
	UserID int64
	Fields fields.Map
}

// ExternalProfile is a user's profile for one integration. IsPublic makes it
// visible to other integrations.
type ExternalProfile struct {
	ID                    int64
	BaseProfileID         int64
	ExternalIntegrationID int64
	IsPublic              bool
	Fields                fields.Map
}

// ExternalProfileDetails is an external profile with what is needed to edit
// it: the integration name and the owner's base profile fields.
type ExternalProfileDetails struct {
	Profile         *ExternalProfile
	IntegrationName string
	BaseFields      fields.Map
}

// ProfileRow is one external profile of a user joined with its integration
// and the user's base profile, as read by the integration API.
type ProfileRow struct {
	ProfileID       int64
	IntegrationID   int64
	IntegrationName string
	IsPublic        bool
	Fields          fields.Map
	BaseFields      fields.Map
}
