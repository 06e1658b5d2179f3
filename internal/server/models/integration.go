package models

import "github.com/dmitrijs2005/selva/internal/fields"

// ExternalIntegration is a third party consuming user profiles. TokenHash is
// the bcrypt hash of its API token; Template holds fields without values.
type ExternalIntegration struct {
	ID        int64
	Name      string
	TokenHash []byte
	Logo      []byte
	Template  fields.Map
}

// IntegrationOverview is one line of the integration list shown to a user.
type IntegrationOverview struct {
	ID                int64
	Name              string
	HasLogo           bool
	ExternalProfileID *int64
}
