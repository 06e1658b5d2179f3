package httpapi

import (
	"github.com/dmitrijs2005/selva/internal/fields"
	"github.com/dmitrijs2005/selva/internal/server/models"
	"github.com/dmitrijs2005/selva/internal/server/resolver"
)

type userResponse struct {
	ID       int64       `json:"id"`
	Username string      `json:"username"`
	Role     models.Role `json:"role"`
}

type tokenResponse struct {
	AccessToken string `json:"accessToken"`
}

// valueResponse is a stored value as shown to its owner. Kind is "raw" or
// "reference".
type valueResponse struct {
	Kind     string `json:"kind"`
	Text     string `json:"text,omitempty"`
	FileID   int64  `json:"fileId,omitempty"`
	FileName string `json:"fileName,omitempty"`
	FieldID  string `json:"fieldId,omitempty"`
}

type fieldResponse struct {
	ID    string         `json:"id"`
	Name  string         `json:"name"`
	Order int            `json:"order"`
	Type  fields.Type    `json:"type"`
	Value *valueResponse `json:"value"`
}

func newValueResponse(v fields.Value, fileNames map[int64]string) *valueResponse {
	return fields.Match(v,
		func() *valueResponse { return nil },
		func(r fields.Raw) *valueResponse {
			if r.IsFile {
				return &valueResponse{Kind: "raw", FileID: r.FileID, FileName: fileNames[r.FileID]}
			}
			return &valueResponse{Kind: "raw", Text: r.Text}
		},
		func(ref fields.Reference) *valueResponse {
			return &valueResponse{Kind: "reference", FieldID: ref.FieldID}
		},
	)
}

// newFieldsResponse lists the fields in display order.
func newFieldsResponse(m fields.Map, fileNames map[int64]string) []fieldResponse {
	out := make([]fieldResponse, 0, len(m))
	for _, e := range m.Sorted() {
		out = append(out, fieldResponse{
			ID:    e.ID,
			Name:  e.Name,
			Order: e.Order,
			Type:  e.Type,
			Value: newValueResponse(e.Value, fileNames),
		})
	}
	return out
}

type baseProfileResponse struct {
	ID     int64           `json:"id"`
	Fields []fieldResponse `json:"fields"`
}

type integrationResponse struct {
	ID       int64           `json:"id"`
	Name     string          `json:"name"`
	HasLogo  bool            `json:"hasLogo"`
	Template []fieldResponse `json:"template"`
}

func newIntegrationResponse(in *models.ExternalIntegration) integrationResponse {
	return integrationResponse{
		ID:       in.ID,
		Name:     in.Name,
		HasLogo:  len(in.Logo) > 0,
		Template: newFieldsResponse(in.Template, nil),
	}
}

type createdIntegrationResponse struct {
	ID    int64  `json:"id"`
	Token string `json:"token"`
}

type integrationOverviewResponse struct {
	ID                int64  `json:"id"`
	Name              string `json:"name"`
	HasLogo           bool   `json:"hasLogo"`
	ExternalProfileID *int64 `json:"externalProfileId"`
}

type externalProfileResponse struct {
	ID              int64           `json:"id"`
	IntegrationID   int64           `json:"integrationId"`
	IntegrationName string          `json:"integrationName,omitempty"`
	IsPublic        bool            `json:"isPublic"`
	Fields          []fieldResponse `json:"fields"`
	BaseFields      []fieldResponse `json:"baseFields,omitempty"`
}

// resolvedValue is the per-label entry of a resolved profile.
type resolvedValue struct {
	Value *string `json:"value"`
}

type resolvedProfileResponse struct {
	IntegrationID   int64                    `json:"integrationId"`
	IntegrationName string                   `json:"integrationName"`
	Fields          map[string]resolvedValue `json:"fields"`
}

type resolvedResponse struct {
	Current *resolvedProfileResponse  `json:"current"`
	Other   []resolvedProfileResponse `json:"other"`
}

func newResolvedProfile(p resolver.Profile) resolvedProfileResponse {
	out := resolvedProfileResponse{
		IntegrationID:   p.IntegrationID,
		IntegrationName: p.IntegrationName,
		Fields:          map[string]resolvedValue{},
	}
	for label, f := range p.ByLabel() {
		out.Fields[label] = resolvedValue{Value: f.Value}
	}
	return out
}

func newResolvedResponse(res *resolver.Result) resolvedResponse {
	out := resolvedResponse{Other: make([]resolvedProfileResponse, 0, len(res.Other))}
	if res.Current != nil {
		cur := newResolvedProfile(*res.Current)
		out.Current = &cur
	}
	for _, p := range res.Other {
		out.Other = append(out.Other, newResolvedProfile(p))
	}
	return out
}
