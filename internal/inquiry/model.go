package inquiry

import (
	"time"

	"realty-backend/internal/matching"
)

const (
	StatusNew       = "new"
	StatusContacted = "contacted"
	StatusClosed    = "closed"

	SourceContact  = "contact"
	SourceWizard   = "wizard"
	SourceProperty = "property"
)

var validStatuses = map[string]struct{}{
	StatusNew:       {},
	StatusContacted: {},
	StatusClosed:    {},
}

var validSources = map[string]struct{}{
	SourceContact:  {},
	SourceWizard:   {},
	SourceProperty: {},
}

func IsValidStatus(value string) bool {
	_, ok := validStatuses[value]
	return ok
}

func IsValidSource(value string) bool {
	_, ok := validSources[value]
	return ok
}

type Inquiry struct {
	ID           string                   `bson:"_id,omitempty" json:"id"`
	Name         string                   `bson:"name" json:"name"`
	Email        string                   `bson:"email,omitempty" json:"email,omitempty"`
	Phone        string                   `bson:"phone" json:"phone"`
	Message      string                   `bson:"message,omitempty" json:"message,omitempty"`
	Source       string                   `bson:"source" json:"source"`
	PropertyID   string                   `bson:"propertyId,omitempty" json:"propertyId,omitempty"`
	PropertyName string                   `bson:"propertyName,omitempty" json:"propertyName,omitempty"`
	Preferences  *matching.RawPreferences `bson:"preferences,omitempty" json:"preferences,omitempty"`
	Status       string                   `bson:"status" json:"status"`
	CRMLeadID    string                   `bson:"crmLeadId,omitempty" json:"crmLeadId,omitempty"`
	CRMSynced    bool                     `bson:"crmSynced" json:"crmSynced"`
	CreatedAt    time.Time                `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time                `bson:"updatedAt" json:"updatedAt"`
}

type CreateRequest struct {
	Name          string   `json:"name" validate:"required,max=120"`
	Email         string   `json:"email" validate:"omitempty,email"`
	Phone         string   `json:"phone" validate:"required,phone"`
	Message       string   `json:"message" validate:"max=2000"`
	Source        string   `json:"source" validate:"omitempty,oneof=contact wizard property"`
	PropertyID    string   `json:"propertyId" validate:"max=64"`
	PropertyName  string   `json:"propertyName" validate:"max=200"`
	Budget        string   `json:"budget" validate:"omitempty,budget"`
	Possession    string   `json:"possession" validate:"omitempty,timeline"`
	Configuration string   `json:"configuration" validate:"max=60"`
	Locations     []string `json:"locations" validate:"max=10,dive,max=100"`
}

func (r CreateRequest) preferences() *matching.RawPreferences {
	if r.Budget == "" && r.Possession == "" && r.Configuration == "" && len(r.Locations) == 0 {
		return nil
	}
	return &matching.RawPreferences{
		Budget:        r.Budget,
		Possession:    r.Possession,
		Configuration: r.Configuration,
		Locations:     r.Locations,
	}
}

type AdminStatusUpdateRequest struct {
	Status string `json:"status" validate:"required,oneof=new contacted closed"`
}

type ListFilter struct {
	Status   string
	Source   string
	Unsynced bool
}
