package inquiry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"realty-backend/internal/zoho"
)

var (
	ErrInvalidSource = errors.New("invalid source")
	ErrInvalidStatus = errors.New("invalid status")
	ErrNotFound      = errors.New("inquiry not found")
)

// CRM receives leads. *zoho.Client satisfies it.
type CRM interface {
	CreateLead(ctx context.Context, lead zoho.Lead) (string, error)
}

// Notifier alerts the sales inbox about a new inquiry.
type Notifier interface {
	SendInquiryNotification(ctx context.Context, item Inquiry) (string, error)
}

type Service struct {
	repo     Repository
	crm      CRM
	notifier Notifier
	location *time.Location
	log      *slog.Logger
}

func NewService(repo Repository, crm CRM, notifier Notifier, location *time.Location, log *slog.Logger) *Service {
	if location == nil {
		location = time.UTC
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{repo: repo, crm: crm, notifier: notifier, location: location, log: log}
}

func (s *Service) Create(ctx context.Context, req CreateRequest) (Inquiry, error) {
	source := strings.ToLower(strings.TrimSpace(req.Source))
	if source == "" {
		source = SourceContact
		if req.PropertyID != "" {
			source = SourceProperty
		}
	}
	if !IsValidSource(source) {
		return Inquiry{}, ErrInvalidSource
	}

	now := time.Now().In(s.location)
	item := Inquiry{
		ID:           primitive.NewObjectID().Hex(),
		Name:         strings.TrimSpace(req.Name),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		Phone:        strings.TrimSpace(req.Phone),
		Message:      strings.TrimSpace(req.Message),
		Source:       source,
		PropertyID:   strings.TrimSpace(req.PropertyID),
		PropertyName: strings.TrimSpace(req.PropertyName),
		Preferences:  req.preferences(),
		Status:       StatusNew,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Create(ctx, item); err != nil {
		return Inquiry{}, err
	}
	return item, nil
}

// Submit stores the inquiry and pushes it to the CRM. A CRM failure is logged and
// leaves the inquiry with CRMSynced false; only a storage failure is an error.
func (s *Service) Submit(ctx context.Context, req CreateRequest) (Inquiry, error) {
	item, err := s.Create(ctx, req)
	if err != nil {
		return Inquiry{}, err
	}
	if synced, err := s.sync(ctx, item); err != nil {
		s.log.Warn("inquiry crm: sync failed", slog.String("inquiry_id", item.ID), slog.String("error", err.Error()))
	} else {
		item = synced
	}
	return item, nil
}

// Resync retries the CRM push for one stored inquiry.
func (s *Service) Resync(ctx context.Context, id string) (Inquiry, error) {
	item, err := s.GetAdminByID(ctx, id)
	if err != nil {
		return Inquiry{}, err
	}
	if item.CRMSynced {
		return item, nil
	}
	return s.sync(ctx, item)
}

func (s *Service) sync(ctx context.Context, item Inquiry) (Inquiry, error) {
	if s.crm == nil {
		return item, zoho.ErrNotConfigured
	}
	leadID, err := s.crm.CreateLead(ctx, toLead(item))
	if err != nil {
		return item, err
	}
	now := time.Now().In(s.location)
	if err := s.repo.MarkSynced(ctx, item.ID, leadID, now); err != nil {
		return item, fmt.Errorf("mark synced: %w", err)
	}
	item.CRMSynced = true
	item.CRMLeadID = leadID
	item.UpdatedAt = now
	return item, nil
}

func (s *Service) NotifyNew(ctx context.Context, item Inquiry) error {
	if s.notifier == nil {
		return nil
	}
	_, err := s.notifier.SendInquiryNotification(ctx, item)
	return err
}

func toLead(item Inquiry) zoho.Lead {
	first, last := splitName(item.Name)
	var desc []string
	if item.Message != "" {
		desc = append(desc, item.Message)
	}
	if item.PropertyName != "" {
		desc = append(desc, "Property: "+item.PropertyName)
	}
	if p := item.Preferences; p != nil {
		if p.Budget != "" {
			desc = append(desc, "Budget: "+p.Budget)
		}
		if p.Possession != "" {
			desc = append(desc, "Possession: "+p.Possession)
		}
		if p.Configuration != "" {
			desc = append(desc, "Configuration: "+p.Configuration)
		}
		if len(p.Locations) > 0 {
			desc = append(desc, "Locations: "+strings.Join(p.Locations, ", "))
		}
	}
	return zoho.Lead{
		FirstName:   first,
		LastName:    last,
		Email:       item.Email,
		Phone:       item.Phone,
		City:        "Hyderabad",
		LeadSource:  "Website - " + item.Source,
		Description: strings.Join(desc, "\n"),
	}
}

// splitName puts everything but the last word in the first name. Zoho requires a last name.
func splitName(name string) (string, string) {
	parts := strings.Fields(name)
	switch len(parts) {
	case 0:
		return "", "Website Lead"
	case 1:
		return "", parts[0]
	}
	return strings.Join(parts[:len(parts)-1], " "), parts[len(parts)-1]
}

func (s *Service) ListAdmin(ctx context.Context, filter ListFilter, limit, offset int64) ([]Inquiry, int64, error) {
	filter.Status = strings.ToLower(strings.TrimSpace(filter.Status))
	filter.Source = strings.ToLower(strings.TrimSpace(filter.Source))

	if filter.Status != "" && !IsValidStatus(filter.Status) {
		return nil, 0, ErrInvalidStatus
	}
	if filter.Source != "" && !IsValidSource(filter.Source) {
		return nil, 0, ErrInvalidSource
	}

	items, err := s.repo.List(ctx, filter, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.repo.Count(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (s *Service) GetAdminByID(ctx context.Context, id string) (Inquiry, error) {
	item, err := s.repo.GetByID(ctx, strings.TrimSpace(id))
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return Inquiry{}, ErrNotFound
		}
		return Inquiry{}, err
	}
	return item, nil
}

func (s *Service) UpdateStatus(ctx context.Context, id, status string) (Inquiry, error) {
	status = strings.ToLower(strings.TrimSpace(status))
	if !IsValidStatus(status) {
		return Inquiry{}, ErrInvalidStatus
	}

	updated, err := s.repo.UpdateStatus(ctx, strings.TrimSpace(id), status, time.Now().In(s.location))
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return Inquiry{}, ErrNotFound
		}
		return Inquiry{}, err
	}
	return updated, nil
}
