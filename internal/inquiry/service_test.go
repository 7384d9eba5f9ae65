package inquiry

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	"realty-backend/internal/zoho"
)

type fakeRepo struct {
	items map[string]Inquiry
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{items: map[string]Inquiry{}}
}

func (f *fakeRepo) Create(ctx context.Context, item Inquiry) error {
	f.items[item.ID] = item
	return nil
}

func (f *fakeRepo) List(ctx context.Context, filter ListFilter, limit, offset int64) ([]Inquiry, error) {
	var out []Inquiry
	for _, item := range f.items {
		if filter.Status != "" && item.Status != filter.Status {
			continue
		}
		if filter.Unsynced && item.CRMSynced {
			continue
		}
		out = append(out, item)
	}
	return out, nil
}

func (f *fakeRepo) Count(ctx context.Context, filter ListFilter) (int64, error) {
	items, _ := f.List(ctx, filter, 0, 0)
	return int64(len(items)), nil
}

func (f *fakeRepo) GetByID(ctx context.Context, id string) (Inquiry, error) {
	item, ok := f.items[id]
	if !ok {
		return Inquiry{}, mongo.ErrNoDocuments
	}
	return item, nil
}

func (f *fakeRepo) UpdateStatus(ctx context.Context, id string, status string, now time.Time) (Inquiry, error) {
	item, ok := f.items[id]
	if !ok {
		return Inquiry{}, mongo.ErrNoDocuments
	}
	item.Status = status
	item.UpdatedAt = now
	f.items[id] = item
	return item, nil
}

func (f *fakeRepo) MarkSynced(ctx context.Context, id, leadID string, now time.Time) error {
	item, ok := f.items[id]
	if !ok {
		return mongo.ErrNoDocuments
	}
	item.CRMSynced = true
	item.CRMLeadID = leadID
	f.items[id] = item
	return nil
}

type fakeCRM struct {
	err   error
	leads []zoho.Lead
}

func (f *fakeCRM) CreateLead(ctx context.Context, lead zoho.Lead) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.leads = append(f.leads, lead)
	return "lead-1", nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSubmitPushesLead(t *testing.T) {
	repo := newFakeRepo()
	crm := &fakeCRM{}
	svc := NewService(repo, crm, nil, time.UTC, quietLogger())

	item, err := svc.Submit(context.Background(), CreateRequest{
		Name:          "Priya Lakshmi Rao",
		Phone:         "+91 98765 43210",
		Email:         "Priya@Example.com",
		Source:        "wizard",
		Budget:        "50-75-lakhs",
		Configuration: "3 BHK",
		Locations:     []string{"Kokapet", "Narsingi"},
	})
	if err != nil {
		t.Fatalf("Submit error: %v", err)
	}
	if !item.CRMSynced || item.CRMLeadID != "lead-1" || !repo.items[item.ID].CRMSynced {
		t.Fatalf("expected synced inquiry, got %+v", item)
	}
	lead := crm.leads[0]
	if lead.FirstName != "Priya Lakshmi" || lead.LastName != "Rao" || lead.Email != "priya@example.com" {
		t.Fatalf("unexpected lead %+v", lead)
	}
	if !strings.Contains(lead.Description, "Budget: 50-75-lakhs") || !strings.Contains(lead.Description, "Kokapet, Narsingi") {
		t.Fatalf("unexpected description %q", lead.Description)
	}
}

func TestSubmitKeepsInquiryWhenCRMFails(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, &fakeCRM{err: zoho.ErrUnauthorized}, nil, time.UTC, quietLogger())

	item, err := svc.Submit(context.Background(), CreateRequest{Name: "Arun", Phone: "9876543210"})
	if err != nil {
		t.Fatalf("CRM failure must not fail the submit: %v", err)
	}
	if item.CRMSynced || repo.items[item.ID].ID == "" {
		t.Fatalf("expected stored unsynced inquiry, got %+v", item)
	}
	if item.Source != SourceContact || item.Preferences != nil {
		t.Fatalf("unexpected defaults %+v", item)
	}

	unsynced, total, err := svc.ListAdmin(context.Background(), ListFilter{Unsynced: true}, 20, 0)
	if err != nil || total != 1 || len(unsynced) != 1 {
		t.Fatalf("expected one unsynced inquiry: %v %d", err, total)
	}
}

func TestResync(t *testing.T) {
	repo := newFakeRepo()
	crm := &fakeCRM{err: errors.New("down")}
	svc := NewService(repo, crm, nil, time.UTC, quietLogger())
	item, _ := svc.Submit(context.Background(), CreateRequest{Name: "Arun", Phone: "9876543210", PropertyID: "p1", PropertyName: "Skyline"})
	if item.Source != SourceProperty {
		t.Fatalf("property inquiries default to property source, got %q", item.Source)
	}

	crm.err = nil
	synced, err := svc.Resync(context.Background(), item.ID)
	if err != nil || !synced.CRMSynced {
		t.Fatalf("Resync = %+v, %v", synced, err)
	}
	if _, err := svc.Resync(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateStatus(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, nil, nil, time.UTC, quietLogger())
	item, _ := svc.Create(context.Background(), CreateRequest{Name: "Arun", Phone: "9876543210"})

	updated, err := svc.UpdateStatus(context.Background(), item.ID, " Contacted ")
	if err != nil || updated.Status != StatusContacted {
		t.Fatalf("UpdateStatus = %+v, %v", updated, err)
	}
	if _, err := svc.UpdateStatus(context.Background(), item.ID, "won"); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
	if _, err := svc.UpdateStatus(context.Background(), "missing", "closed"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

type fakeNotifier struct {
	sent []string
}

func (f *fakeNotifier) SendInquiryNotification(ctx context.Context, item Inquiry) (string, error) {
	f.sent = append(f.sent, item.ID)
	return "msg-1", nil
}

func TestNotifyNew(t *testing.T) {
	notifier := &fakeNotifier{}
	svc := NewService(newFakeRepo(), nil, notifier, time.UTC, quietLogger())
	item, _ := svc.Create(context.Background(), CreateRequest{Name: "Arun", Phone: "9876543210"})
	if err := svc.NotifyNew(context.Background(), item); err != nil || len(notifier.sent) != 1 || notifier.sent[0] != item.ID {
		t.Fatalf("expected one notification, got %v %v", notifier.sent, err)
	}

	if err := NewService(newFakeRepo(), nil, nil, time.UTC, quietLogger()).NotifyNew(context.Background(), item); err != nil {
		t.Fatalf("missing notifier is a no-op, got %v", err)
	}
}
