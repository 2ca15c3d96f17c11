package identity

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/valeclub/valeclub-backend/pkg/db/models"
	pkgerrors "github.com/valeclub/valeclub-backend/pkg/errors"
)

type fakeMembers struct {
	byID       map[uuid.UUID]*models.Member
	byAuthID   map[string]*models.Member
	byEmail    map[string]*models.Member
	repairs    []string
	repairFail error
}

func (f *fakeMembers) FindByID(ctx context.Context, id uuid.UUID) (*models.Member, error) {
	if m, ok := f.byID[id]; ok {
		return m, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeMembers) FindByExternalAuthID(ctx context.Context, authID string) (*models.Member, error) {
	if m, ok := f.byAuthID[authID]; ok {
		return m, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeMembers) FindByEmail(ctx context.Context, email string) (*models.Member, error) {
	if m, ok := f.byEmail[email]; ok {
		return m, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeMembers) UpdateExternalAuthID(ctx context.Context, id uuid.UUID, authID string) error {
	if f.repairFail != nil {
		return f.repairFail
	}
	f.repairs = append(f.repairs, authID)
	return nil
}

func strPtr(s string) *string { return &s }

func newResolverWithRepo(t *testing.T, repo memberRepository) *Resolver {
	t.Helper()
	r, err := NewResolver(repo, nil)
	if err != nil {
		t.Fatalf("new resolver: %v", err)
	}
	return r
}

func TestResolve_DocumentIDWinsOverEmail(t *testing.T) {
	byID := &models.Member{ID: uuid.New(), Email: "a@example.com"}
	byEmail := &models.Member{ID: uuid.New(), Email: "a@example.com"}
	repo := &fakeMembers{
		byID:    map[uuid.UUID]*models.Member{byID.ID: byID},
		byEmail: map[string]*models.Member{"a@example.com": byEmail},
	}
	r := newResolverWithRepo(t, repo)

	got, err := r.Resolve(context.Background(), Hint{
		DocumentID: &byID.ID,
		Email:      strPtr("a@example.com"),
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got.ID != byID.ID {
		t.Fatalf("expected id match to win, got %s", got.ID)
	}
	if len(repo.repairs) != 0 {
		t.Fatalf("no repair expected on exact match, got %v", repo.repairs)
	}
}

func TestResolve_DocumentIDFallsBackToAuthIDSpace(t *testing.T) {
	// The supplied document id is actually the auth subject of an existing
	// member whose row id differs.
	member := &models.Member{ID: uuid.New(), Email: "b@example.com"}
	docID := uuid.New()
	repo := &fakeMembers{
		byID:     map[uuid.UUID]*models.Member{},
		byAuthID: map[string]*models.Member{docID.String(): member},
	}
	r := newResolverWithRepo(t, repo)

	got, err := r.Resolve(context.Background(), Hint{DocumentID: &docID})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got.ID != member.ID {
		t.Fatalf("expected auth-id-space match, got %s", got.ID)
	}
}

func TestResolve_EmailHitRepairsAuthID(t *testing.T) {
	stale := "old-subject"
	member := &models.Member{ID: uuid.New(), Email: "c@example.com", ExternalAuthID: &stale}
	repo := &fakeMembers{
		byEmail: map[string]*models.Member{"c@example.com": member},
	}
	r := newResolverWithRepo(t, repo)

	got, err := r.Resolve(context.Background(), Hint{
		ExternalAuthID: strPtr("fresh-subject"),
		Email:          strPtr("c@example.com"),
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(repo.repairs) != 1 || repo.repairs[0] != "fresh-subject" {
		t.Fatalf("expected auth id repair, got %v", repo.repairs)
	}
	if got.ExternalAuthID == nil || *got.ExternalAuthID != "fresh-subject" {
		t.Fatalf("expected repaired auth id on returned record")
	}
}

func TestResolve_RepairFailureDoesNotFailResolution(t *testing.T) {
	member := &models.Member{ID: uuid.New(), Email: "d@example.com"}
	repo := &fakeMembers{
		byEmail:    map[string]*models.Member{"d@example.com": member},
		repairFail: gorm.ErrInvalidDB,
	}
	r := newResolverWithRepo(t, repo)

	got, err := r.Resolve(context.Background(), Hint{
		ExternalAuthID: strPtr("subject"),
		Email:          strPtr("d@example.com"),
	})
	if err != nil {
		t.Fatalf("resolution must survive repair failure: %v", err)
	}
	if got.ID != member.ID {
		t.Fatalf("unexpected member %s", got.ID)
	}
}

func TestResolve_ExhaustedChainIsNotFound(t *testing.T) {
	r := newResolverWithRepo(t, &fakeMembers{})
	id := uuid.New()
	_, err := r.Resolve(context.Background(), Hint{DocumentID: &id, Email: strPtr("x@example.com")})
	if err == nil {
		t.Fatal("expected error")
	}
	if pkgerrors.As(err).Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestResolve_EmptyHintRejected(t *testing.T) {
	r := newResolverWithRepo(t, &fakeMembers{})
	_, err := r.Resolve(context.Background(), Hint{})
	if err == nil {
		t.Fatal("expected error")
	}
	if pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}
