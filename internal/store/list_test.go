package store

import (
	"testing"

	"github.com/comprai/comprai/internal/database"
	"github.com/comprai/comprai/internal/model"
)

func setupListTestDB(t *testing.T) (*ListStore, *ItemStore, *MembershipStore, *UserStore) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewListStore(db), NewItemStore(db), NewMembershipStore(db), NewUserStore(db)
}

func TestListCRUD(t *testing.T) {
	ls, _, _, us := setupListTestDB(t)
	owner, _ := us.Create("dona@example.com", "hash", "Dona")

	list, err := ls.Create("Feira", owner.ID)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if list.ID == 0 || list.Name != "Feira" || list.OwnerID != owner.ID {
		t.Errorf("list = %+v", list)
	}

	renamed, err := ls.Rename(list.ID, "Feira do Sábado")
	if err != nil {
		t.Fatalf("rename: %v", err)
	}
	if renamed.Name != "Feira do Sábado" {
		t.Errorf("renamed = %+v", renamed)
	}

	if err := ls.Delete(list.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	got, err := ls.GetByID(list.ID)
	if err != nil {
		t.Fatalf("get after delete: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil after delete, got %+v", got)
	}
}

func TestListSummaries(t *testing.T) {
	ls, is, ms, us := setupListTestDB(t)

	owner, _ := us.Create("dona@example.com", "hash", "Dona")
	guest, _ := us.Create("bea@example.com", "hash", "Bea")

	owned, _ := ls.Create("Minha Lista", owner.ID)
	shared, _ := ls.Create("Lista da Dona", owner.ID)
	ms.Create(shared.ID, guest.ID, model.PermissionReadonly)

	// Two active items, one checked, one soft-deleted: counts must only see
	// the live rows.
	a, _ := is.Create(owned.ID, "Arroz", 1, "kg", "", &owner.ID)
	is.Create(owned.ID, "Feijão", 1, "kg", "", &owner.ID)
	deleted, _ := is.Create(owned.ID, "Leite", 1, "L", "", &owner.ID)
	is.ToggleChecked(a.ID)
	is.SoftDelete(deleted.ID)

	ownerView, err := ls.Summaries(owner.ID)
	if err != nil {
		t.Fatalf("owner summaries: %v", err)
	}
	if len(ownerView) != 2 {
		t.Fatalf("owner should see 2 lists, got %d", len(ownerView))
	}
	for _, s := range ownerView {
		if s.Permission != model.PermissionEdit {
			t.Errorf("owner permission on %q = %q, want edit", s.Name, s.Permission)
		}
		if s.ID == owned.ID {
			if s.ItemCount != 2 || s.CheckedCount != 1 {
				t.Errorf("counts = %d/%d, want 2/1", s.ItemCount, s.CheckedCount)
			}
		}
	}

	guestView, err := ls.Summaries(guest.ID)
	if err != nil {
		t.Fatalf("guest summaries: %v", err)
	}
	if len(guestView) != 1 {
		t.Fatalf("guest should see 1 list, got %d", len(guestView))
	}
	if guestView[0].ID != shared.ID || guestView[0].Permission != model.PermissionReadonly {
		t.Errorf("guest summary = %+v", guestView[0])
	}
}

func TestListSummariesExcludesInactiveMembership(t *testing.T) {
	ls, _, ms, us := setupListTestDB(t)

	owner, _ := us.Create("dona@example.com", "hash", "Dona")
	guest, _ := us.Create("bea@example.com", "hash", "Bea")
	shared, _ := ls.Create("Compras", owner.ID)

	ms.Create(shared.ID, guest.ID, model.PermissionEdit)
	ms.Deactivate(shared.ID, guest.ID)

	guestView, err := ls.Summaries(guest.ID)
	if err != nil {
		t.Fatalf("summaries: %v", err)
	}
	if len(guestView) != 0 {
		t.Fatalf("inactive member should see no lists, got %d", len(guestView))
	}
}
