package store

import (
	"testing"

	"github.com/comprai/comprai/internal/database"
	"github.com/comprai/comprai/internal/model"
)

func setupItemTestDB(t *testing.T) (*ItemStore, *ListStore, *UserStore) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewItemStore(db), NewListStore(db), NewUserStore(db)
}

func makeListWithOwner(t *testing.T, ls *ListStore, us *UserStore, email string) (*model.List, *model.User) {
	t.Helper()
	user, err := us.Create(email, "hash", "Tester")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	list, err := ls.Create("Compras da Semana", user.ID)
	if err != nil {
		t.Fatalf("create list: %v", err)
	}
	return list, user
}

func TestItemCreateAndList(t *testing.T) {
	is, ls, us := setupItemTestDB(t)
	list, user := makeListWithOwner(t, ls, us, "ana@example.com")

	item, err := is.Create(list.ID, "Arroz", 2, "kg", "Mercearia", &user.ID)
	if err != nil {
		t.Fatalf("create item: %v", err)
	}
	if item.ID == 0 || item.Name != "Arroz" || item.Quantity != 2 {
		t.Errorf("item = %+v", item)
	}
	if item.AddedBy == nil || *item.AddedBy != user.ID {
		t.Errorf("added_by = %v, want %d", item.AddedBy, user.ID)
	}

	items, err := is.ListByList(list.ID)
	if err != nil {
		t.Fatalf("list items: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
}

func TestItemListOrdersUncheckedFirst(t *testing.T) {
	is, ls, us := setupItemTestDB(t)
	list, user := makeListWithOwner(t, ls, us, "ana@example.com")

	first, _ := is.Create(list.ID, "Arroz", 1, "kg", "", &user.ID)
	second, _ := is.Create(list.ID, "Feijão", 1, "kg", "", &user.ID)

	if _, err := is.ToggleChecked(first.ID); err != nil {
		t.Fatalf("toggle: %v", err)
	}

	items, err := is.ListByList(list.ID)
	if err != nil {
		t.Fatalf("list items: %v", err)
	}
	if items[0].ID != second.ID {
		t.Errorf("unchecked item should sort first, got %q", items[0].Name)
	}
	if !items[1].Checked {
		t.Error("checked item should sort last")
	}
}

func TestItemSoftDeleteAndRestore(t *testing.T) {
	is, ls, us := setupItemTestDB(t)
	list, user := makeListWithOwner(t, ls, us, "ana@example.com")

	item, _ := is.Create(list.ID, "Leite", 1, "L", "", &user.ID)

	deleted, err := is.SoftDelete(item.ID)
	if err != nil {
		t.Fatalf("soft delete: %v", err)
	}
	if !deleted.Deleted || deleted.DeletedAt == nil {
		t.Errorf("deleted item = %+v", deleted)
	}

	// Gone from the active list, present in the deleted view.
	items, _ := is.ListByList(list.ID)
	if len(items) != 0 {
		t.Fatalf("active list should be empty, got %d items", len(items))
	}
	trashed, err := is.ListDeleted(list.ID)
	if err != nil {
		t.Fatalf("list deleted: %v", err)
	}
	if len(trashed) != 1 || trashed[0].ID != item.ID {
		t.Fatalf("deleted view = %+v", trashed)
	}

	restored, err := is.Restore(item.ID)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if restored.Deleted || restored.DeletedAt != nil {
		t.Errorf("restored item = %+v", restored)
	}

	items, _ = is.ListByList(list.ID)
	if len(items) != 1 {
		t.Fatalf("restored item should be back on the list, got %d items", len(items))
	}
	trashed, _ = is.ListDeleted(list.ID)
	if len(trashed) != 0 {
		t.Fatalf("deleted view should be empty after restore, got %d", len(trashed))
	}
}

func TestItemUpdate(t *testing.T) {
	is, ls, us := setupItemTestDB(t)
	list, user := makeListWithOwner(t, ls, us, "ana@example.com")

	item, _ := is.Create(list.ID, "Cafe", 1, "pct", "", &user.ID)

	updated, err := is.Update(item.ID, "Café", 2, "pct", "Mercearia")
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Name != "Café" || updated.Quantity != 2 || updated.Category != "Mercearia" {
		t.Errorf("updated = %+v", updated)
	}
}

func TestItemGetByIDMissing(t *testing.T) {
	is, _, _ := setupItemTestDB(t)

	item, err := is.GetByID(9999)
	if err != nil {
		t.Fatalf("get missing: %v", err)
	}
	if item != nil {
		t.Errorf("expected nil for missing item, got %+v", item)
	}
}

func TestAutocompleteNames(t *testing.T) {
	is, ls, us := setupItemTestDB(t)
	list, user := makeListWithOwner(t, ls, us, "ana@example.com")

	is.Create(list.ID, "Arroz Integral", 1, "kg", "", &user.ID)
	is.Create(list.ID, "Arroz Branco", 1, "kg", "", &user.ID)
	is.Create(list.ID, "Feijão", 1, "kg", "", &user.ID)

	names, err := is.AutocompleteNames(user.ID, "arr", 10)
	if err != nil {
		t.Fatalf("autocomplete: %v", err)
	}
	if len(names) != 2 {
		t.Fatalf("expected 2 matches, got %d (%v)", len(names), names)
	}
	for _, n := range names {
		if n != "Arroz Integral" && n != "Arroz Branco" {
			t.Errorf("unexpected match %q", n)
		}
	}
}
