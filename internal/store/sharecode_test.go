package store

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/comprai/comprai/internal/database"
	"github.com/comprai/comprai/internal/model"
)

func setupShareTestDB(t *testing.T) (*ShareCodeStore, *ListStore, *UserStore) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewShareCodeStore(db), NewListStore(db), NewUserStore(db)
}

func shareFixture(t *testing.T, ls *ListStore, us *UserStore) (*model.List, *model.User) {
	t.Helper()
	owner, err := us.Create("dona@example.com", "hash", "Dona")
	if err != nil {
		t.Fatalf("create owner: %v", err)
	}
	list, err := ls.Create("Churrasco", owner.ID)
	if err != nil {
		t.Fatalf("create list: %v", err)
	}
	return list, owner
}

func TestGenerateCode(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		code, err := GenerateCode()
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		if len(code) != 6 {
			t.Fatalf("code %q has length %d, want 6", code, len(code))
		}
		for _, c := range code {
			if !strings.ContainsRune(codeAlphabet, c) {
				t.Fatalf("code %q contains %q outside the alphabet", code, c)
			}
		}
		seen[code] = true
	}
	if len(seen) < 95 {
		t.Errorf("expected mostly unique codes, got %d distinct out of 100", len(seen))
	}
}

func TestShareCodeValidate(t *testing.T) {
	ss, ls, us := setupShareTestDB(t)
	list, owner := shareFixture(t, ls, us)

	code, err := ss.Create(list.ID, model.PermissionEdit, false, nil, owner.ID)
	if err != nil {
		t.Fatalf("create code: %v", err)
	}

	got, err := ss.Validate(code.Code)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if got.ListID != list.ID || got.Permission != model.PermissionEdit {
		t.Errorf("validated code = %+v", got)
	}
}

func TestShareCodeValidateNormalizesInput(t *testing.T) {
	ss, ls, us := setupShareTestDB(t)
	list, owner := shareFixture(t, ls, us)

	code, err := ss.Create(list.ID, model.PermissionReadonly, false, nil, owner.ID)
	if err != nil {
		t.Fatalf("create code: %v", err)
	}

	// Lowercase with surrounding whitespace still resolves.
	got, err := ss.Validate("  " + strings.ToLower(code.Code) + " ")
	if err != nil {
		t.Fatalf("validate normalized: %v", err)
	}
	if got.ID != code.ID {
		t.Errorf("resolved wrong code: %+v", got)
	}
}

func TestShareCodeNotFound(t *testing.T) {
	ss, _, _ := setupShareTestDB(t)

	_, err := ss.Validate("ZZZZZZ")
	if !errors.Is(err, ErrCodeNotFound) {
		t.Fatalf("err = %v, want ErrCodeNotFound", err)
	}
}

func TestShareCodeExpired(t *testing.T) {
	ss, ls, us := setupShareTestDB(t)
	list, owner := shareFixture(t, ls, us)

	past := time.Now().Add(-time.Hour)
	code, err := ss.Create(list.ID, model.PermissionEdit, false, &past, owner.ID)
	if err != nil {
		t.Fatalf("create code: %v", err)
	}

	_, err = ss.Validate(code.Code)
	if !errors.Is(err, ErrCodeExpired) {
		t.Fatalf("err = %v, want ErrCodeExpired", err)
	}
}

func TestShareCodeSingleUse(t *testing.T) {
	ss, ls, us := setupShareTestDB(t)
	list, owner := shareFixture(t, ls, us)

	guest, err := us.Create("bea@example.com", "hash", "Bea")
	if err != nil {
		t.Fatalf("create guest: %v", err)
	}

	code, err := ss.Create(list.ID, model.PermissionEdit, true, nil, owner.ID)
	if err != nil {
		t.Fatalf("create code: %v", err)
	}

	// First redemption succeeds.
	if _, err := ss.Validate(code.Code); err != nil {
		t.Fatalf("first validate: %v", err)
	}
	if err := ss.MarkUsed(code.ID, guest.ID); err != nil {
		t.Fatalf("mark used: %v", err)
	}

	// Second redemption is rejected.
	_, err = ss.Validate(code.Code)
	if !errors.Is(err, ErrCodeUsed) {
		t.Fatalf("err = %v, want ErrCodeUsed", err)
	}
}

func TestShareCodeListByList(t *testing.T) {
	ss, ls, us := setupShareTestDB(t)
	list, owner := shareFixture(t, ls, us)

	ss.Create(list.ID, model.PermissionEdit, false, nil, owner.ID)
	ss.Create(list.ID, model.PermissionReadonly, true, nil, owner.ID)

	codes, err := ss.ListByList(list.ID)
	if err != nil {
		t.Fatalf("list codes: %v", err)
	}
	if len(codes) != 2 {
		t.Fatalf("expected 2 codes, got %d", len(codes))
	}
}
