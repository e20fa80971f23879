package handler

import (
	"github.com/comprai/comprai/internal/model"
	"github.com/comprai/comprai/internal/store"
)

// Access answers whether a user may view or edit a list. Owners always have
// edit rights; members have whatever their membership grants.
type Access struct {
	lists   *store.ListStore
	members *store.MembershipStore
}

func NewAccess(lists *store.ListStore, members *store.MembershipStore) *Access {
	return &Access{lists: lists, members: members}
}

// CanView reports whether the user is the owner or an active member.
func (a *Access) CanView(listID, userID int64) (bool, error) {
	list, err := a.lists.GetByID(listID)
	if err != nil || list == nil {
		return false, err
	}
	if list.OwnerID == userID {
		return true, nil
	}
	m, err := a.members.Get(listID, userID)
	if err != nil {
		return false, err
	}
	return m != nil && m.Active, nil
}

// CanEdit reports whether the user is the owner or an active member with
// edit permission.
func (a *Access) CanEdit(listID, userID int64) (bool, error) {
	list, err := a.lists.GetByID(listID)
	if err != nil || list == nil {
		return false, err
	}
	if list.OwnerID == userID {
		return true, nil
	}
	m, err := a.members.Get(listID, userID)
	if err != nil {
		return false, err
	}
	return m != nil && m.Active && m.Permission == model.PermissionEdit, nil
}

// IsOwner reports whether the user owns the list.
func (a *Access) IsOwner(listID, userID int64) (bool, error) {
	list, err := a.lists.GetByID(listID)
	if err != nil || list == nil {
		return false, err
	}
	return list.OwnerID == userID, nil
}
