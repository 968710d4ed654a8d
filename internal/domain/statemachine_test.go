package domain

import (
	"errors"
	"testing"
	"time"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		name string
		from OrderStatus
		to   OrderStatus
		role Role
		want error
	}{
		{"client starts search", StatusOpen, StatusActiveSearch, RoleClient, nil},
		{"system drives first proposal", StatusOpen, StatusProposed, RoleSystem, nil},
		{"client may not fake a proposal", StatusOpen, StatusProposed, RoleClient, ErrForbiddenTransition},
		{"client accepts", StatusProposed, StatusAccepted, RoleClient, nil},
		{"master may not self-accept", StatusProposed, StatusAccepted, RoleMaster, ErrForbiddenTransition},
		{"master starts work", StatusAccepted, StatusInProgress, RoleMaster, nil},
		{"client may not start work", StatusAccepted, StatusInProgress, RoleClient, ErrForbiddenTransition},
		{"client completes", StatusInProgress, StatusCompleted, RoleClient, nil},
		{"master may not complete", StatusInProgress, StatusCompleted, RoleMaster, ErrForbiddenTransition},
		{"no skipping to completed", StatusOpen, StatusCompleted, RoleAdmin, ErrInvalidTransition},
		{"no reopening accepted", StatusAccepted, StatusOpen, RoleAdmin, ErrInvalidTransition},
		{"completed is terminal", StatusCompleted, StatusCancelled, RoleAdmin, ErrInvalidTransition},
		{"cancelled is terminal", StatusCancelled, StatusOpen, RoleAdmin, ErrInvalidTransition},
		{"exchanged is terminal", StatusExchanged, StatusOpen, RoleAdmin, ErrInvalidTransition},
		{"restore from deleted", StatusDeleted, StatusOpen, RoleClient, nil},
		{"deleted reachable only back to open", StatusDeleted, StatusCancelled, RoleClient, ErrInvalidTransition},
		{"cancel in progress", StatusInProgress, StatusCancelled, RoleClient, nil},
		{"master cancel in progress forbidden", StatusInProgress, StatusCancelled, RoleMaster, ErrForbiddenTransition},
		{"admin anywhere legal", StatusProposed, StatusAccepted, RoleAdmin, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := CanTransition(tc.from, tc.to, tc.role)
			if !errors.Is(got, tc.want) && got != tc.want {
				t.Errorf("CanTransition(%s, %s, %s) = %v, want %v", tc.from, tc.to, tc.role, got, tc.want)
			}
		})
	}
}

func TestTransitionClearsAgreedPriceOnCancel(t *testing.T) {
	price := int64(500_00)
	o := &Order{Status: StatusAccepted, AgreedPrice: &price, MasterID: "m1"}
	if err := o.Transition(StatusCancelled, RoleClient); err != nil {
		t.Fatalf("Transition to cancelled: %v", err)
	}
	if o.AgreedPrice != nil {
		t.Errorf("AgreedPrice survived cancellation: %d", *o.AgreedPrice)
	}
}

func TestTransitionRestoreResetsOrder(t *testing.T) {
	price := int64(500_00)
	now := time.Now()
	o := &Order{Status: StatusDeleted, AgreedPrice: &price, MasterID: "m1", DeletedAt: &now}
	if err := o.Transition(StatusOpen, RoleClient); err != nil {
		t.Fatalf("Transition to open: %v", err)
	}
	if o.AgreedPrice != nil || o.MasterID != "" || o.DeletedAt != nil {
		t.Errorf("restore left residue: price=%v master=%q deleted=%v", o.AgreedPrice, o.MasterID, o.DeletedAt)
	}
}

func TestTransitionRejectedEdgeLeavesOrderUntouched(t *testing.T) {
	price := int64(500_00)
	o := &Order{Status: StatusCompleted, AgreedPrice: &price}
	if err := o.Transition(StatusCancelled, RoleAdmin); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	if o.Status != StatusCompleted || o.AgreedPrice == nil {
		t.Errorf("failed transition mutated order: status=%s", o.Status)
	}
}
