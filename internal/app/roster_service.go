package app

import (
	"context"
	"fmt"
	"time"

	"standup_bot/internal/domain/roster"
	idb "standup_bot/internal/infra/database"
)

// RosterService handles roster membership and excusal management.
type RosterService struct {
	rosterRepo roster.Repository
}

func NewRosterService(rr roster.Repository) *RosterService {
	return &RosterService{rosterRepo: rr}
}

// AddMember adds a user to the workspace roster. A previously removed member
// is reactivated instead of duplicated.
func (s *RosterService) AddMember(ctx context.Context, workspaceID, userID, displayName string) (*roster.Member, error) {
	existing, err := s.rosterRepo.GetByUserID(ctx, workspaceID, userID)
	if err == nil {
		if existing.IsActive {
			return existing, nil
		}
		existing.IsActive = true
		existing.DisplayName = displayName
		if err := s.rosterRepo.Update(ctx, existing); err != nil {
			return nil, fmt.Errorf("reactivating roster member: %w", err)
		}
		return existing, nil
	}
	if err != idb.ErrMemberNotFound {
		return nil, fmt.Errorf("checking existing roster member: %w", err)
	}

	member := &roster.Member{
		WorkspaceID: workspaceID,
		UserID:      userID,
		DisplayName: displayName,
		IsActive:    true,
	}
	if err := s.rosterRepo.Create(ctx, member); err != nil {
		return nil, fmt.Errorf("creating roster member: %w", err)
	}
	return member, nil
}

// RemoveMember soft-deletes a member (active=false); history stays intact.
func (s *RosterService) RemoveMember(ctx context.Context, workspaceID, userID string) (*roster.Member, error) {
	member, err := s.rosterRepo.GetByUserID(ctx, workspaceID, userID)
	if err != nil {
		return nil, err
	}
	if !member.IsActive {
		return member, nil
	}
	member.IsActive = false
	if err := s.rosterRepo.Update(ctx, member); err != nil {
		return nil, fmt.Errorf("deactivating roster member: %w", err)
	}
	return member, nil
}

// AddExcusal records a date-range exemption for a member. Both bounds are
// inclusive whole days and start must not be after end.
func (s *RosterService) AddExcusal(ctx context.Context, workspaceID, userID string, start, end time.Time, reason string) (*roster.Excusal, error) {
	if start.After(end) {
		return nil, ErrInvalidExcusalRange
	}

	member, err := s.rosterRepo.GetByUserID(ctx, workspaceID, userID)
	if err != nil {
		return nil, err
	}

	excusal := &roster.Excusal{
		MemberID:  member.ID,
		StartDate: start,
		EndDate:   end,
		Reason:    reason,
	}
	if err := s.rosterRepo.AddExcusal(ctx, excusal); err != nil {
		return nil, fmt.Errorf("adding excusal: %w", err)
	}
	return excusal, nil
}

// RemoveExcusal deletes excusals of the member covering the given date and
// returns the number removed.
func (s *RosterService) RemoveExcusal(ctx context.Context, workspaceID, userID string, date time.Time) (int64, error) {
	member, err := s.rosterRepo.GetByUserID(ctx, workspaceID, userID)
	if err != nil {
		return 0, err
	}
	return s.rosterRepo.RemoveExcusal(ctx, member.ID, date)
}

// ListExcusals returns the member's excusals, newest first.
func (s *RosterService) ListExcusals(ctx context.Context, workspaceID, userID string) ([]*roster.Excusal, error) {
	member, err := s.rosterRepo.GetByUserID(ctx, workspaceID, userID)
	if err != nil {
		return nil, err
	}
	return s.rosterRepo.ListExcusalsByMember(ctx, member.ID)
}
