package services

import (
	"context"
	"testing"
	"time"

	"github.com/haopham98/commerce/internal/domain"
	"github.com/haopham98/commerce/internal/infrastructure/memory"
	"github.com/haopham98/commerce/pkg/logger"

	"github.com/stretchr/testify/require"
)

type stubLeader struct {
	leader bool
}

func (s *stubLeader) BecomeLeader(context.Context, string) (bool, error) { return s.leader, nil }
func (s *stubLeader) IsLeader(context.Context, string) (bool, error)     { return s.leader, nil }
func (s *stubLeader) ReleaseLeadership(context.Context, string) error    { return nil }

func TestDeadlineSweeper_ClosesExpiredListings(t *testing.T) {
	t.Parallel()

	store := memory.NewStore()
	pub := &capturePublisher{}
	sweeper := NewDeadlineSweeper(store, pub, &stubLeader{leader: true}, "instance-1", logger.New())
	ctx := context.Background()

	past := time.Now().Add(-time.Minute)
	expired := seedListing(t, store, "owner1", "100")
	expired.EndDate = &past
	require.NoError(t, store.Create(ctx, expired))

	open := &domain.Listing{
		ID:          "listing-still-open",
		Title:       "open listing",
		StartingBid: expired.StartingBid,
		CurrentBid:  expired.StartingBid,
		IsActive:    true,
		OwnerID:     "owner1",
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	require.NoError(t, store.Create(ctx, open))

	sweeper.sweep(ctx)

	closed, err := store.Get(ctx, expired.ID)
	require.NoError(t, err)
	require.False(t, closed.IsActive)
	require.True(t, closed.WonPrice.Equal(expired.CurrentBid))

	stillOpen, err := store.Get(ctx, open.ID)
	require.NoError(t, err)
	require.True(t, stillOpen.IsActive)

	require.Len(t, pub.byType(domain.ListingClosed), 1)
}

func TestDeadlineSweeper_NonLeaderDoesNothing(t *testing.T) {
	t.Parallel()

	store := memory.NewStore()
	sweeper := NewDeadlineSweeper(store, &capturePublisher{}, &stubLeader{leader: false}, "instance-2", logger.New())
	ctx := context.Background()

	past := time.Now().Add(-time.Minute)
	expired := seedListing(t, store, "owner1", "100")
	expired.EndDate = &past
	require.NoError(t, store.Create(ctx, expired))

	sweeper.sweep(ctx)

	listing, err := store.Get(ctx, expired.ID)
	require.NoError(t, err)
	require.True(t, listing.IsActive, "non-leader instances must not close listings")
}
