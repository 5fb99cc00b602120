package services

import (
	"context"
	"errors"
	"time"

	"github.com/haopham98/commerce/internal/domain"
	"github.com/haopham98/commerce/pkg/logger"

	"github.com/robfig/cron/v3"
)

// DeadlineSweeper closes listings whose end_date has passed. It acts as
// the system on behalf of the owner, going through the same SetClosed
// primitive as an owner-initiated close. Leader election keeps a single
// sweeper active across instances.
type DeadlineSweeper struct {
	cron       *cron.Cron
	listings   domain.ListingStore
	events     domain.EventPublisher
	leader     domain.LeaderElection
	instanceID string
	log        logger.Logger
}

func NewDeadlineSweeper(
	listings domain.ListingStore,
	events domain.EventPublisher,
	leader domain.LeaderElection,
	instanceID string,
	log logger.Logger,
) *DeadlineSweeper {
	return &DeadlineSweeper{
		cron:       cron.New(cron.WithSeconds()),
		listings:   listings,
		events:     events,
		leader:     leader,
		instanceID: instanceID,
		log:        log,
	}
}

func (s *DeadlineSweeper) Start(ctx context.Context) error {
	s.log.Info("Starting deadline sweeper")

	_, err := s.cron.AddFunc("@every 1m", func() {
		s.sweep(ctx)
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	return nil
}

func (s *DeadlineSweeper) Stop() error {
	s.log.Info("Stopping deadline sweeper")
	s.cron.Stop()
	return nil
}

func (s *DeadlineSweeper) sweep(ctx context.Context) {
	isLeader, err := s.leader.IsLeader(ctx, s.instanceID)
	if err != nil {
		s.log.Error("Failed to check leadership", "error", err)
		return
	}
	if !isLeader {
		return
	}

	expired, err := s.listings.ListExpired(ctx, time.Now())
	if err != nil {
		s.log.Error("Failed to list expired listings", "error", err)
		return
	}

	for _, listing := range expired {
		if err := s.closeExpired(ctx, listing); err != nil {
			s.log.Error("Failed to close expired listing",
				"listing_id", listing.ID, "error", err)
		}
	}
}

func (s *DeadlineSweeper) closeExpired(ctx context.Context, listing *domain.Listing) error {
	err := s.listings.SetClosed(ctx, listing.ID, listing.CurrentBid)
	if err != nil {
		// An owner close can land between the sweep query and here.
		if errors.Is(err, domain.ErrAlreadyClosed) {
			return nil
		}
		return err
	}

	s.log.Info("Listing expired and closed", "listing_id", listing.ID,
		"end_date", listing.EndDate, "won_price", listing.CurrentBid.StringFixed(2))

	if s.events != nil {
		return s.events.PublishBidEvent(ctx, &domain.BidEvent{
			Type:      domain.ListingClosed,
			ListingID: listing.ID,
			Amount:    listing.CurrentBid,
			Timestamp: time.Now().UTC(),
		})
	}
	return nil
}
