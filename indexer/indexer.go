package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"donex/core/events"
	"donex/observability/logging"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// Indexer persists contract events for history queries. It implements
// events.Emitter so it can sit on the node fanout.
type Indexer struct {
	db     *gorm.DB
	logger *slog.Logger
}

// Dialector picks the gorm driver for dsn: postgres:// and postgresql:// URLs
// use the Postgres driver, anything else is a SQLite path or URI.
func Dialector(dsn string) (gorm.Dialector, error) {
	trimmed := strings.TrimSpace(dsn)
	if trimmed == "" {
		return nil, errors.New("indexer: dsn required")
	}
	lower := strings.ToLower(trimmed)
	if strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://") {
		return postgres.Open(trimmed), nil
	}
	return sqlite.Open(trimmed), nil
}

// Open connects to dsn and migrates the schema.
func Open(dsn string, log *slog.Logger) (*Indexer, error) {
	dialector, err := Dialector(dsn)
	if err != nil {
		return nil, err
	}
	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("indexer: open: %w", err)
	}
	return New(db, log)
}

// New wraps an existing gorm handle and migrates the schema.
func New(db *gorm.DB, log *slog.Logger) (*Indexer, error) {
	if db == nil {
		return nil, errors.New("indexer: db required")
	}
	if err := AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("indexer: migrate: %w", err)
	}
	return &Indexer{db: db, logger: logging.OrDefault(log).With(slog.String("component", "indexer"))}, nil
}

// Close releases the underlying connection pool.
func (i *Indexer) Close() error {
	if i == nil || i.db == nil {
		return nil
	}
	sqlDB, err := i.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Emit records donation and link events. Other event types are ignored.
// Failures are logged; the node has already committed the call.
func (i *Indexer) Emit(evt events.Event) {
	if i == nil || evt == nil {
		return
	}
	if err := i.record(context.Background(), evt); err != nil {
		i.logger.Error("index event failed",
			slog.String("type", evt.EventType()),
			slog.String("error", err.Error()))
	}
}

func (i *Indexer) record(ctx context.Context, evt events.Event) error {
	generic := events.Generic(evt)
	height, _ := strconv.ParseUint(generic.Attr("height"), 10, 64)
	switch generic.Type {
	case events.TypeDonation:
		row := &Donation{
			ID:        uuid.New(),
			Height:    height,
			Donor:     generic.Attr("donor"),
			Recipient: generic.Attr("recipient"),
			Owner:     generic.Attr("owner"),
			Denom:     generic.Attr("denom"),
			Gross:     generic.Attr("gross"),
			Net:       generic.Attr("net"),
			Fee:       generic.Attr("fee"),
		}
		return i.db.WithContext(ctx).Create(row).Error
	case events.TypeSocialLinked:
		row := &SocialLink{
			ID:        uuid.New(),
			Height:    height,
			Address:   generic.Attr("address"),
			Platform:  generic.Attr("platform"),
			ProfileID: generic.Attr("profileId"),
		}
		return i.db.WithContext(ctx).Create(row).Error
	}
	return nil
}

// DonationFilter narrows ListDonations. Empty fields match everything.
type DonationFilter struct {
	Donor     string `json:"donor,omitempty"`
	Recipient string `json:"recipient,omitempty"`
	Limit     int    `json:"limit,omitempty"`
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return defaultListLimit
	case limit > maxListLimit:
		return maxListLimit
	default:
		return limit
	}
}

// ListDonations returns matching donations, newest first.
func (i *Indexer) ListDonations(ctx context.Context, filter DonationFilter) ([]Donation, error) {
	query := i.db.WithContext(ctx).Model(&Donation{})
	if donor := strings.TrimSpace(filter.Donor); donor != "" {
		query = query.Where("donor = ?", donor)
	}
	if recipient := strings.TrimSpace(filter.Recipient); recipient != "" {
		query = query.Where("recipient = ?", recipient)
	}
	var rows []Donation
	err := query.Order("height DESC").Order("created_at DESC").Limit(clampLimit(filter.Limit)).Find(&rows).Error
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []Donation{}
	}
	return rows, nil
}

// LinkHistory returns every recorded link submission for address, newest first.
func (i *Indexer) LinkHistory(ctx context.Context, address string, limit int) ([]SocialLink, error) {
	var rows []SocialLink
	err := i.db.WithContext(ctx).
		Where("address = ?", strings.TrimSpace(address)).
		Order("height DESC").
		Limit(clampLimit(limit)).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []SocialLink{}
	}
	return rows, nil
}
