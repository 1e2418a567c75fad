package indexer

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Donation is one committed donation split.
type Donation struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Height    uint64    `gorm:"index" json:"height"`
	Donor     string    `gorm:"index" json:"donor"`
	Recipient string    `gorm:"index" json:"recipient"`
	Owner     string    `json:"owner"`
	Denom     string    `json:"denom"`
	Gross     string    `json:"gross"`
	Net       string    `json:"net"`
	Fee       string    `json:"fee"`
	CreatedAt time.Time `json:"createdAt"`
}

// SocialLink is one committed link submission. Overwrites in multi mode
// appear as separate rows.
type SocialLink struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Height    uint64    `gorm:"index" json:"height"`
	Address   string    `gorm:"index" json:"address"`
	Platform  string    `gorm:"index:idx_social" json:"platform"`
	ProfileID string    `gorm:"index:idx_social" json:"profileId"`
	CreatedAt time.Time `json:"createdAt"`
}

// AutoMigrate performs all schema migrations for the indexer.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&Donation{},
		&SocialLink{},
	)
}
