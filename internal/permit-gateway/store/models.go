package store

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AuthorizationRecord is one successful ownership verification.
type AuthorizationRecord struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Principal string    `gorm:"size:128;index"`
	Address   string    `gorm:"size:42;index"`
	Message   string    `gorm:"not null"`
	Signature string    `gorm:"size:132;not null"`
	SignedAt  time.Time `gorm:"index"`
	CreatedAt time.Time
	Permits   []PermitRecord `gorm:"foreignKey:AuthorizationID"`
}

// PermitRecord is the current permit for (principal, owner, chain). Amounts
// are base-10 strings so uint256 values survive every SQL backend.
type PermitRecord struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey"`
	AuthorizationID uuid.UUID `gorm:"type:uuid;index"`
	Principal       string    `gorm:"size:128;uniqueIndex:idx_permit_owner_chain"`
	Owner           string    `gorm:"size:42;uniqueIndex:idx_permit_owner_chain"`
	ChainID         uint64    `gorm:"uniqueIndex:idx_permit_owner_chain"`
	Token           string    `gorm:"size:42"`
	Spender         string    `gorm:"size:42"`
	Value           string    `gorm:"size:80"`
	Nonce           string    `gorm:"size:80"`
	Deadline        string    `gorm:"size:80"`
	Signature       string    `gorm:"size:132"`
	CreatedAt       time.Time
}

func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&AuthorizationRecord{},
		&PermitRecord{},
	)
}
