// Package store persists finished verifications and their permits. It is the
// session's Sink.
package store

import (
	"context"
	"math/big"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/quantumauth-io/quantum-go-utils/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/quantumauth-io/permit-gateway/internal/permit-gateway/signing"
)

var ErrNotFound = errors.New("no authorization recorded")

type Store struct {
	db *gorm.DB
}

// Open connects to dsn and migrates the schema. A postgres:// URL selects
// Postgres; anything else is a SQLite path or file: URI.
func Open(dsn string) (*Store, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, errors.New("store: dsn is empty")
	}

	var dialector gorm.Dialector
	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		dialector = postgres.Open(dsn)
	default:
		if err := ensureDir(dsn); err != nil {
			return nil, err
		}
		dialector = sqlite.Open(dsn)
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, errors.Wrap(err, "open database")
	}
	return New(db)
}

// New wraps an open connection and migrates the schema.
func New(db *gorm.DB) (*Store, error) {
	if db == nil {
		return nil, errors.New("store: db is nil")
	}
	if err := AutoMigrate(db); err != nil {
		return nil, errors.Wrap(err, "migrate")
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// SaveAuthorization records the verification and replaces any earlier permit
// for the same principal, owner and chain. Everything happens in one
// transaction.
func (s *Store) SaveAuthorization(ctx context.Context, principal string, record signing.VerificationRecord, permits []signing.PermitResult) error {
	principal = strings.TrimSpace(principal)
	if principal == "" {
		return errors.New("store: principal is empty")
	}

	auth := AuthorizationRecord{
		ID:        uuid.New(),
		Principal: principal,
		Address:   canonical(record.Address),
		Message:   record.Message,
		Signature: record.Signature.String(),
		SignedAt:  record.CreatedAt.UTC(),
	}

	rows := make([]PermitRecord, 0, len(permits))
	for _, p := range permits {
		rows = append(rows, PermitRecord{
			ID:              uuid.New(),
			AuthorizationID: auth.ID,
			Principal:       principal,
			Owner:           canonical(p.Request.Owner),
			ChainID:         p.Request.ChainID,
			Token:           canonical(p.TokenAddress),
			Spender:         canonical(p.Request.Spender),
			Value:           decimalString(p.Request.Value),
			Nonce:           decimalString(p.Request.Nonce),
			Deadline:        decimalString(p.Request.Deadline),
			Signature:       p.Signature.String(),
		})
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&auth).Error; err != nil {
			return errors.Wrap(err, "insert authorization")
		}
		if len(rows) == 0 {
			return nil
		}
		for _, r := range rows {
			if err := tx.
				Where("principal = ? AND owner = ? AND chain_id = ?", principal, r.Owner, r.ChainID).
				Delete(&PermitRecord{}).Error; err != nil {
				return errors.Wrapf(err, "delete superseded permit on chain %d", r.ChainID)
			}
		}
		if err := tx.Create(&rows).Error; err != nil {
			return errors.Wrap(err, "insert permits")
		}
		return nil
	})
	if err != nil {
		return err
	}

	log.Info("authorization stored", "id", auth.ID.String(), "principal", principal, "address", auth.Address, "permits", len(rows))
	return nil
}

// ListPermits returns the principal's current permits ordered by chain.
func (s *Store) ListPermits(ctx context.Context, principal string) ([]signing.PermitResult, error) {
	var rows []PermitRecord
	if err := s.db.WithContext(ctx).
		Where("principal = ?", principal).
		Order("chain_id ASC, owner ASC").
		Find(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "list permits")
	}

	out := make([]signing.PermitResult, 0, len(rows))
	for _, r := range rows {
		p, err := r.toPermit()
		if err != nil {
			return nil, errors.Wrapf(err, "permit %s", r.ID)
		}
		out = append(out, p)
	}
	return out, nil
}

// LatestVerification returns the most recent verification filed under
// principal, or ErrNotFound.
func (s *Store) LatestVerification(ctx context.Context, principal string) (signing.VerificationRecord, error) {
	var row AuthorizationRecord
	err := s.db.WithContext(ctx).
		Where("principal = ?", principal).
		Order("signed_at DESC, created_at DESC").
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return signing.VerificationRecord{}, ErrNotFound
	}
	if err != nil {
		return signing.VerificationRecord{}, errors.Wrap(err, "latest verification")
	}

	sig, err := hexutil.Decode(row.Signature)
	if err != nil {
		return signing.VerificationRecord{}, errors.Wrap(err, "decode signature")
	}
	return signing.VerificationRecord{
		Address:   common.HexToAddress(row.Address),
		Message:   row.Message,
		Signature: sig,
		CreatedAt: row.SignedAt.UTC(),
	}, nil
}

func (r PermitRecord) toPermit() (signing.PermitResult, error) {
	sig, err := hexutil.Decode(r.Signature)
	if err != nil {
		return signing.PermitResult{}, errors.Wrap(err, "decode signature")
	}
	value, err := parseDecimal("value", r.Value)
	if err != nil {
		return signing.PermitResult{}, err
	}
	nonce, err := parseDecimal("nonce", r.Nonce)
	if err != nil {
		return signing.PermitResult{}, err
	}
	deadline, err := parseDecimal("deadline", r.Deadline)
	if err != nil {
		return signing.PermitResult{}, err
	}

	return signing.PermitResult{
		Request: signing.PermitRequest{
			Owner:    common.HexToAddress(r.Owner),
			Spender:  common.HexToAddress(r.Spender),
			Value:    value,
			Nonce:    nonce,
			Deadline: deadline,
			ChainID:  r.ChainID,
		},
		Signature:    sig,
		TokenAddress: common.HexToAddress(r.Token),
	}, nil
}

func canonical(a common.Address) string {
	return strings.ToLower(a.Hex())
}

func decimalString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func parseDecimal(field, s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, errors.Newf("invalid %s %q", field, s)
	}
	return v, nil
}

func ensureDir(dsn string) error {
	if strings.HasPrefix(dsn, "file:") || strings.Contains(dsn, ":memory:") {
		return nil
	}
	dir := filepath.Dir(dsn)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return errors.Wrapf(err, "create store directory %s", dir)
	}
	return nil
}
