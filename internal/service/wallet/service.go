package wallet

import (
	"context"
	"time"

	"monopolyx-service/internal/model"
	appErr "monopolyx-service/pkg/errors"
	"monopolyx-service/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Service owns the durable chip balance. The game engines never touch gorm;
// buy-ins and cash-outs go through Debit and Credit, each a transaction
// that also writes a billing row.
type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

func (s *Service) GetWallet(ctx context.Context, userID int64) (*model.Wallet, error) {
	var wallet model.Wallet
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&wallet).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return &model.Wallet{UserID: userID}, nil
		}
		return nil, err
	}
	return &wallet, nil
}

// Debit takes amount off the balance, failing without mutation when the
// balance cannot cover it.
func (s *Service) Debit(ctx context.Context, userID int64, amount int64, reason string) error {
	if amount <= 0 {
		return appErr.ErrInvalidAmount
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		wallet, err := lockWallet(tx, userID)
		if err != nil {
			return err
		}
		if wallet.BalanceAvailable < amount {
			return appErr.ErrInsufficientBalance
		}
		wallet.BalanceAvailable -= amount
		wallet.TotalBuyIn += amount
		wallet.UpdatedAt = time.Now()
		if err := tx.Save(wallet).Error; err != nil {
			return err
		}
		return tx.Create(&model.BillingLog{
			UserID:       userID,
			Type:         reason,
			Delta:        -amount,
			BalanceAfter: wallet.BalanceAvailable,
		}).Error
	})
}

// Credit adds amount to the balance.
func (s *Service) Credit(ctx context.Context, userID int64, amount int64, reason string) error {
	if amount <= 0 {
		return appErr.ErrInvalidAmount
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		wallet, err := lockWallet(tx, userID)
		if err != nil {
			return err
		}
		wallet.BalanceAvailable += amount
		wallet.TotalCashOut += amount
		wallet.UpdatedAt = time.Now()
		if err := tx.Save(wallet).Error; err != nil {
			return err
		}
		return tx.Create(&model.BillingLog{
			UserID:       userID,
			Type:         reason,
			Delta:        amount,
			BalanceAfter: wallet.BalanceAvailable,
		}).Error
	})
	if err != nil {
		logger.Log.Error("wallet credit failed",
			zap.Int64("userID", userID),
			zap.Int64("amount", amount),
			zap.String("reason", reason),
			zap.Error(err),
		)
	}
	return err
}

func (s *Service) History(ctx context.Context, userID int64, limit int) ([]model.BillingLog, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var logs []model.BillingLog
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id DESC").
		Limit(limit).
		Find(&logs).Error
	return logs, err
}

func lockWallet(tx *gorm.DB, userID int64) (*model.Wallet, error) {
	var wallet model.Wallet
	err := tx.Where("user_id = ?", userID).FirstOrCreate(&wallet, model.Wallet{UserID: userID}).Error
	if err != nil {
		return nil, err
	}
	return &wallet, nil
}
