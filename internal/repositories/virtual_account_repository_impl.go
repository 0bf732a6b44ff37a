package repositories

import (
	"errors"
	"fmt"

	"kudi/internal/models"

	"gorm.io/gorm"
)

type virtualAccountRepository struct {
	db *gorm.DB
}

func NewVirtualAccountRepository(db *gorm.DB) VirtualAccountRepository {
	return &virtualAccountRepository{db: db}
}

func (r *virtualAccountRepository) Create(account *models.VirtualAccount) error {
	if err := r.db.Create(account).Error; err != nil {
		return fmt.Errorf("failed to create virtual account: %w", err)
	}
	return nil
}

func (r *virtualAccountRepository) GetByAccountNumber(accountNumber string) (*models.VirtualAccount, error) {
	var account models.VirtualAccount
	if err := r.db.Where("account_number = ?", accountNumber).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrVirtualAccountNotFound
		}
		return nil, fmt.Errorf("failed to get virtual account: %w", err)
	}
	return &account, nil
}

func (r *virtualAccountRepository) GetByUserID(userID uint) ([]models.VirtualAccount, error) {
	var accounts []models.VirtualAccount
	if err := r.db.Where("user_id = ?", userID).Find(&accounts).Error; err != nil {
		return nil, fmt.Errorf("failed to list virtual accounts: %w", err)
	}
	return accounts, nil
}

func (r *virtualAccountRepository) UpdateStatus(id uint, status string) error {
	result := r.db.Model(&models.VirtualAccount{}).Where("id = ?", id).Update("status", status)
	if result.Error != nil {
		return fmt.Errorf("failed to update virtual account status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrVirtualAccountNotFound
	}
	return nil
}
