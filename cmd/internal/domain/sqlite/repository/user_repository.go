package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"medappointments/cmd/internal/domain/entity"
)

type DefaultUserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *DefaultUserRepository {
	return &DefaultUserRepository{db: db}
}

func (u *DefaultUserRepository) FindByID(ctx context.Context, id int) (*entity.User, error) {
	return u.first(ctx, "id = ?", id)
}

func (u *DefaultUserRepository) FindBySub(ctx context.Context, sub string) (*entity.User, error) {
	return u.first(ctx, "sub_uuid = ?", sub)
}

func (u *DefaultUserRepository) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	return u.first(ctx, "email = ?", email)
}

func (u *DefaultUserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var count int64
	err := u.db.WithContext(ctx).Model(&entity.User{}).Where("email = ?", email).Count(&count).Error
	return count > 0, err
}

func (u *DefaultUserRepository) FindAll(ctx context.Context) ([]*entity.User, error) {
	var users []*entity.User
	err := u.db.WithContext(ctx).Order("id asc").Find(&users).Error
	return users, err
}

func (u *DefaultUserRepository) Save(ctx context.Context, user *entity.User) error {
	return u.db.WithContext(ctx).Save(user).Error
}

func (u *DefaultUserRepository) first(ctx context.Context, query string, args ...any) (*entity.User, error) {
	var user entity.User
	err := u.db.WithContext(ctx).Where(query, args...).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}
