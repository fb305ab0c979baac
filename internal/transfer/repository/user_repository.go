package repository

import (
	"context"
	"errors"

	"github.com/WinKyaw/InventSight-sub003/internal/transfer/entity"
	"gorm.io/gorm"
)

// UserRepository 用户仓库
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindByID 查找用户
func (r *UserRepository) FindByID(ctx context.Context, id string) (*entity.User, error) {
	var u entity.User
	err := r.db.WithContext(ctx).
		Where("id = ? AND deleted_at IS NULL", id).
		First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// LoadActor 组装权限引擎输入：用户 + 位置归属 + 仓库授权
func (r *UserRepository) LoadActor(ctx context.Context, userID string) (*entity.Actor, error) {
	user, err := r.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	var memberships []entity.UserLocation
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Find(&memberships).Error; err != nil {
		return nil, err
	}

	var grants []entity.WarehouseGrant
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Find(&grants).Error; err != nil {
		return nil, err
	}

	actor := &entity.Actor{
		UserID:          user.ID,
		CompanyID:       user.CompanyID,
		Name:            user.Name,
		Role:            user.Role,
		WarehouseGrants: make(map[string]string, len(grants)),
	}
	for _, m := range memberships {
		actor.Locations = append(actor.Locations, entity.LocationRef{Type: m.LocationType, ID: m.LocationID})
	}
	for _, g := range grants {
		actor.WarehouseGrants[g.WarehouseID] = g.Permission
	}
	return actor, nil
}
