package users

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/meltedmeethas/storefront-backend/pkg/db/models"
	"github.com/meltedmeethas/storefront-backend/pkg/enums"
)

// Repository exposes user-related persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a users repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new user and returns the persisted model.
func (r *Repository) Create(ctx context.Context, dto CreateUserDTO) (*models.User, error) {
	user := dto.ToModel()
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// FindByEmail retrieves the user matching the provided email exactly.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByID loads a user by their UUID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// CurrentRole returns the stored role of the user. found is false when the
// account no longer exists.
func (r *Repository) CurrentRole(ctx context.Context, id uuid.UUID) (role enums.UserRole, found bool, err error) {
	var rows []models.User
	err = r.db.WithContext(ctx).
		Model(&models.User{}).
		Select("role").
		Where("id = ?", id).
		Limit(1).
		Find(&rows).Error
	if err != nil || len(rows) == 0 {
		return "", false, err
	}
	return rows[0].Role, true, nil
}

// UpdateLastLogin refreshes the user's last_login_at timestamp.
func (r *Repository) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		UpdateColumn("last_login_at", at).Error
}

// UpdatePassword overwrites the stored bcrypt hash.
func (r *Repository) UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error {
	return r.updateColumns(ctx, id, map[string]any{"password_hash": hash})
}

// UpdateProfile overwrites the shipping profile columns.
func (r *Repository) UpdateProfile(ctx context.Context, id uuid.UUID, profile ProfileDTO) (*models.User, error) {
	if err := r.updateColumns(ctx, id, map[string]any{
		"phone":   profile.Phone,
		"address": profile.Address,
		"city":    profile.City,
		"state":   profile.State,
		"pincode": profile.Pincode,
	}); err != nil {
		return nil, err
	}
	return r.FindByID(ctx, id)
}

// UpdateName overwrites the display name.
func (r *Repository) UpdateName(ctx context.Context, id uuid.UUID, name string) (*models.User, error) {
	if err := r.updateColumns(ctx, id, map[string]any{"name": name}); err != nil {
		return nil, err
	}
	return r.FindByID(ctx, id)
}

// Delete removes the user together with their cart rows and orders. Audit
// copies in deleted_orders are left untouched. Callers run it inside a
// transaction.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	conn := r.db.WithContext(ctx)
	orderIDs := conn.Model(&models.Order{}).Select("id").Where("user_id = ?", id)
	if err := conn.Where("order_id IN (?)", orderIDs).Delete(&models.OrderItem{}).Error; err != nil {
		return err
	}
	if err := conn.Where("user_id = ?", id).Delete(&models.Order{}).Error; err != nil {
		return err
	}
	if err := conn.Where("user_id = ?", id).Delete(&models.CartItem{}).Error; err != nil {
		return err
	}
	res := conn.Where("id = ?", id).Delete(&models.User{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *Repository) updateColumns(ctx context.Context, id uuid.UUID, values map[string]any) error {
	values["updated_at"] = time.Now().UTC()
	res := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		UpdateColumns(values)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
