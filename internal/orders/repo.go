package orders

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	dbpkg "github.com/teakline/storefront-backend/pkg/db"
	"github.com/teakline/storefront-backend/pkg/db/models"
	"github.com/teakline/storefront-backend/pkg/enums"
)

// Repository exposes persistence for orders and their append-only history
// tables. Lookups that feed a mutation take lock=true so the caller holds the
// row until its transaction commits.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) error
	CreateItems(ctx context.Context, items []models.OrderItem) error
	CreateAddresses(ctx context.Context, addresses []models.OrderAddress) error
	FindByID(ctx context.Context, id uuid.UUID, lock bool) (*models.Order, error)
	FindByIDForUser(ctx context.Context, id, userID uuid.UUID) (*models.Order, error)
	FindByGatewayOrderID(ctx context.Context, gatewayOrderID string, lock bool) (*models.Order, error)
	ListForUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Order, error)
	ListUnpaidGatewayBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error)
	UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) error
	InsertStatusHistory(ctx context.Context, row *models.OrderStatusHistory) error
	InsertPaymentHistory(ctx context.Context, row *models.OrderPaymentHistory) error
	NumberExists(ctx context.Context, orderNumber string) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(order).Error
}

func (r *repository) CreateItems(ctx context.Context, items []models.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&items).Error
}

func (r *repository) CreateAddresses(ctx context.Context, addresses []models.OrderAddress) error {
	if len(addresses) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&addresses).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID, lock bool) (*models.Order, error) {
	return r.findOne(ctx, lock, "id = ?", id)
}

func (r *repository) FindByIDForUser(ctx context.Context, id, userID uuid.UUID) (*models.Order, error) {
	return r.findOne(ctx, false, "id = ? AND user_id = ?", id, userID)
}

func (r *repository) FindByGatewayOrderID(ctx context.Context, gatewayOrderID string, lock bool) (*models.Order, error) {
	return r.findOne(ctx, lock, "gateway_order_id = ?", gatewayOrderID)
}

func (r *repository) findOne(ctx context.Context, lock bool, query string, args ...any) (*models.Order, error) {
	q := r.db.WithContext(ctx).
		Preload("Items").
		Preload("Addresses").
		Preload("StatusHistory", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		})
	if lock && dbpkg.SupportsRowLocking(r.db.Dialector.Name()) {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var order models.Order
	err := q.Where(query, args...).First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

func (r *repository) ListForUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Order, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	var rows []models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&rows).Error
	return rows, err
}

// ListUnpaidGatewayBefore returns gateway orders still awaiting payment whose
// checkout happened before the cutoff. The expiry job cancels them.
func (r *repository) ListUnpaidGatewayBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []models.Order
	err := r.db.WithContext(ctx).
		Where("payment_method = ?", enums.PaymentMethodGateway).
		Where("payment_status IN ?", []enums.PaymentStatus{enums.PaymentStatusUnpaid, enums.PaymentStatusPending}).
		Where("status NOT IN ?", []enums.OrderStatus{enums.OrderStatusCancelled, enums.OrderStatusDelivered}).
		Where("created_at < ?", cutoff).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (r *repository) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		Updates(fields).Error
}

func (r *repository) InsertStatusHistory(ctx context.Context, row *models.OrderStatusHistory) error {
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(row).Error
}

func (r *repository) InsertPaymentHistory(ctx context.Context, row *models.OrderPaymentHistory) error {
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(row).Error
}

func (r *repository) NumberExists(ctx context.Context, orderNumber string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("order_number = ?", orderNumber).
		Count(&count).Error
	return count > 0, err
}
