package repository

import (
	"context"
	"errors"
	"time"

	"shop-insights/internal/domain"
	"shop-insights/internal/infrastructure/repository/entity"
	"shop-insights/internal/ports"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var tenantExternalColumns = []clause.Column{{Name: "tenant_id"}, {Name: "external_id"}}

// GormStore implements ports.Store on a relational database through GORM
type GormStore struct {
	db *gorm.DB
}

var _ ports.Store = (*GormStore)(nil)

// NewGormStore creates a store over an open GORM connection
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Tenants

func (s *GormStore) GetTenant(ctx context.Context, id domain.TenantID) (*domain.Tenant, error) {
	var model entity.TenantModel
	err := s.db.WithContext(ctx).Where("id = ?", uint(id)).First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrTenantNotFound
	}
	if err != nil {
		return nil, &domain.PersistenceError{Op: "get tenant", Err: err}
	}
	return model.ToDomain(), nil
}

func (s *GormStore) ListIngestableTenants(ctx context.Context) ([]*domain.Tenant, error) {
	var models []entity.TenantModel
	err := s.db.WithContext(ctx).
		Where("shop_domain <> '' AND access_token <> ''").
		Order("id").
		Find(&models).Error
	if err != nil {
		return nil, &domain.PersistenceError{Op: "list tenants", Err: err}
	}

	tenants := make([]*domain.Tenant, 0, len(models))
	for i := range models {
		tenants = append(tenants, models[i].ToDomain())
	}
	return tenants, nil
}

func (s *GormStore) SaveCredentials(ctx context.Context, id domain.TenantID, creds domain.Credentials, wipeData bool) (*domain.Tenant, error) {
	var saved entity.TenantModel
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if wipeData {
			if err := wipeTenantData(tx, uint(id)); err != nil {
				return err
			}
		}

		err := tx.Where("id = ?", uint(id)).First(&saved).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			saved = entity.TenantModel{
				ID:          uint(id),
				ShopDomain:  creds.ShopDomain,
				AccessToken: creds.AccessToken,
			}
			return tx.Create(&saved).Error
		}
		if err != nil {
			return err
		}

		// map form so empty strings are written on disconnect
		return tx.Model(&saved).Updates(map[string]interface{}{
			"shop_domain":  creds.ShopDomain,
			"access_token": creds.AccessToken,
		}).Error
	})
	if err != nil {
		return nil, &domain.PersistenceError{Op: "save tenant credentials", Err: err}
	}
	saved.ShopDomain = creds.ShopDomain
	saved.AccessToken = creds.AccessToken
	return saved.ToDomain(), nil
}

// wipeTenantData deletes every ingested row of a tenant, children first
func wipeTenantData(tx *gorm.DB, tenantID uint) error {
	orderIDs := tx.Model(&entity.OrderModel{}).Select("id").Where("tenant_id = ?", tenantID)
	if err := tx.Where("order_id IN (?)", orderIDs).Delete(&entity.OrderItemModel{}).Error; err != nil {
		return err
	}
	for _, model := range []interface{}{&entity.OrderModel{}, &entity.CustomerModel{}, &entity.ProductModel{}} {
		if err := tx.Where("tenant_id = ?", tenantID).Delete(model).Error; err != nil {
			return err
		}
	}
	return nil
}

// Ingestion upserts

func (s *GormStore) UpsertCustomer(ctx context.Context, tenantID domain.TenantID, rec domain.CustomerRecord) (uint, error) {
	id, err := upsertCustomer(s.db.WithContext(ctx), uint(tenantID), rec)
	if err != nil {
		return 0, &domain.PersistenceError{Op: "upsert customer", Err: err}
	}
	return id, nil
}

func (s *GormStore) UpsertProduct(ctx context.Context, tenantID domain.TenantID, rec domain.ProductRecord) (uint, error) {
	db := s.db.WithContext(ctx)
	row := entity.ProductModel{
		TenantID:   uint(tenantID),
		ExternalID: rec.ExternalID,
		Title:      rec.Title,
		Price:      rec.Price,
	}
	err := db.Clauses(clause.OnConflict{
		Columns:   tenantExternalColumns,
		DoUpdates: clause.AssignmentColumns([]string{"title", "price", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return 0, &domain.PersistenceError{Op: "upsert product", Err: err}
	}

	id, err := lookupID(db, &entity.ProductModel{}, uint(tenantID), rec.ExternalID)
	if err != nil {
		return 0, &domain.PersistenceError{Op: "upsert product", Err: err}
	}
	return id, nil
}

func (s *GormStore) UpsertOrder(ctx context.Context, tenantID domain.TenantID, rec domain.OrderRecord) (uint, error) {
	var orderID uint
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var customerID *uint
		if rec.Customer != nil && rec.Customer.ExternalID != "" {
			id, err := upsertCustomer(tx, uint(tenantID), *rec.Customer)
			if err != nil {
				return err
			}
			customerID = &id
		}

		row := entity.OrderModel{
			TenantID:   uint(tenantID),
			ExternalID: rec.ExternalID,
			CustomerID: customerID,
			TotalPrice: rec.TotalPrice,
			PlacedAt:   utcPtr(rec.PlacedAt),
		}
		err := tx.Clauses(clause.OnConflict{
			Columns:   tenantExternalColumns,
			DoUpdates: clause.AssignmentColumns([]string{"customer_id", "total_price", "placed_at", "updated_at"}),
		}).Create(&row).Error
		if err != nil {
			return err
		}

		orderID, err = lookupID(tx, &entity.OrderModel{}, uint(tenantID), rec.ExternalID)
		if err != nil {
			return err
		}

		// line items are replaced wholesale, never merged
		if err := tx.Where("order_id = ?", orderID).Delete(&entity.OrderItemModel{}).Error; err != nil {
			return err
		}
		if len(rec.Items) == 0 {
			return nil
		}

		items := make([]entity.OrderItemModel, 0, len(rec.Items))
		for _, item := range rec.Items {
			row := entity.OrderItemModel{
				OrderID:  orderID,
				Quantity: item.Quantity,
				Price:    item.Price,
			}
			if item.ProductExternalID != "" {
				productID, err := ensureProduct(tx, uint(tenantID), item)
				if err != nil {
					return err
				}
				row.ProductID = &productID
			}
			items = append(items, row)
		}
		return tx.Create(&items).Error
	})
	if err != nil {
		return 0, &domain.PersistenceError{Op: "upsert order", Err: err}
	}
	return orderID, nil
}

// upsertCustomer writes a customer and returns its local id. A nil spend keeps the stored value.
func upsertCustomer(db *gorm.DB, tenantID uint, rec domain.CustomerRecord) (uint, error) {
	row := entity.CustomerModel{
		TenantID:   tenantID,
		ExternalID: rec.ExternalID,
		Email:      rec.Email,
		FirstName:  rec.FirstName,
		LastName:   rec.LastName,
		TotalSpent: decimal.Zero,
	}
	update := []string{"email", "first_name", "last_name", "updated_at"}
	if rec.TotalSpent != nil {
		row.TotalSpent = *rec.TotalSpent
		update = append(update, "total_spent")
	}

	err := db.Clauses(clause.OnConflict{
		Columns:   tenantExternalColumns,
		DoUpdates: clause.AssignmentColumns(update),
	}).Create(&row).Error
	if err != nil {
		return 0, err
	}
	return lookupID(db, &entity.CustomerModel{}, tenantID, rec.ExternalID)
}

// ensureProduct returns the local id of a line item's product, creating it from the item when missing
func ensureProduct(db *gorm.DB, tenantID uint, item domain.OrderItemRecord) (uint, error) {
	row := entity.ProductModel{
		TenantID:   tenantID,
		ExternalID: item.ProductExternalID,
		Title:      item.Title,
		Price:      item.Price,
	}
	err := db.Clauses(clause.OnConflict{
		Columns:   tenantExternalColumns,
		DoNothing: true,
	}).Create(&row).Error
	if err != nil {
		return 0, err
	}
	return lookupID(db, &entity.ProductModel{}, tenantID, item.ProductExternalID)
}

// lookupID reads the id behind a (tenant, external id) key. The id reported by an
// ON CONFLICT insert is not reliable across dialects, so it is always read back.
func lookupID(db *gorm.DB, model interface{}, tenantID uint, externalID string) (uint, error) {
	var ids []uint
	err := db.Model(model).
		Where("tenant_id = ? AND external_id = ?", tenantID, externalID).
		Limit(1).
		Pluck("id", &ids).Error
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, gorm.ErrRecordNotFound
	}
	return ids[0], nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

// Insights queries

func (s *GormStore) CountCustomers(ctx context.Context, tenantID domain.TenantID) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&entity.CustomerModel{}).Where("tenant_id = ?", uint(tenantID)).Count(&n).Error
	if err != nil {
		return 0, &domain.PersistenceError{Op: "count customers", Err: err}
	}
	return n, nil
}

func (s *GormStore) CountOrders(ctx context.Context, tenantID domain.TenantID) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&entity.OrderModel{}).Where("tenant_id = ?", uint(tenantID)).Count(&n).Error
	if err != nil {
		return 0, &domain.PersistenceError{Op: "count orders", Err: err}
	}
	return n, nil
}

// SumRevenue totals the tenant's order prices in the database
func (s *GormStore) SumRevenue(ctx context.Context, tenantID domain.TenantID) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := s.db.WithContext(ctx).
		Model(&entity.OrderModel{}).
		Select("COALESCE(SUM(total_price), 0)").
		Where("tenant_id = ?", uint(tenantID)).
		Row().
		Scan(&total)
	if err != nil {
		return decimal.Zero, &domain.PersistenceError{Op: "sum revenue", Err: err}
	}
	// prices are stored with two decimals; sqlite sums them as floats
	return total.Round(2), nil
}

// ListOrders returns the tenant's orders without line items, oldest first.
// A date bound excludes orders without a timestamp.
func (s *GormStore) ListOrders(ctx context.Context, tenantID domain.TenantID, filter ports.OrderFilter) ([]domain.Order, error) {
	q := s.db.WithContext(ctx).Where("tenant_id = ?", uint(tenantID))
	if filter.Start != nil {
		q = q.Where("placed_at >= ?", filter.Start.UTC())
	}
	if filter.End != nil {
		q = q.Where("placed_at <= ?", filter.End.UTC())
	}
	if filter.CustomersOnly {
		q = q.Where("customer_id IS NOT NULL")
	}

	var models []entity.OrderModel
	if err := q.Order("placed_at").Order("id").Find(&models).Error; err != nil {
		return nil, &domain.PersistenceError{Op: "list orders", Err: err}
	}

	orders := make([]domain.Order, 0, len(models))
	for i := range models {
		orders = append(orders, models[i].ToDomain())
	}
	return orders, nil
}

func (s *GormStore) GetCustomers(ctx context.Context, tenantID domain.TenantID, ids []uint) ([]domain.Customer, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var models []entity.CustomerModel
	err := s.db.WithContext(ctx).
		Where("tenant_id = ? AND id IN ?", uint(tenantID), ids).
		Find(&models).Error
	if err != nil {
		return nil, &domain.PersistenceError{Op: "get customers", Err: err}
	}

	customers := make([]domain.Customer, 0, len(models))
	for i := range models {
		customers = append(customers, models[i].ToDomain())
	}
	return customers, nil
}

// OrderItems returns the line items of one order
func (s *GormStore) OrderItems(ctx context.Context, orderID uint) ([]domain.OrderItem, error) {
	var models []entity.OrderItemModel
	if err := s.db.WithContext(ctx).Where("order_id = ?", orderID).Order("id").Find(&models).Error; err != nil {
		return nil, &domain.PersistenceError{Op: "list order items", Err: err}
	}
	items := make([]domain.OrderItem, 0, len(models))
	for i := range models {
		items = append(items, models[i].ToDomain())
	}
	return items, nil
}
