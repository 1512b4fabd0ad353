package application

import (
	"strconv"
	"time"

	"shop-insights/internal/domain"

	goshopify "github.com/bold-commerce/go-shopify/v4"
	"github.com/shopspring/decimal"
)

const defaultItemTitle = "Item"

// CustomerRecordFrom maps a listed storefront customer. Missing spend is stored as zero.
func CustomerRecordFrom(c goshopify.Customer) domain.CustomerRecord {
	spent := decimalOrZero(c.TotalSpent)
	return domain.CustomerRecord{
		ExternalID: externalID(c.Id),
		Email:      c.Email,
		FirstName:  c.FirstName,
		LastName:   c.LastName,
		TotalSpent: &spent,
	}
}

// embeddedCustomerRecord maps the customer attached to an order, which carries no reliable spend
func embeddedCustomerRecord(c *goshopify.Customer) *domain.CustomerRecord {
	if c == nil || c.Id == 0 {
		return nil
	}
	return &domain.CustomerRecord{
		ExternalID: externalID(c.Id),
		Email:      c.Email,
		FirstName:  c.FirstName,
		LastName:   c.LastName,
	}
}

// ProductRecordFrom maps a storefront product, priced from its first variant that has a price
func ProductRecordFrom(p goshopify.Product) domain.ProductRecord {
	price := decimal.Zero
	for _, v := range p.Variants {
		if v.Price != nil {
			price = *v.Price
			break
		}
	}
	return domain.ProductRecord{
		ExternalID: externalID(p.Id),
		Title:      p.Title,
		Price:      price,
	}
}

// OrderRecordFrom maps a storefront order with its customer and line items
func OrderRecordFrom(o goshopify.Order) domain.OrderRecord {
	rec := domain.OrderRecord{
		ExternalID: externalID(o.Id),
		Customer:   embeddedCustomerRecord(o.Customer),
		TotalPrice: decimalOrZero(o.TotalPrice),
		PlacedAt:   orderTimestamp(o.CreatedAt, o.ProcessedAt),
		Items:      make([]domain.OrderItemRecord, 0, len(o.LineItems)),
	}
	for _, li := range o.LineItems {
		rec.Items = append(rec.Items, lineItemRecord(li))
	}
	return rec
}

func lineItemRecord(li goshopify.LineItem) domain.OrderItemRecord {
	item := domain.OrderItemRecord{
		Title:    li.Name,
		Quantity: li.Quantity,
		Price:    decimalOrZero(li.Price),
	}
	if li.ProductId != 0 {
		item.ProductExternalID = externalID(li.ProductId)
	}
	if item.Title == "" {
		item.Title = li.Title
	}
	if item.Title == "" {
		item.Title = defaultItemTitle
	}
	if item.Quantity <= 0 {
		item.Quantity = 1
	}
	return item
}

// orderTimestamp prefers the creation time and falls back to the processed time
func orderTimestamp(created, processed *time.Time) *time.Time {
	for _, t := range []*time.Time{created, processed} {
		if t != nil && !t.IsZero() {
			u := t.UTC()
			return &u
		}
	}
	return nil
}

func externalID(id uint64) string {
	return strconv.FormatUint(id, 10)
}

func decimalOrZero(d *decimal.Decimal) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	return *d
}
