package httpgin

import (
	"github.com/google/uuid"
	"github.com/kirinyoku/tix-checkout/internal/domain"
)

type SelectionItemInput struct {
	UnitID     string `json:"unit_id" binding:"required"`
	Type       string `json:"type" binding:"required,oneof=seat table booth"`
	CategoryID string `json:"category_id" binding:"required"`
	Price      int64  `json:"price" binding:"gte=0"`
}

func (in SelectionItemInput) toDomain() domain.SelectionItem {
	return domain.SelectionItem{
		UnitID:     in.UnitID,
		Type:       domain.UnitType(in.Type),
		CategoryID: in.CategoryID,
		Price:      domain.Money(in.Price),
	}
}

func toItems(in []SelectionItemInput) []domain.SelectionItem {
	items := make([]domain.SelectionItem, 0, len(in))
	for _, it := range in {
		items = append(items, it.toDomain())
	}
	return items
}

type CustomerInput struct {
	Name  string `json:"name" binding:"required"`
	Email string `json:"email" binding:"required"`
	Phone string `json:"phone" binding:"required"`
}

type LockRequest struct {
	UnitIDs []string `json:"unit_ids" binding:"required,min=1,dive,required"`
	TTLSec  int      `json:"ttl_sec" binding:"gte=0"`
}

type ReleaseRequest struct {
	UnitIDs []string `json:"unit_ids" binding:"required,min=1,dive,required"`
}

type BlockRequest struct {
	UnitIDs []string `json:"unit_ids" binding:"required,min=1,dive,required"`
}

type PriceRequest struct {
	Items []SelectionItemInput `json:"items" binding:"required,min=1,dive"`
}

type CheckoutRequest struct {
	Items    []SelectionItemInput `json:"items" binding:"required,min=1,dive"`
	Customer CustomerInput        `json:"customer" binding:"required"`
}

type BookingRefInput struct {
	BookingID   string `json:"booking_id" binding:"required,uuid"`
	BookingType string `json:"booking_type" binding:"required,oneof=seat table booth"`
}

type PaymentConfirmRequest struct {
	Bookings []BookingRefInput `json:"bookings" binding:"required,min=1,dive"`
	Status   string            `json:"status" binding:"required,oneof=paid failed"`
}

func (r PaymentConfirmRequest) refs() ([]domain.BookingRef, error) {
	refs := make([]domain.BookingRef, 0, len(r.Bookings))
	for _, b := range r.Bookings {
		id, err := uuid.Parse(b.BookingID)
		if err != nil {
			return nil, err
		}
		refs = append(refs, domain.BookingRef{ID: id, Type: domain.UnitType(b.BookingType)})
	}
	return refs, nil
}

type ErrorResponse struct {
	Error   string   `json:"error"`
	Kind    string   `json:"kind,omitempty"`
	Retry   string   `json:"retry,omitempty"`
	UnitIDs []string `json:"unit_ids,omitempty"`
	Group   string   `json:"group,omitempty"`
}

type ReleaseResponse struct {
	Released int64 `json:"released"`
}

type BlockResponse struct {
	UnitIDs []string `json:"unit_ids"`
	Status  string   `json:"status"`
}

type PaymentConfirmResponse struct {
	Confirmed []*domain.Booking `json:"confirmed"`
}
