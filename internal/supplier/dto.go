// AngelaMos | 2026
// dto.go

package supplier

import (
	"time"
)

type IssueOrderRequest struct {
	Email        string `json:"email"         validate:"required,email,max=255"`
	ItemID       string `json:"item_id"       validate:"required,max=64"`
	Quantity     int    `json:"quantity"      validate:"required,min=1,max=100000"`
	RequiredDate string `json:"required_date" validate:"required,datetime=2006-01-02"`
}

type DecisionRequest struct {
	Token   string `json:"token"    validate:"required,max=4096"`
	TokenID string `json:"token_id" validate:"required,uuid"`
	Status  string `json:"status"   validate:"required,oneof=ACCEPTED DECLINED APPROVED REJECTED"`
}

type CreateSupplierRequest struct {
	Name  string `json:"name"  validate:"required,min=2,max=100"`
	Email string `json:"email" validate:"required,email,max=255"`
}

type SupplierResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// OrderResponse never carries the raw token or its hash.
type OrderResponse struct {
	TokenID      string           `json:"token_id"`
	ItemID       string           `json:"item_id"`
	Quantity     int              `json:"quantity"`
	RequiredDate string           `json:"required_date"`
	Status       Status           `json:"status"`
	ExpiresAt    time.Time        `json:"expires_at"`
	CreatedAt    time.Time        `json:"created_at"`
	DecidedAt    *time.Time       `json:"decided_at,omitempty"`
	Supplier     SupplierResponse `json:"supplier"`
}

type DecisionResponse struct {
	TokenID   string     `json:"token_id"`
	Status    Status     `json:"status"`
	DecidedAt *time.Time `json:"decided_at,omitempty"`
}

func ToSupplierResponse(s *Supplier) SupplierResponse {
	return SupplierResponse{
		ID:        s.ID,
		Name:      s.Name,
		Email:     s.Email,
		CreatedAt: s.CreatedAt,
	}
}

func ToOrderResponse(o *Order) OrderResponse {
	return OrderResponse{
		TokenID:      o.ID,
		ItemID:       o.ItemID,
		Quantity:     o.Quantity,
		RequiredDate: o.RequiredDate.Format(requiredDateLayout),
		Status:       o.Status,
		ExpiresAt:    o.ExpiresAt,
		CreatedAt:    o.CreatedAt,
		DecidedAt:    o.DecidedAt,
		Supplier:     ToSupplierResponse(&o.Supplier),
	}
}

func ToOrderResponseList(orders []Order) []OrderResponse {
	result := make([]OrderResponse, len(orders))
	for i := range orders {
		result[i] = ToOrderResponse(&orders[i])
	}
	return result
}

func ToSupplierResponseList(suppliers []Supplier) []SupplierResponse {
	result := make([]SupplierResponse, len(suppliers))
	for i := range suppliers {
		result[i] = ToSupplierResponse(&suppliers[i])
	}
	return result
}
