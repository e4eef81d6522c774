package transport

import "github.com/google/uuid"

// ValidateProjectRequest is the project creation draft submitted for checks.
type ValidateProjectRequest struct {
	SourceType       string     `json:"sourceType" validate:"required,oneof=quotation direct"`
	QuotationID      *uuid.UUID `json:"quotationId" validate:"required_if=SourceType quotation"`
	CustomerID       uuid.UUID  `json:"customerId" validate:"required"`
	Budget           float64    `json:"budget" validate:"gte=0"`
	ProjectManagerID *uuid.UUID `json:"projectManagerId"`
}
