package dto

// SendAlertRequest raises a manual alert
type SendAlertRequest struct {
	Type     string                 `json:"type,omitempty" validate:"omitempty,oneof=anomaly budget threshold recommendation"`
	Title    string                 `json:"title" validate:"required,max=255"`
	Message  string                 `json:"message"`
	Severity string                 `json:"severity,omitempty" validate:"omitempty,oneof=info warning error critical"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// UpdateAlertStatusRequest acknowledges or resolves an alert
type UpdateAlertStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=active acknowledged resolved"`
}
