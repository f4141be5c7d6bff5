package models

import (
	"time"

	"github.com/google/uuid"
)

// FailedRequest is an invocation that ended in a server-side failure, kept for later inspection
type FailedRequest struct {
	RequestID   string `json:"request_id" dynamodbav:"request_id" db:"request_id"`
	StatusCode  int    `json:"status_code" dynamodbav:"status_code" db:"status_code"`
	Description string `json:"description" dynamodbav:"description" db:"description"`
	Request     string `json:"request" dynamodbav:"request" db:"request"`
	ReceivedAt  int64  `json:"received_at" dynamodbav:"received_at" db:"received_at"`
}

// NewFailedRequest creates a failed request record with a generated ID
func NewFailedRequest(statusCode int, description, request string) *FailedRequest {
	return &FailedRequest{
		RequestID:   uuid.New().String(),
		StatusCode:  statusCode,
		Description: description,
		Request:     request,
		ReceivedAt:  time.Now().UnixMilli(),
	}
}
