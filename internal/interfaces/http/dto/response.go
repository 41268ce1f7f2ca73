package dto

import (
	"errors"
	"net/http"
	"time"

	"github.com/santi-junco/sync-tiendanube/internal/domain/integration"
)

// Response represents a standard API response
type Response struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorInfo `json:"error,omitempty"`
}

// ErrorInfo represents error details. LineItemID and AppliedCount are set
// when an order webhook stopped part-way through its line items.
type ErrorInfo struct {
	Code         string    `json:"code"`
	Message      string    `json:"message"`
	LineItemID   *int64    `json:"line_item_id,omitempty"`
	AppliedCount *int      `json:"applied_count,omitempty"`
	RequestID    string    `json:"request_id,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// NewSuccessResponse creates a success response
func NewSuccessResponse(data any) Response {
	return Response{
		Success: true,
		Data:    data,
	}
}

// NewErrorResponse creates an error response
func NewErrorResponse(code, message string) Response {
	return NewErrorResponseWithRequestID(code, message, "")
}

// NewErrorResponseWithRequestID creates an error response carrying the request id
func NewErrorResponseWithRequestID(code, message, requestID string) Response {
	return Response{
		Success: false,
		Error: &ErrorInfo{
			Code:      code,
			Message:   message,
			RequestID: requestID,
			Timestamp: time.Now().UTC(),
		},
	}
}

// NewOrderErrorResponse converts an order reconcile failure to an error
// response. The code is derived from the error kind; a plain error is
// classified with integration.KindOf.
func NewOrderErrorResponse(err error, requestID string) Response {
	var orderErr *integration.OrderReconcileError
	if !errors.As(err, &orderErr) {
		return NewErrorResponseWithRequestID(CodeForKind(integration.KindOf(err)), err.Error(), requestID)
	}

	message := orderErr.Error()
	if orderErr.Err != nil {
		message = orderErr.Err.Error()
	}
	resp := NewErrorResponseWithRequestID(CodeForKind(orderErr.Kind), message, requestID)
	applied := orderErr.AppliedCount
	resp.Error.AppliedCount = &applied
	if orderErr.LineItemID != 0 {
		lineItemID := orderErr.LineItemID
		resp.Error.LineItemID = &lineItemID
	}
	return resp
}

// StatusOf returns the HTTP status for an error response
func (r Response) StatusOf() int {
	if r.Error == nil {
		return http.StatusOK
	}
	return GetHTTPStatus(r.Error.Code)
}
