package protocol

import (
	"context"
)

// ControlRequest represents a control message sent to or received from the CLI.
//
// Wire format:
//
//	{
//	  "type": "control_request",
//	  "request_id": "req_1_abc123",
//	  "request": {
//	    "subtype": "initialize",
//	    "hooks": {...}
//	  }
//	}
type ControlRequest struct {
	Type      string         `json:"type"`
	RequestID string         `json:"request_id"` //nolint:tagliatelle // Claude CLI uses snake_case
	Request   map[string]any `json:"request"`
}

// newControlRequest builds the wire envelope for an outgoing control request,
// folding subtype into the nested request payload alongside the caller's
// other fields.
func newControlRequest(requestID, subtype string, payload map[string]any) *ControlRequest {
	nested := make(map[string]any, len(payload)+1)
	nested["subtype"] = subtype

	for k, v := range payload {
		nested[k] = v
	}

	return &ControlRequest{Type: "control_request", RequestID: requestID, Request: nested}
}

// Subtype extracts the subtype from the nested request data.
func (r *ControlRequest) Subtype() string {
	s, _ := r.Request["subtype"].(string)

	return s
}

// ControlResponse represents a response to a control request.
//
// Wire format for success:
//
//	{
//	  "type": "control_response",
//	  "response": {
//	    "subtype": "success",
//	    "request_id": "req_1_abc123",
//	    "response": {...}
//	  }
//	}
//
// Wire format for error:
//
//	{
//	  "type": "control_response",
//	  "response": {
//	    "subtype": "error",
//	    "request_id": "req_1_abc123",
//	    "error": "error message"
//	  }
//	}
type ControlResponse struct {
	Type     string         `json:"type"`
	Response map[string]any `json:"response"`
}

// newSuccessResponse builds a success control_response envelope.
func newSuccessResponse(requestID string, payload map[string]any) *ControlResponse {
	return &ControlResponse{
		Type: "control_response",
		Response: map[string]any{
			"subtype":    "success",
			"request_id": requestID,
			"response":   payload,
		},
	}
}

// newErrorResponse builds an error control_response envelope.
func newErrorResponse(requestID, errMsg string) *ControlResponse {
	return &ControlResponse{
		Type: "control_response",
		Response: map[string]any{
			"subtype":    "error",
			"request_id": requestID,
			"error":      errMsg,
		},
	}
}

// newCancelAcknowledgment builds a cancel_acknowledgment control_response envelope.
func newCancelAcknowledgment(requestID string, found, alreadyCompleted bool) *ControlResponse {
	return &ControlResponse{
		Type: "control_response",
		Response: map[string]any{
			"subtype":           "cancel_acknowledgment",
			"request_id":        requestID,
			"found":             found,
			"already_completed": alreadyCompleted,
		},
	}
}

// IsError checks if the response is an error response.
func (r *ControlResponse) IsError() bool {
	s, _ := r.Response["subtype"].(string)

	return s == "error"
}

// ErrorMessage extracts the error message from an error response.
func (r *ControlResponse) ErrorMessage() string {
	e, _ := r.Response["error"].(string)

	return e
}

// Payload extracts the response payload from a success response.
func (r *ControlResponse) Payload() map[string]any {
	p, _ := r.Response["response"].(map[string]any)

	return p
}

// RequestID extracts the request_id from the nested response.
func (r *ControlResponse) RequestID() string {
	id, _ := r.Response["request_id"].(string)

	return id
}

// RequestHandler handles an incoming control request from the CLI (e.g. a
// hook callback or a permission prompt) and returns a response payload, or
// an error which the Controller converts into an error control_response.
type RequestHandler func(ctx context.Context, req *ControlRequest) (map[string]any, error)
