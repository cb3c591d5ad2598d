package eventsapi

import (
	"encoding/json"
	"fmt"

	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	workspaceevents "google.golang.org/api/workspaceevents/v1"
	"google.golang.org/grpc/codes"
)

// operationSubscription unwraps the subscription carried by a finished
// create or patch operation.
func operationSubscription(op *workspaceevents.Operation) (Subscription, error) {
	if op == nil || !op.Done {
		return Subscription{}, ErrOperationPending
	}
	if op.Error != nil {
		return Subscription{}, operationError(op.Error)
	}
	if len(op.Response) == 0 {
		return Subscription{}, fmt.Errorf("eventsapi: operation %s finished without a response", op.Name)
	}
	var sub workspaceevents.Subscription
	if err := json.Unmarshal(op.Response, &sub); err != nil {
		return Subscription{}, fmt.Errorf("eventsapi: decode operation response: %w", err)
	}
	return fromRemote(&sub), nil
}

// operationError converts the canonical RPC status of a failed operation
// into the HTTP shaped APIError the classifier understands.
func operationError(st *workspaceevents.Status) *APIError {
	code := codes.Code(st.Code)
	return &APIError{
		StatusCode: runtime.HTTPStatusFromCode(code),
		Status:     code.String(),
		Message:    st.Message,
	}
}
