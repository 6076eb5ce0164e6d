package common

// FlowError is a structured check-in flow failure. The guest client needs to
// distinguish "wait for the owner" from "re-upload your documents" from a
// plain error, so precondition violations carry a stable code and, for
// rejections, the owner's reason.
type FlowError struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"error"`
	Reason  string `json:"rejection_reason,omitempty"`
}

func (e *FlowError) Error() string {
	return e.Message
}

func NewFlowError(code, message string) *FlowError {
	return &FlowError{Code: code, Message: message}
}

const (
	CodePassportPending  = "PASSPORT_PENDING"
	CodePassportRejected = "PASSPORT_REJECTED"
	CodeDepositPending   = "DEPOSIT_PENDING"
)
