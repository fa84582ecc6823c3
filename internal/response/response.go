package response

// MessageResponse is a plain acknowledgement.
type MessageResponse struct {
	Message string `json:"message" example:"ok"`
}

// ErrorResponse is the body of every failed API call.
type ErrorResponse struct {
	// Machine-readable code
	// example: ALREADY_QUEUED
	Code string `json:"code"`

	// Human-readable message
	// example: consumer already holds an active queue entry
	Message string `json:"message"`

	// Optional details
	// example: server "dr-1" not found
	Details string `json:"details,omitempty"`
}

// AcceptingRequest toggles whether a server admits new entries.
type AcceptingRequest struct {
	IsAccepting *bool `json:"is_accepting" binding:"required" example:"true"`
}
