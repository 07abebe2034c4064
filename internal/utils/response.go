package utils

// APIResponse is the envelope every JSON endpoint except check-in validation
// returns.
type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func SuccessResponse(message string, data interface{}) APIResponse {
	return APIResponse{Success: true, Message: message, Data: data}
}

func ErrorResponse(message string, err string) APIResponse {
	return APIResponse{Success: false, Message: message, Error: err}
}
