package response

var (
	ErrInvalidRequestFormat = ErrorResponse{
		Status:  StatusError,
		Error:   "invalid_request",
		Details: "Invalid request format",
	}

	ErrAuthenticationFailed = ErrorResponse{
		Status: StatusError,
		Error:  "authentication_failed",
	}

	ErrUnauthorized = ErrorResponse{
		Status:  StatusError,
		Error:   "unauthorized",
		Details: "Sign in required",
	}

	ErrForbidden = ErrorResponse{
		Status:  StatusError,
		Error:   "forbidden",
		Details: "Ticket belongs to another user",
	}

	ErrFileTooLarge = ErrorResponse{
		Status:  StatusError,
		Error:   "file_too_large",
		Details: "Uploaded file exceeds the size limit",
	}

	ErrInternal = ErrorResponse{
		Status:  StatusError,
		Error:   "internal_error",
		Details: "Internal server error",
	}
)

// NotFound is the empty-state payload returned for absent records.
var NotFound = Response{Status: StatusNotFound}

func ValidationFailed(details string) ErrorResponse {
	return ErrorResponseWithDetails("validation_failed", details)
}
