package echoapi

type (
	LoginResponse struct {
		Token string `json:"token"`
	}

	SuccessResponse struct {
		Success string `json:"success"`
	}

	// ResolveRequest carries the approve/reject verdict on a pending
	// financial or role change.
	ResolveRequest struct {
		Approve bool `json:"approve"`
	}
)
