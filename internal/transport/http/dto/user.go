package dto

type UpdateProfileRequest struct {
	DisplayName string `json:"display_name" validate:"required,max=50"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}
