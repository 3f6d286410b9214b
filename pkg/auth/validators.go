package auth

import "github.com/littlelibrary/server/pkg/models"

type RegisterPayload struct {
	Name     string `json:"name" validate:"required,max=100" mod:"trim"`
	Email    string `json:"email" validate:"required,email" mod:"trim"`
	Password string `json:"password" validate:"required,min=8"`
}

type LoginPayload struct {
	Email    string `json:"email" validate:"required,email" mod:"trim"`
	Password string `json:"password" validate:"required"`
}

type MeResponse struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func buildMeResponse(user *models.User) MeResponse {
	return MeResponse{
		ID:    user.ID,
		Name:  user.Name,
		Email: user.Email,
	}
}
