package http

import "github.com/corvid-labs/gatekeep/internal/gatekeep/domain"

// principalView is the external shape of a principal. The digest, salt
// and two-factor secret never leave the service.
type principalView struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email,omitempty"`
	IsAdmin bool   `json:"is_admin"`
}

func viewPrincipal(p domain.Principal) principalView {
	return principalView{
		ID:      p.ID,
		Name:    p.Name,
		Email:   p.Email,
		IsAdmin: p.IsAdmin,
	}
}
