package catalog

import (
	"errors"
	"fmt"
	"time"

	"github.com/nikolayk812/repairshop-cart/internal/domain"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrRejected     = errors.New("request rejected by shop api")
	ErrInvalidInput = errors.New("invalid input")
)

// StatusError is returned for any non-2xx answer other than 401.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("shop api returned %d: %s", e.Code, e.Body)
}

// Result is the envelope the shop API answers form submissions and admin
// mutations with.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Token   string `json:"token,omitempty"`
}

type ContactRequest struct {
	ID      domain.ItemID `json:"id,omitempty"`
	Name    string        `json:"name"`
	Email   string        `json:"email"`
	Phone   string        `json:"phone"`
	Service string        `json:"service"`
	Message string        `json:"message"`
	Status  string        `json:"status,omitempty"`
}

type Feedback struct {
	ID        domain.ItemID `json:"id,omitempty"`
	Name      string        `json:"name"`
	Email     string        `json:"email"`
	Rating    int           `json:"rating"`
	Message   string        `json:"message"`
	Status    string        `json:"status,omitempty"`
	CreatedAt *time.Time    `json:"created_at,omitempty"`
}

type TeamMember struct {
	ID        domain.ItemID `json:"id,omitempty"`
	Name      string        `json:"name"`
	Position  string        `json:"position"`
	Team      string        `json:"team"`
	Expertise string        `json:"expertise"`
	Image     string        `json:"image,omitempty"`
}

type Resource string

const (
	ResourceParts           Resource = "spare-parts"
	ResourceServices        Resource = "services"
	ResourceContactRequests Resource = "contact-requests"
	ResourceFeedback        Resource = "feedback"
	ResourceTeam            Resource = "team"
)
