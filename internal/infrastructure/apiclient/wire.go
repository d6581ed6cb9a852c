package apiclient

import (
	"encoding/json"
	"time"

	"github.com/adminbridge/datakit/internal/core/domain/user"
)

// wireID tolerates servers that serialize ids as numbers or strings.
type wireID string

func (w *wireID) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*w = wireID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*w = wireID(n.String())
	return nil
}

// wireUser is the snake_case shape the remote API speaks.
type wireUser struct {
	ID        wireID     `json:"id"`
	Email     string     `json:"email"`
	FirstName string     `json:"first_name"`
	LastName  string     `json:"last_name"`
	Avatar    string     `json:"avatar"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

func (w *wireUser) domain() *user.User {
	return &user.User{
		ID:        string(w.ID),
		Email:     w.Email,
		FirstName: w.FirstName,
		LastName:  w.LastName,
		Avatar:    w.Avatar,
		CreatedAt: w.CreatedAt,
		UpdatedAt: w.UpdatedAt,
	}
}

type wireListResponse struct {
	Page       int        `json:"page"`
	PerPage    int        `json:"per_page"`
	Total      int        `json:"total"`
	TotalPages int        `json:"total_pages"`
	Data       []wireUser `json:"data"`
}

func (w *wireListResponse) domain() *user.Page {
	data := make([]*user.User, 0, len(w.Data))
	for i := range w.Data {
		data = append(data, w.Data[i].domain())
	}
	return &user.Page{
		Page:       w.Page,
		PerPage:    w.PerPage,
		Total:      w.Total,
		TotalPages: w.TotalPages,
		Data:       data,
	}
}

type wireSingleResponse struct {
	Data wireUser `json:"data"`
}

type wireCreateRequest struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Avatar    string `json:"avatar,omitempty"`
}

type wireUpdateRequest struct {
	Email     *string `json:"email,omitempty"`
	FirstName *string `json:"first_name,omitempty"`
	LastName  *string `json:"last_name,omitempty"`
	Avatar    *string `json:"avatar,omitempty"`
}

func toWireCreate(req *user.CreateUserRequest) *wireCreateRequest {
	return &wireCreateRequest{
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Avatar:    req.Avatar,
	}
}

func toWireUpdate(req *user.UpdateUserRequest) *wireUpdateRequest {
	return &wireUpdateRequest{
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Avatar:    req.Avatar,
	}
}
