package auth

import (
	"strings"

	"github.com/frahmantamala/asubt-console/internal"
	"github.com/frahmantamala/asubt-console/internal/core/common/validation"
)

// LoginDTO is the body of ?action=login.
type LoginDTO struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterDTO is the body of ?action=register.
type RegisterDTO struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	FullName   string `json:"full_name"`
	Department string `json:"department,omitempty"`
	Position   string `json:"position,omitempty"`
}

func (d LoginDTO) Normalize() LoginDTO {
	d.Email = strings.TrimSpace(d.Email)
	return d
}

func (d LoginDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("email", d.Email).Required().Email()
	v.Field("password", d.Password).Required()
	return v.Validate()
}

func (d RegisterDTO) Normalize() RegisterDTO {
	d.Email = strings.TrimSpace(d.Email)
	d.FullName = strings.TrimSpace(d.FullName)
	d.Department = strings.TrimSpace(d.Department)
	d.Position = strings.TrimSpace(d.Position)
	return d
}

func (d RegisterDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("email", d.Email).Required().Email().MaxLength(255)
	v.Field("password", d.Password).Required()
	v.Field("full_name", d.FullName).Required().MaxLength(255)
	v.Field("department", d.Department).MaxLength(255)
	v.Field("position", d.Position).MaxLength(255)
	return v.Validate()
}
