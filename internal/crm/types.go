package crm

import (
	"errors"
	"time"
)

var (
	ErrPersonNotFound  = errors.New("person not found")
	ErrCompanyNotFound = errors.New("company not found")
	// ErrRejected wraps a validation-guard rejection; the reason is carried
	// in the surrounding error text.
	ErrRejected = errors.New("input rejected")
)

// Person is a canonical contact record. Empty string means unset; DeletedAt
// zero means live.
type Person struct {
	ID               string    `json:"id"`
	FirstName        string    `json:"first_name"`
	LastName         string    `json:"last_name"`
	Email            string    `json:"email,omitempty"`
	AdditionalEmails []string  `json:"additional_emails"`
	Phone            string    `json:"phone,omitempty"`
	AdditionalPhones []string  `json:"additional_phones"`
	JobTitle         string    `json:"job_title,omitempty"`
	City             string    `json:"city,omitempty"`
	CompanyID        string    `json:"company_id,omitempty"`
	AvatarURL        string    `json:"avatar_url,omitempty"`
	LinkedinURL      string    `json:"linkedin_url,omitempty"`
	MentionCount     int       `json:"mention_count"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
	DeletedAt        time.Time `json:"deleted_at,omitzero"`
}

// FullName returns "First Last" with a single space, or just the first name.
func (p Person) FullName() string {
	if p.LastName == "" {
		return p.FirstName
	}
	return p.FirstName + " " + p.LastName
}

// Company is a canonical organization record.
type Company struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Domain        string    `json:"domain,omitempty"`
	EmployeeCount int       `json:"employee_count,omitempty"`
	City          string    `json:"city,omitempty"`
	State         string    `json:"state,omitempty"`
	Country       string    `json:"country,omitempty"`
	LinkedinURL   string    `json:"linkedin_url,omitempty"`
	IsICP         bool      `json:"is_icp"`
	MentionCount  int       `json:"mention_count"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	DeletedAt     time.Time `json:"deleted_at,omitzero"`
}

// CreatePersonRequest is validated person-creation input.
type CreatePersonRequest struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Email       string `json:"email,omitempty"`
	Phone       string `json:"phone,omitempty"`
	JobTitle    string `json:"job_title,omitempty"`
	City        string `json:"city,omitempty"`
	CompanyID   string `json:"company_id,omitempty"`
	AvatarURL   string `json:"avatar_url,omitempty"`
	LinkedinURL string `json:"linkedin_url,omitempty"`
}

// UpdatePersonRequest carries optional field updates; nil means "leave as
// is". String values are null-scrubbed before the write.
type UpdatePersonRequest struct {
	FirstName   *string `json:"first_name,omitempty"`
	LastName    *string `json:"last_name,omitempty"`
	Email       *string `json:"email,omitempty"`
	Phone       *string `json:"phone,omitempty"`
	JobTitle    *string `json:"job_title,omitempty"`
	City        *string `json:"city,omitempty"`
	CompanyID   *string `json:"company_id,omitempty"`
	AvatarURL   *string `json:"avatar_url,omitempty"`
	LinkedinURL *string `json:"linkedin_url,omitempty"`
}

// CreateCompanyRequest is validated company-creation input.
type CreateCompanyRequest struct {
	Name          string `json:"name"`
	Domain        string `json:"domain,omitempty"`
	EmployeeCount int    `json:"employee_count,omitempty"`
	City          string `json:"city,omitempty"`
	State         string `json:"state,omitempty"`
	Country       string `json:"country,omitempty"`
	LinkedinURL   string `json:"linkedin_url,omitempty"`
	IsICP         bool   `json:"is_icp,omitempty"`
}
