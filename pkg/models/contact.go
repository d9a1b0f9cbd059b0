package models

import "time"

// ContactRelationship is a directed owner -> contact edge carrying the
// owner's label for the contact. The reverse edge is independent.
type ContactRelationship struct {
	OwnerID      string    `json:"user_id"`
	ContactID    string    `json:"contact_id"`
	Relationship string    `json:"relationship"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ContactView is a relationship joined with the contact's public profile.
type ContactView struct {
	ContactID    string    `json:"contact_id"`
	Relationship string    `json:"relationship"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Image        string    `json:"image"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// User is the public profile of an identity owned by the external provider.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Image     string    `json:"image"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewContactView joins a relationship with a profile; a zero profile leaves
// the profile fields empty.
func NewContactView(rel ContactRelationship, u User) ContactView {
	return ContactView{
		ContactID:    rel.ContactID,
		Relationship: rel.Relationship,
		Name:         u.Name,
		Email:        u.Email,
		Image:        u.Image,
		CreatedAt:    rel.CreatedAt,
		UpdatedAt:    rel.UpdatedAt,
	}
}
