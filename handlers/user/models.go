package user

import "time"

// User is a row of the identity directory.
type User struct {
	ID               int64     `json:"id"`
	Username         string    `json:"username"`
	Email            string    `json:"email"`
	FullName         string    `json:"full_name"`
	WorkHistory      string    `json:"work_history"`
	Skills           string    `json:"skills"`
	ProfilePhotoPath string    `json:"profile_photo_path"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Summary holds the display attributes used to enrich listings.
type Summary struct {
	ID               int64  `json:"id"`
	Username         string `json:"username"`
	FullName         string `json:"full_name"`
	ProfilePhotoPath string `json:"profile_photo_path"`
}

// NewUser is the input of Directory.Create.
type NewUser struct {
	Username     string
	Email        string
	FullName     string
	PasswordHash string
}

// ProfileUpdate holds the optional fields a user may change on their own profile.
type ProfileUpdate struct {
	FullName    *string `json:"full_name,omitempty"`
	WorkHistory *string `json:"work_history,omitempty"`
	Skills      *string `json:"skills,omitempty"`
}
