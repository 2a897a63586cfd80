package profile

import "time"

// [AI_MODELS_START]
// MODELS:
// {
//   "ProfileResponse": {
//     "fields": ["ID", "Username", "FullName", "WorkHistory", "Skills", "ConnectionCount", "ConnectionStatus"],
//     "json_tags": true,
//     "omitempty": ["Email"]
//   }
// }
// [AI_MODELS_END]

// ProfileResponse is a user's public profile as seen by the caller
type ProfileResponse struct {
	ID               int64     `json:"id"`
	Username         string    `json:"username"`
	Email            string    `json:"email,omitempty"`
	FullName         string    `json:"full_name"`
	WorkHistory      string    `json:"work_history"`
	Skills           string    `json:"skills"`
	ProfilePhotoPath string    `json:"profile_photo_path"`
	CreatedAt        time.Time `json:"created_at"`
	ConnectionCount  int       `json:"connection_count"`
	ConnectionStatus string    `json:"connection_status"`
}
