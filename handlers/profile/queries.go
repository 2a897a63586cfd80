package profile

// [AI_QUERIES_START]
// QUERIES:
// {
//   "profile": {
//     "get_profile": "Retrieves a user's profile with their connection count"
//   }
// }
// [AI_QUERIES_END]

const (
	// SelectProfileQuery retrieves a user's profile information
	SelectProfileQuery = `
		SELECT
			u.id,
			u.username,
			u.email,
			u.full_name,
			u.work_history,
			u.skills,
			u.profile_photo_path,
			u.created_at,
			(SELECT COUNT(*) FROM connections c WHERE c.from_id = u.id)
		FROM users u
		WHERE u.id = $1
	`
)
