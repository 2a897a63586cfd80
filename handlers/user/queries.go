package user

// User queries
const (
	userColumns = `id, username, email, full_name, work_history, skills, profile_photo_path, created_at, updated_at`

	// InsertUserQuery creates a user and returns its id
	InsertUserQuery = `
		INSERT INTO users (username, email, password_hash, full_name, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	SelectUserByIDQuery       = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	SelectUserByUsernameQuery = `SELECT ` + userColumns + ` FROM users WHERE username = $1`
	SelectUserByEmailQuery    = `SELECT ` + userColumns + ` FROM users WHERE email = $1`

	// SelectCredentialsQuery resolves a login identifier that is either a username or an email
	SelectCredentialsQuery = `
		SELECT id, password_hash
		FROM users
		WHERE username = $1 OR email = $1
	`

	UserExistsQuery = `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`

	// SearchUsersQuery matches a substring of the username or full name
	SearchUsersQuery = `
		SELECT id, username, full_name, profile_photo_path
		FROM users
		WHERE LOWER(username) LIKE $1 OR LOWER(full_name) LIKE $1
		ORDER BY username
		LIMIT $2
	`

	UpdateProfileQuery = `
		UPDATE users
		SET full_name = $1,
			work_history = $2,
			skills = $3,
			updated_at = $4
		WHERE id = $5
	`
)
