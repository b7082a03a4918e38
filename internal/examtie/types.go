package examtie

// User is the profile record returned by the profile endpoint.
type User struct {
	ID           string   `json:"id"`
	Email        string   `json:"email"`
	FullName     string   `json:"full_name"`
	Username     string   `json:"username"`
	Roles        []string `json:"roles"`
	Bio          string   `json:"bio"`
	ProfileImage string   `json:"profile_image"`
}

// Bookmark marks a single exam as saved by a user.
type Bookmark struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	ExamID    string `json:"exam_id"`
	CreatedAt string `json:"created_at"`
}

// Streak is the user's current practice streak.
type Streak struct {
	Current     int `json:"current"`
	RevivesUsed int `json:"revives_used"`
}

// TokenResponse is the login endpoint's success payload.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
}

// RegisterPayload is the JSON body submitted to the registration endpoint.
type RegisterPayload struct {
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Username string `json:"username"`
	Password string `json:"password"`
	Bio      string `json:"bio,omitempty"`
}

// RegisterResult is the registration endpoint's success payload. The server
// may or may not include a token alongside the user record.
type RegisterResult struct {
	User
	Token string `json:"token"`
}
