package request

// SignUpRequest is the request body for email sign-up
type SignUpRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
}

// LoginRequest is the request body for email login
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UpdateProfileRequest is the request body for editing the profile.
// Empty fields keep their current value.
type UpdateProfileRequest struct {
	DisplayName string `json:"displayName,omitempty"`
	PhotoURL    string `json:"photoUrl,omitempty"`
}

// SetPreferenceRequest is the request body for storing a preference
type SetPreferenceRequest struct {
	Value string `json:"value"`
}

// CreateRoomRequest is the request body for creating a room.
// MaxPoints applies to points mode, TimeLimit (seconds) to timed mode.
type CreateRoomRequest struct {
	Mode      string `json:"mode"`
	MaxPoints int    `json:"maxPoints,omitempty"`
	TimeLimit int    `json:"timeLimit,omitempty"`
}

// JoinRoomRequest is the request body for joining by code
type JoinRoomRequest struct {
	Code string `json:"code"`
}

// ReadyRequest is the request body for toggling readiness.
// A missing value means ready.
type ReadyRequest struct {
	Ready *bool `json:"ready,omitempty"`
}

// WordRequest carries a word, either in progress or submitted
type WordRequest struct {
	Word string `json:"word"`
}

// InviteRequest is the request body for inviting a user to a room
type InviteRequest struct {
	UserID string `json:"userId"`
}

// ReportResultRequest is the request body for reporting a match score
type ReportResultRequest struct {
	Score int `json:"score"`
}
