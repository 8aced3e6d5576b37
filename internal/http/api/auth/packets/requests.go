package packets

type TokenRequest struct {
	PlatformID    string `json:"platformId" binding:"required"`
	Secret        string `json:"secret" binding:"required"`
	ParticipantID string `json:"participantId" binding:"required"`
	Username      string `json:"username"`
}
