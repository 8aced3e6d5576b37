package packets

type JoinRequest struct {
	ScheduleID   string `json:"scheduleId" binding:"required"`
	ConnectionID string `json:"connectionId"`
}

type LeaveRequest struct {
	ScheduleID string `json:"scheduleId" binding:"required"`
}

type EndRequest struct {
	ScheduleID string `json:"scheduleId" binding:"required"`
}

type ModerateRequest struct {
	ScheduleID string `json:"scheduleId" binding:"required"`
	TargetID   string `json:"targetId" binding:"required"`
}

type ChatRequest struct {
	ScheduleID string `json:"scheduleId" binding:"required"`
	Text       string `json:"text" binding:"required"`
}

type PollRequest struct {
	ScheduleID string   `json:"scheduleId" binding:"required"`
	Question   string   `json:"question" binding:"required"`
	Options    []string `json:"options" binding:"required"`
}

type VoteRequest struct {
	OptionIndex *int `json:"optionIndex" binding:"required"`
}

type PollStatusRequest struct {
	ScheduleID string `json:"scheduleId" binding:"required"`
	IsActive   *bool  `json:"isActive" binding:"required"`
}

type HandRequest struct {
	ScheduleID string `json:"scheduleId" binding:"required"`
}

type RecordingRequest struct {
	ScheduleID string `json:"scheduleId" binding:"required"`
	EgressID   string `json:"egressId" binding:"required"`
}
