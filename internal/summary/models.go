package summary

// Speaker maps a diarized speaker index to a name mentioned in the
// conversation, when one could be identified.
type Speaker struct {
	SpeakerID      string `json:"speaker_id"`
	IdentifiedName string `json:"identified_name"`
}

// Note is one discussion point attributed to a speaker.
type Note struct {
	Topic   string `json:"topic"`
	Speaker string `json:"speaker"`
}

// Schedule is a dated event mentioned in the meeting.
type Schedule struct {
	Date  string `json:"date"`
	Time  string `json:"time"`
	Event string `json:"event"`
}

// ActionItem is a task assigned during the meeting.
type ActionItem struct {
	Task       string `json:"task"`
	AssignedTo string `json:"assigned_to"`
	AssignedBy string `json:"assigned_by"`
	Deadline   string `json:"deadline"`
}

// TrelloTask is an action item destined for the task board.
type TrelloTask struct {
	Task       string `json:"task"`
	AssignedTo string `json:"assigned_to"`
	AssignedBy string `json:"assigned_by"`
	Deadline   string `json:"deadline"`
	TrelloList string `json:"trello_list"`
}

// Payload is the structured extraction produced from a meeting transcript.
type Payload struct {
	Summary     string       `json:"summary"`
	Speakers    []Speaker    `json:"speakers"`
	Notes       []Note       `json:"notes"`
	Schedules   []Schedule   `json:"schedules"`
	ActionItems []ActionItem `json:"action_items"`
	TrelloTasks []TrelloTask `json:"trello_tasks"`
}
