package entities

type ChangeOp string

const (
	ChangeInsert ChangeOp = "INSERT"
	ChangeUpdate ChangeOp = "UPDATE"
	ChangeDelete ChangeOp = "DELETE"
)

// TaskChange is a realtime change event on the tasks collection. Task holds
// the new row (nil for deletes), Old the previous row when the backend
// supplies it (updates and deletes). TaskID is always set.
type TaskChange struct {
	Op     ChangeOp
	TaskID string
	Task   *Task
	Old    *Task
}

type MessageChange struct {
	Op      ChangeOp
	Message *Message
}
