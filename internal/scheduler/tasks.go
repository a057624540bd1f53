package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskStalePendingReminder = "tasks.stale_pending.reminder"

type StalePendingReminderPayload struct {
	RecordID string `json:"recordId"`
}

func NewStalePendingReminderTask(payload StalePendingReminderPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskStalePendingReminder, data), nil
}

func ParseStalePendingReminderPayload(task *asynq.Task) (StalePendingReminderPayload, error) {
	var payload StalePendingReminderPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return StalePendingReminderPayload{}, err
	}
	return payload, nil
}
