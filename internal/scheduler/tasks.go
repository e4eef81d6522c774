package scheduler

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

const TaskConversionRefresh = "analytics.conversion.refresh"

type ConversionRefreshPayload struct {
	Timeframe string `json:"timeframe"`
}

func NewConversionRefreshTask(payload ConversionRefreshPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskConversionRefresh, data), nil
}

func ParseConversionRefreshPayload(task *asynq.Task) (ConversionRefreshPayload, error) {
	var payload ConversionRefreshPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return ConversionRefreshPayload{}, fmt.Errorf("decode %s payload: %w", TaskConversionRefresh, err)
	}
	return payload, nil
}
