package cache

import (
	"fmt"

	"github.com/google/uuid"
)

func JobStatusKey(jobID uuid.UUID) string {
	return fmt.Sprintf("job:%s:status", jobID)
}

func JobProgressKey(jobID uuid.UUID) string {
	return fmt.Sprintf("job:%s:progress", jobID)
}

func EmailQueueKey() string {
	return "emails:outbound"
}
