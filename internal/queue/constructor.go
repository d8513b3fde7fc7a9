package queue

import (
	"github.com/postdeckhq/postdeck/internal/service"
)

type Queue struct {
	proc service.ProcessorService
}

func NewQueue(proc service.ProcessorService) *Queue {
	return &Queue{
		proc: proc,
	}
}

const TaskTypePublishPost = "publish:post"

type PublishPostPayload struct {
	PostID int64 `json:"post_id"`
}
