package routes

import (
	"errors"
	"io"
	"net/http"

	"github.com/OFFIS-RIT/scholargraph/backend/internal/queue"
	"github.com/OFFIS-RIT/scholargraph/backend/internal/server/middleware"
	"github.com/OFFIS-RIT/scholargraph/backend/pkg/logger"

	"github.com/labstack/echo/v4"
)

type jobResponse struct {
	Message string `json:"message"`
	Kind    string `json:"kind,omitempty"`
	JobID   string `json:"job_id,omitempty"`
}

// EnqueueJobHandler validates the body against the payload of :kind and
// publishes it to the matching queue.
func EnqueueJobHandler(c echo.Context) error {
	kind := c.Param("kind")

	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, jobResponse{Message: "Invalid request body"})
	}
	if len(body) == 0 {
		body = []byte("{}")
	}

	job, err := queue.Decode(kind, body)
	if err != nil {
		if errors.Is(err, queue.ErrUnknownKind) {
			return c.JSON(http.StatusNotFound, jobResponse{Message: "Unknown job kind"})
		}
		return c.JSON(http.StatusBadRequest, jobResponse{Message: err.Error()})
	}

	ch := c.(*middleware.AppContext).App.Queue
	if ch == nil {
		return c.JSON(http.StatusServiceUnavailable, jobResponse{Message: "Queue unavailable"})
	}
	id, err := queue.Enqueue(ch, kind, job)
	if err != nil {
		logger.Error("[Server] Failed to enqueue job", "kind", kind, "err", err)
		return c.JSON(http.StatusInternalServerError, jobResponse{Message: "Internal server error"})
	}

	return c.JSON(http.StatusAccepted, jobResponse{Message: "Job queued", Kind: kind, JobID: id})
}
