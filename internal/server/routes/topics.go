package routes

import (
	"net/http"
	"slices"
	"strings"

	"github.com/OFFIS-RIT/scholargraph/backend/internal/server/middleware"
	"github.com/OFFIS-RIT/scholargraph/backend/pkg/canon"
	"github.com/OFFIS-RIT/scholargraph/backend/pkg/common"
	"github.com/OFFIS-RIT/scholargraph/backend/pkg/logger"
	"github.com/OFFIS-RIT/scholargraph/backend/pkg/taxonomy"

	"github.com/labstack/echo/v4"
)

// GetTopicsHandler lists persisted topics sorted by canonical label. The
// optional q parameter filters by substring of the canonical label.
func GetTopicsHandler(c echo.Context) error {
	type topicsResponse struct {
		Message string         `json:"message,omitempty"`
		Topics  []common.Topic `json:"topics"`
	}

	a := c.(*middleware.AppContext).App
	topics, err := taxonomy.Topics(c.Request().Context(), a.Store)
	if err != nil {
		logger.Error("[Server] Failed to list topics", "err", err)
		return c.JSON(http.StatusInternalServerError, topicsResponse{Message: "Internal server error"})
	}

	if q := canon.Normalize(c.QueryParam("q")); q != "" {
		topics = slices.DeleteFunc(topics, func(t common.Topic) bool {
			return !strings.Contains(t.Canonical, q)
		})
	}
	slices.SortFunc(topics, func(a, b common.Topic) int {
		return strings.Compare(a.Canonical, b.Canonical)
	})
	return c.JSON(http.StatusOK, topicsResponse{Topics: topics})
}

// GetTopicDepthHandler resolves ?label= against the persisted hierarchy.
func GetTopicDepthHandler(c echo.Context) error {
	type depthResponse struct {
		Message   string `json:"message,omitempty"`
		Label     string `json:"label,omitempty"`
		Canonical string `json:"canonical,omitempty"`
		Depth     int    `json:"depth,omitempty"`
	}

	label := c.QueryParam("label")
	if strings.TrimSpace(label) == "" {
		return c.JSON(http.StatusBadRequest, depthResponse{Message: "label is required"})
	}

	a := c.(*middleware.AppContext).App
	form, depth, err := a.TopicDepth(c.Request().Context(), label)
	if err != nil {
		logger.Error("[Server] Failed to resolve depth", "label", label, "err", err)
		return c.JSON(http.StatusInternalServerError, depthResponse{Message: "Internal server error"})
	}
	return c.JSON(http.StatusOK, depthResponse{Label: label, Canonical: form, Depth: depth})
}
