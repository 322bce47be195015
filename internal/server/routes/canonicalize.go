package routes

import (
	"net/http"

	"github.com/OFFIS-RIT/scholargraph/backend/pkg/canon"

	"github.com/labstack/echo/v4"
)

// CanonicalizeHandler returns the canonical form of every label.
func CanonicalizeHandler(c echo.Context) error {
	type canonicalizeBody struct {
		Labels []string `json:"labels" validate:"required,min=1,max=10000"`
	}

	type canonicalForm struct {
		Label     string `json:"label"`
		Canonical string `json:"canonical"`
	}

	type canonicalizeResponse struct {
		Message string          `json:"message,omitempty"`
		Forms   []canonicalForm `json:"forms,omitempty"`
		Items   []string        `json:"items,omitempty"`
	}

	data := new(canonicalizeBody)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, canonicalizeResponse{Message: "Invalid request body"})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, canonicalizeResponse{Message: "Invalid request body"})
	}

	forms := make([]canonicalForm, len(data.Labels))
	for i, label := range data.Labels {
		forms[i] = canonicalForm{Label: label, Canonical: canon.Canonicalize(label)}
	}
	return c.JSON(http.StatusOK, canonicalizeResponse{Forms: forms, Items: canon.Items(data.Labels)})
}
