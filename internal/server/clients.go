package server

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"jewelquote/internal/storage"
)

type clientRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
	Notes string `json:"notes"`
}

func (s *Server) createClient(c echo.Context) error {
	orgID, err := orgIDFromContext(c)
	if err != nil {
		return err
	}

	var req clientRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request payload"})
	}
	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "client name is required"})
	}

	client := storage.Client{
		OrgID: orgID,
		Name:  req.Name,
		Email: req.Email,
		Phone: req.Phone,
		Notes: req.Notes,
	}

	clientID, err := s.storage.SaveClient(c.Request().Context(), client)
	if err != nil {
		s.logger.Error("Failed to save client", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to save client"})
	}
	client.ID = clientID

	return c.JSON(http.StatusCreated, client)
}

func (s *Server) updateClient(c echo.Context) error {
	orgID, err := orgIDFromContext(c)
	if err != nil {
		return err
	}

	clientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid client id"})
	}

	var req clientRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request payload"})
	}
	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "client name is required"})
	}

	client := storage.Client{
		ID:    clientID,
		OrgID: orgID,
		Name:  req.Name,
		Email: req.Email,
		Phone: req.Phone,
		Notes: req.Notes,
	}

	if err := s.storage.UpdateClient(c.Request().Context(), client); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "client not found"})
		}
		s.logger.Error("Failed to update client", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to update client"})
	}

	return c.JSON(http.StatusOK, client)
}

func (s *Server) getClient(c echo.Context) error {
	orgID, err := orgIDFromContext(c)
	if err != nil {
		return err
	}

	clientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid client id"})
	}

	client, err := s.storage.GetClient(c.Request().Context(), orgID, clientID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "client not found"})
		}
		s.logger.Error("Failed to get client", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to get client"})
	}

	return c.JSON(http.StatusOK, client)
}

func (s *Server) listClients(c echo.Context) error {
	orgID, err := orgIDFromContext(c)
	if err != nil {
		return err
	}

	clients, err := s.storage.ListClients(c.Request().Context(), orgID)
	if err != nil {
		s.logger.Error("Failed to list clients", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to list clients"})
	}

	return c.JSON(http.StatusOK, clients)
}

func (s *Server) deleteClient(c echo.Context) error {
	orgID, err := orgIDFromContext(c)
	if err != nil {
		return err
	}

	clientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid client id"})
	}

	if err := s.storage.DeleteClient(c.Request().Context(), orgID, clientID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "client not found"})
		}
		s.logger.Error("Failed to delete client", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to delete client"})
	}

	return c.NoContent(http.StatusNoContent)
}
