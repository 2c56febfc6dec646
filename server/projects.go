package server

import (
	"encoding/json"
	"net/http"

	"github.com/labstack/echo/v4"

	"tasksync/internal/model"
	"tasksync/internal/sync"
)

// handleProjectList returns every project ordered by display order.
func (s *Server) handleProjectList(c echo.Context) error {
	projects, err := s.store.ListProjects(c.Request().Context())
	if err != nil {
		return storeError(c, err)
	}
	return c.JSON(http.StatusOK, projects)
}

// handleProjectCreate upserts a single project from the client. The id
// is part of the contract: offline clients mint their own.
func (s *Server) handleProjectCreate(c echo.Context) error {
	obj, err := decodeObject(c)
	if err != nil {
		return badRequest(c)
	}

	errs := fieldErrors{}
	id := requireString(obj, "id", errs)
	name := requireString(obj, "name", errs)
	color := requireString(obj, "color", errs)
	order := requireInt(obj, "order", errs)
	if len(errs) > 0 {
		return validationFailed(c, errs)
	}

	project, err := s.store.UpsertProject(c.Request().Context(),
		model.NewProject(id, name, color, order),
		[]string{"name", "color", "order"})
	if err != nil {
		return storeError(c, err)
	}
	return c.JSON(http.StatusCreated, project)
}

// handleProjectShow returns one project with its tasks attached.
func (s *Server) handleProjectShow(c echo.Context) error {
	project, err := s.store.GetProject(c.Request().Context(), c.Param("id"), true)
	if err != nil {
		return storeError(c, err)
	}
	return c.JSON(http.StatusOK, project)
}

// handleProjectUpdate applies a partial patch; fields not in the body
// keep their stored values.
func (s *Server) handleProjectUpdate(c echo.Context) error {
	obj, err := decodeObject(c)
	if err != nil {
		return badRequest(c)
	}

	errs := fieldErrors{}
	fields := map[string]any{}
	if v := optionalString(obj, "name", errs); v != nil {
		fields["name"] = *v
	}
	if v := optionalString(obj, "color", errs); v != nil {
		fields["color"] = *v
	}
	if raw, ok := obj["order"]; ok && !isNull(raw) {
		if n, err := asInt(raw); err != nil {
			errs["order"] = err.Error()
		} else {
			fields["order"] = n
		}
	}
	if len(errs) > 0 {
		return validationFailed(c, errs)
	}

	project, err := s.store.PatchProject(c.Request().Context(), c.Param("id"), fields)
	if err != nil {
		return storeError(c, err)
	}
	return c.JSON(http.StatusOK, project)
}

// handleProjectDelete removes a project and cascades to its tasks and
// their time entries. The inbox is refused.
func (s *Server) handleProjectDelete(c echo.Context) error {
	if err := s.store.DeleteProject(c.Request().Context(), c.Param("id")); err != nil {
		return storeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Project deleted"})
}

// projectSyncItem is one element of a project sync batch. Sync payloads
// are lenient: absent optional fields fall back to defaults.
type projectSyncItem struct {
	ID       *string `json:"id"`
	Name     *string `json:"name"`
	Color    *string `json:"color"`
	Order    *int    `json:"order"`
	IsSynced *bool   `json:"is_synced"`
}

// handleProjectSync reconciles a client batch, best-effort per item.
func (s *Server) handleProjectSync(c echo.Context) error {
	var items []projectSyncItem
	if err := json.NewDecoder(c.Request().Body).Decode(&items); err != nil {
		return badRequest(c)
	}

	var failed []sync.ItemError
	batch := make([]sync.ProjectPayload, 0, len(items))
	for _, item := range items {
		id := ""
		if item.ID != nil {
			id = *item.ID
		}
		if item.Name == nil || item.Color == nil {
			failed = append(failed, sync.ItemError{ID: id, Error: "name and color are required"})
			continue
		}

		// Only fields the client sent are overwritten on re-sync
		fields := []string{"name", "color"}
		order := 0
		if item.Order != nil {
			order = *item.Order
			fields = append(fields, "order")
		}
		p := model.NewProject(id, *item.Name, *item.Color, order)
		if item.IsSynced != nil {
			p.IsSynced = *item.IsSynced
			fields = append(fields, "is_synced")
		}
		batch = append(batch, sync.ProjectPayload{Project: p, Fields: fields})
	}

	result := s.reconciler.SyncProjects(c.Request().Context(), batch)
	result.Failed = append(failed, result.Failed...)

	return c.JSON(http.StatusOK, syncResponse("Projects synced", result))
}

func syncResponse(message string, result sync.Result) map[string]any {
	resp := map[string]any{
		"message": message,
		"synced":  result.Synced,
	}
	if len(result.Failed) > 0 {
		resp["failed"] = result.Failed
	}
	return resp
}
