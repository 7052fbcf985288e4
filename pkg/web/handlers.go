// Package web provides HTTP handlers and REST API endpoints for the workflow workspace.
package web

import (
	"net/http"
	"strings"
	"time"

	"github.com/Farid-Nowrouzi/WorkflowOrchestrationSystem/pkg/models"
	"github.com/Farid-Nowrouzi/WorkflowOrchestrationSystem/pkg/nodes"
	"github.com/Farid-Nowrouzi/WorkflowOrchestrationSystem/pkg/persistence"
	"github.com/Farid-Nowrouzi/WorkflowOrchestrationSystem/pkg/registry"
	"github.com/Farid-Nowrouzi/WorkflowOrchestrationSystem/pkg/services"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

type APIHandlers struct {
	workspace *services.Workspace
	validator *validator.Validate
	registry  *registry.Registry
}

func NewAPIHandlers(
	workspace *services.Workspace,
	validator *validator.Validate,
	registry *registry.Registry,
) *APIHandlers {
	return &APIHandlers{
		workspace: workspace,
		validator: validator,
		registry:  registry,
	}
}

// Register mounts every workspace endpoint on router.
func (h *APIHandlers) Register(router fiber.Router) {
	router.Get("/health", h.HealthCheck)
	router.Get("/node-kinds", h.GetNodeKinds)

	n := router.Group("/nodes")
	n.Get("/", h.GetNodes)
	n.Post("/", h.CreateNode)
	n.Get("/:id", h.GetNode)
	n.Patch("/:id/position", h.MoveNode)
	n.Delete("/:id", h.DeleteNode)

	c := router.Group("/connections")
	c.Get("/", h.GetConnections)
	c.Post("/", h.CreateConnection)
	c.Delete("/:sourceId/:targetId", h.DeleteConnection)

	router.Post("/validate", h.Validate)
	router.Post("/execute", h.Execute)
	router.Post("/run", h.Run)
	router.Post("/undo", h.Undo)
	router.Post("/redo", h.Redo)
	router.Post("/clear", h.Clear)

	router.Get("/workflow", h.GetWorkflow)
	router.Put("/workflow", h.RestoreWorkflow)

	w := router.Group("/workflows")
	w.Get("/", h.GetWorkflows)
	w.Post("/:name", h.SaveWorkflow)
	w.Post("/:name/load", h.LoadWorkflow)
	w.Delete("/:name", h.DeleteWorkflow)
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	repositoryCheck, repOk := h.workspace.HealthCheck(c.Context())

	status := "unhealthy"
	message := "Workflow API is unhealthy"
	httpStatus := http.StatusInternalServerError

	if repOk {
		status = "healthy"
		message = "Workflow API is healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"repository": repositoryCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}

func (h *APIHandlers) GetNodeKinds(c fiber.Ctx) error {
	return c.JSON(h.registry.Kinds())
}

func (h *APIHandlers) GetNodes(c fiber.Ctx) error {
	list := h.workspace.Nodes()

	response := make([]NodeResponse, 0, len(list))
	for _, node := range list {
		response = append(response, TransformNodeResponse(node))
	}

	return c.JSON(response)
}

func (h *APIHandlers) GetNode(c fiber.Ctx) error {
	node, err := h.workspace.Node(c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(TransformNodeResponse(node))
}

func (h *APIHandlers) CreateNode(c fiber.Ctx) error {
	var req CreateNodeRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	kind, err := models.ParseKind(req.Type)
	if err != nil {
		return badRequest(c, err.Error())
	}

	payload := req.Payload
	if payload == "" {
		payload = nodes.DefaultPayload(kind)
	}

	if err := h.registry.ValidatePayload(kind, map[string]any{"payload": payload}); err != nil {
		return badRequest(c, err.Error())
	}

	node, err := h.workspace.Create(c.Context(), kind, req.ID, req.Name, payload,
		services.AtPosition(req.X, req.Y),
		services.WithDescription(req.Description),
		services.WithMetadata(req.Metadata),
	)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(TransformNodeResponse(node))
}

func (h *APIHandlers) MoveNode(c fiber.Ctx) error {
	var req MoveNodeRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	id := c.Params("id")

	if err := h.workspace.Move(c.Context(), id, req.X, req.Y); err != nil {
		return handleServiceError(c, err)
	}

	node, err := h.workspace.Node(id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(TransformNodeResponse(node))
}

func (h *APIHandlers) DeleteNode(c fiber.Ctx) error {
	if err := h.workspace.Delete(c.Context(), c.Params("id")); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) GetConnections(c fiber.Ctx) error {
	conns := h.workspace.Connections()

	response := make([]ConnectionResponse, 0, len(conns))
	for _, conn := range conns {
		response = append(response, TransformConnectionResponse(conn))
	}

	return c.JSON(response)
}

func (h *APIHandlers) CreateConnection(c fiber.Ctx) error {
	var req ConnectRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	if err := h.workspace.Connect(c.Context(), req.SourceID, req.TargetID, req.Label); err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(ConnectionResponse{
		SourceID: req.SourceID,
		TargetID: req.TargetID,
		Label:    models.NormalizeLabel(req.Label),
	})
}

func (h *APIHandlers) DeleteConnection(c fiber.Ctx) error {
	err := h.workspace.Disconnect(c.Context(), c.Params("sourceId"), c.Params("targetId"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) Validate(c fiber.Ctx) error {
	var req ValidateRequest

	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return badRequest(c, "Invalid JSON format")
		}

		if err := h.validator.Struct(req); err != nil {
			return badRequest(c, err.Error())
		}
	}

	var response ValidationResponse

	if req.StartID == "" {
		response.Valid, response.Diagnostics = h.workspace.ValidateAll(c.Context())
	} else {
		response.Valid, response.Diagnostics = h.workspace.Validate(c.Context(), req.StartID, req.NodeIDs)
	}

	return c.JSON(response)
}

func (h *APIHandlers) Execute(c fiber.Ctx) error {
	var req ExecuteRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	var response ExecutionResponse

	for event := range h.workspace.Execute(c.Context(), req.StartIDs, req.Variables) {
		response.Events = append(response.Events, event)
		response.Summary.Add(event)
	}

	response.Outcome = response.Summary.Outcome()

	return c.JSON(response)
}

func (h *APIHandlers) Run(c fiber.Ctx) error {
	var req RunRequest

	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return badRequest(c, "Invalid JSON format")
		}
	}

	result, err := h.workspace.Run(c.Context(), req.Variables)
	if err != nil {
		if services.IsValidationError(err) && result != nil {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(ValidationResponse{
				Valid:       false,
				Diagnostics: result.Diagnostics,
			})
		}

		return handleServiceError(c, err)
	}

	return c.JSON(ExecutionResponse{
		Events:  result.Events,
		Summary: result.Summary,
		Outcome: result.Summary.Outcome(),
	})
}

func (h *APIHandlers) Undo(c fiber.Ctx) error {
	action, ok, err := h.workspace.Undo(c.Context())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(h.historyResponse(ok, action.String()))
}

func (h *APIHandlers) Redo(c fiber.Ctx) error {
	action, ok, err := h.workspace.Redo(c.Context())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(h.historyResponse(ok, action.String()))
}

func (h *APIHandlers) historyResponse(applied bool, action string) HistoryResponse {
	undo, redo := h.workspace.HistoryDepth()

	response := HistoryResponse{Applied: applied, UndoDepth: undo, RedoDepth: redo}
	if applied {
		response.Action = action
	}

	return response
}

func (h *APIHandlers) Clear(c fiber.Ctx) error {
	h.workspace.ClearAll(c.Context())

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) GetWorkflow(c fiber.Ctx) error {
	return c.JSON(h.workspace.Snapshot())
}

// RestoreWorkflow replaces the workspace with the posted document. The body
// goes through the same schema and struct checks as a stored document.
func (h *APIHandlers) RestoreWorkflow(c fiber.Ctx) error {
	doc, err := persistence.Unmarshal(c.Body(), persistence.FormatJSON)
	if err != nil {
		return badRequest(c, err.Error())
	}

	if err := h.workspace.Restore(c.Context(), doc); err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(h.workspace.Snapshot())
}

func (h *APIHandlers) GetWorkflows(c fiber.Ctx) error {
	names, err := h.workspace.Workflows(c.Context())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"workflows":   names,
		"total_count": len(names),
	})
}

func (h *APIHandlers) SaveWorkflow(c fiber.Ctx) error {
	name := strings.TrimSpace(c.Params("name"))

	if err := h.workspace.Save(c.Context(), name); err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"name": name})
}

func (h *APIHandlers) LoadWorkflow(c fiber.Ctx) error {
	if err := h.workspace.Load(c.Context(), c.Params("name")); err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(h.workspace.Snapshot())
}

func (h *APIHandlers) DeleteWorkflow(c fiber.Ctx) error {
	if err := h.workspace.DeleteWorkflow(c.Context(), c.Params("name")); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}
