// Package registry exposes per-kind node metadata and payload schemas to hosts.
package registry

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/Farid-Nowrouzi/WorkflowOrchestrationSystem/pkg/models"
	"github.com/Farid-Nowrouzi/WorkflowOrchestrationSystem/pkg/nodes"
	"github.com/xeipuuv/gojsonschema"
)

// ErrInvalidPayload indicates a create request payload does not match the kind schema.
var ErrInvalidPayload = errors.New("invalid node payload")

// KindInfo describes a node kind for palettes and API clients.
type KindInfo struct {
	Kind           models.NodeKind `json:"kind"`
	DisplayName    string          `json:"display_name"`
	CSSPrefix      string          `json:"css_prefix"`
	Color          string          `json:"color"`
	PayloadLabel   string          `json:"payload_label,omitempty"`
	DefaultPayload string          `json:"default_payload,omitempty"`
	Passive        bool            `json:"passive"`
	Schema         map[string]any  `json:"schema"`
}

type Registry struct {
	logger *slog.Logger
	kinds  map[models.NodeKind]KindInfo
}

func NewRegistry(log *slog.Logger) *Registry {
	return &Registry{
		logger: log,
		kinds:  make(map[models.NodeKind]KindInfo),
	}
}

// Register adds or replaces the metadata of a kind.
func (r *Registry) Register(info KindInfo) {
	if _, exists := r.kinds[info.Kind]; exists {
		r.logger.Debug("Replacing registered node kind", "kind", info.Kind)
	}

	r.kinds[info.Kind] = info
}

// Kind returns the metadata of a registered kind.
func (r *Registry) Kind(kind models.NodeKind) (KindInfo, bool) {
	info, ok := r.kinds[kind]

	return info, ok
}

// Kinds returns every registered kind, built-in kinds first in declaration order.
func (r *Registry) Kinds() []KindInfo {
	infos := make([]KindInfo, 0, len(r.kinds))
	order := models.Kinds()

	for _, kind := range order {
		if info, ok := r.kinds[kind]; ok {
			infos = append(infos, info)
		}
	}

	var extra []KindInfo
	for kind, info := range r.kinds {
		if !slices.Contains(order, kind) {
			extra = append(extra, info)
		}
	}

	slices.SortFunc(extra, func(a, b KindInfo) int { return strings.Compare(string(a.Kind), string(b.Kind)) })

	return append(infos, extra...)
}

// ValidatePayload checks a create request body against the schema of the kind.
func (r *Registry) ValidatePayload(kind models.NodeKind, body map[string]any) error {
	info, ok := r.kinds[kind]
	if !ok {
		return fmt.Errorf("%w: %q", models.ErrUnknownKind, kind)
	}

	schemaLoader := gojsonschema.NewGoLoader(info.Schema)
	dataLoader := gojsonschema.NewGoLoader(body)

	result, err := gojsonschema.Validate(schemaLoader, dataLoader)
	if err != nil {
		return err
	}

	if !result.Valid() {
		var messages []string
		for _, resultError := range result.Errors() {
			messages = append(messages, resultError.String())
		}

		return fmt.Errorf("%w: %s", ErrInvalidPayload, strings.Join(messages, "; "))
	}

	return nil
}

// RegisterDefaultKinds registers every built-in node kind.
func (r *Registry) RegisterDefaultKinds() {
	for _, kind := range models.Kinds() {
		r.Register(KindInfo{
			Kind:           kind,
			DisplayName:    kind.DisplayName(),
			CSSPrefix:      cssPrefix(kind),
			Color:          sidebarColor(kind),
			PayloadLabel:   payloadLabel(kind),
			DefaultPayload: nodes.DefaultPayload(kind),
			Passive:        kind.IsPassive(),
			Schema:         payloadSchema(kind),
		})
	}
}

func payloadSchema(kind models.NodeKind) map[string]any {
	payload := map[string]any{
		"type":        "string",
		"description": payloadLabel(kind),
	}

	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"payload": payload,
		},
	}

	if nodes.HasPayload(kind) {
		payload["minLength"] = 1
		payload["pattern"] = `\S`
		schema["required"] = []string{"payload"}
	}

	return schema
}
