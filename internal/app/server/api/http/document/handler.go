package document

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"

	"clinicsync/internal/app/server/api/http/middleware/auth"
	"clinicsync/internal/domain/document"
	"clinicsync/internal/domain/record"
)

// Handler обслуживает REST коллекцию одной сущности.
type Handler struct {
	service    document.Servicer
	entity     record.Entity
	log        *slog.Logger
	middleware huma.Middlewares
}

func NewHandler(service document.Servicer, entity record.Entity, log *slog.Logger, mws huma.Middlewares) *Handler {
	return &Handler{
		service:    service,
		entity:     entity,
		log:        log.With("component", "document_handler", "entity", string(entity)),
		middleware: mws,
	}
}

func (h *Handler) SetupRoutes(api huma.API) {
	huma.Register(api, h.listOp(), h.list)
	huma.Register(api, h.createOp(), h.create)
	huma.Register(api, h.findOp(), h.find)
	huma.Register(api, h.updateOp(), h.update)
	huma.Register(api, h.deleteOp(), h.delete)
}

func (h *Handler) list(ctx context.Context, _ *struct{}) (*listOutput, error) {
	scope, err := scopeFrom(ctx)
	if err != nil {
		return nil, err
	}

	docs, err := h.service.List(ctx, scope, h.entity)
	if err != nil {
		return nil, h.mapError(err)
	}

	items := make([]DocumentBody, 0, len(docs))
	for _, d := range docs {
		b, err := toBody(d)
		if err != nil {
			return nil, h.mapError(err)
		}
		items = append(items, b)
	}
	return &listOutput{Body: DocumentList{Items: items}}, nil
}

func (h *Handler) create(ctx context.Context, input *createInput) (*output, error) {
	scope, err := scopeFrom(ctx)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(input.Body.Data)
	if err != nil {
		return nil, huma.Error422UnprocessableEntity(err.Error())
	}

	doc, err := h.service.Create(ctx, scope, h.entity, input.Body.UpdatedAt, data)
	if err != nil {
		return nil, h.mapError(err)
	}
	return h.respond(doc)
}

func (h *Handler) find(ctx context.Context, input *idInput) (*output, error) {
	scope, err := scopeFrom(ctx)
	if err != nil {
		return nil, err
	}

	doc, err := h.service.Get(ctx, scope, h.entity, input.ID)
	if err != nil {
		return nil, h.mapError(err)
	}
	return h.respond(doc)
}

func (h *Handler) update(ctx context.Context, input *updateInput) (*output, error) {
	scope, err := scopeFrom(ctx)
	if err != nil {
		return nil, err
	}
	if input.Body.ID != "" && input.Body.ID != input.ID {
		return nil, huma.Error422UnprocessableEntity("body id does not match path id")
	}

	data, err := json.Marshal(input.Body.Data)
	if err != nil {
		return nil, huma.Error422UnprocessableEntity(err.Error())
	}

	doc, err := h.service.Update(ctx, scope, h.entity, input.ID, input.Body.UpdatedAt, data)
	if err != nil {
		return nil, h.mapError(err)
	}
	return h.respond(doc)
}

func (h *Handler) delete(ctx context.Context, input *idInput) (*struct{}, error) {
	scope, err := scopeFrom(ctx)
	if err != nil {
		return nil, err
	}

	if err := h.service.Delete(ctx, scope, h.entity, input.ID); err != nil {
		return nil, h.mapError(err)
	}
	return nil, nil
}

func (h *Handler) respond(doc *document.Document) (*output, error) {
	b, err := toBody(doc)
	if err != nil {
		return nil, h.mapError(err)
	}
	return &output{Body: b}, nil
}

func (h *Handler) mapError(err error) error {
	switch {
	case errors.Is(err, document.ErrNotFound):
		return huma.Error404NotFound(string(h.entity) + " not found")
	case errors.Is(err, document.ErrInvalidDocument), errors.Is(err, record.ErrUnknownEntity):
		return huma.Error422UnprocessableEntity(err.Error())
	}
	h.log.Error("document operation failed", "error", err)
	return huma.Error500InternalServerError("internal error")
}

func scopeFrom(ctx context.Context) (document.Scope, error) {
	claims, ok := auth.ClaimsFromContext(ctx)
	if !ok || claims.ClinicID == "" {
		return document.Scope{}, huma.Error401Unauthorized("Unauthorized")
	}
	return document.Scope{ClinicID: claims.ClinicID, UserID: claims.UserID}, nil
}

func toBody(doc *document.Document) (DocumentBody, error) {
	var data map[string]any
	if err := json.Unmarshal(doc.Data, &data); err != nil {
		return DocumentBody{}, err
	}
	return DocumentBody{
		ID:        doc.ID,
		UpdatedAt: doc.UpdatedAt,
		Data:      data,
	}, nil
}
