package document

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func (h *Handler) operation(id, method, path, summary string) huma.Operation {
	return huma.Operation{
		OperationID: string(h.entity) + "-" + id,
		Method:      method,
		Path:        "/api/v1/" + string(h.entity) + path,
		Summary:     summary,
		Tags:        []string{string(h.entity)},
		Security:    []map[string][]string{{"bearer": {}}},
		Middlewares: h.middleware,
	}
}

func (h *Handler) listOp() huma.Operation {
	return h.operation("list", http.MethodGet, "", "Список документов клиники")
}

func (h *Handler) createOp() huma.Operation {
	op := h.operation("create", http.MethodPost, "", "Создать документ")
	op.DefaultStatus = http.StatusCreated
	return op
}

func (h *Handler) findOp() huma.Operation {
	return h.operation("find", http.MethodGet, "/{id}", "Получить документ")
}

func (h *Handler) updateOp() huma.Operation {
	op := h.operation("update", http.MethodPut, "/{id}", "Заменить документ")
	op.Description = "404 означает, что документа нет и клиент должен создать его заново."
	return op
}

func (h *Handler) deleteOp() huma.Operation {
	op := h.operation("delete", http.MethodDelete, "/{id}", "Удалить документ")
	op.DefaultStatus = http.StatusNoContent
	return op
}
