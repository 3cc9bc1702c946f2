package document

import "time"

// DocumentBody - проводной формат документа: {"id","updated_at","data"}.
type DocumentBody struct {
	ID        string         `json:"id,omitempty" doc:"Серверный id"`
	UpdatedAt time.Time      `json:"updated_at" doc:"Время последнего изменения на клиенте"`
	Data      map[string]any `json:"data" doc:"Полезная нагрузка сущности"`
}

type createInput struct {
	Body DocumentBody
}

type idInput struct {
	ID string `path:"id" doc:"Серверный id документа"`
}

type updateInput struct {
	ID   string `path:"id" doc:"Серверный id документа"`
	Body DocumentBody
}

type output struct {
	Body DocumentBody
}

type listOutput struct {
	Body DocumentList
}

type DocumentList struct {
	Items []DocumentBody `json:"items"`
}
