package handlers

import (
	_ "embed"

	"github.com/swaggo/swag"
)

//go:embed openapi.json
var openAPIDoc string

type embeddedDoc struct{}

func (embeddedDoc) ReadDoc() string { return openAPIDoc }

// RegisterAPIDoc делает встроенный документ доступным для http-swagger по /swagger/doc.json.
func RegisterAPIDoc() {
	swag.Register(swag.Name, embeddedDoc{})
}
