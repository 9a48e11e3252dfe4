package docs

import "github.com/swaggo/swag"

const docTemplate = `{
  "swagger": "2.0",
  "info": {
    "title": "TechSupport Pro API",
    "description": "Vehicle support tickets, bank-transfer payments, subscriptions and the realtime change feed",
    "version": "1.0"
  },
  "basePath": "/",
  "securityDefinitions": {
    "BearerAuth": {
      "type": "apiKey",
      "in": "header",
      "name": "Authorization"
    }
  },
  "tags": [
    {"name": "tickets"},
    {"name": "messages"},
    {"name": "payments"},
    {"name": "subscriptions"},
    {"name": "admin"},
    {"name": "account"},
    {"name": "dashboard"},
    {"name": "realtime"},
    {"name": "sounds"}
  ],
  "paths": {}
}`

func init() {
	swag.Register(swag.Name, &s{})
}

type s struct{}

func (s *s) ReadDoc() string {
	return docTemplate
}
