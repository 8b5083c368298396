// Package api provides the hosting platform REST API.
//
//	@title						Hosting Platform API
//	@version					1.0
//	@description				Web hosting platform API
//	@BasePath					/api/v1
//	@securityDefinitions.apikey	ApiKeyAuth
//	@in							header
//	@name						X-API-Key
package api
