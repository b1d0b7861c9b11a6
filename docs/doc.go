// Package docs provides generated OpenAPI documentation.
//
// Oracle API
//
//	@title			Oracle API
//	@version		1.0
//	@description	Themed crypto prophecies and insights, stored in DefraDB or a local file.
//
//	@contact.name	API Support
//	@contact.url	https://github.com/jackzampolin/oracle
//
//	@license.name	MIT
//	@license.url	https://opensource.org/licenses/MIT
//
//	@host		localhost:8080
//	@BasePath	/
//
//	@schemes	http https
package docs

//go:generate swag init -g ../cmd/oracle/serve.go -o ./swagger --parseDependency --parseInternal
