package main

// General API documentation for swaggo. Run `make swagger-gen` to generate docs.
//
// @title           deployd API
// @version         1.0
// @description     HTTP API for deploying language model runtimes to remote hosts.
//
// @contact.name   deployd maintainers
// @contact.url    https://github.com/your-org/deployd
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
