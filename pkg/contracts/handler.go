package contracts

import "github.com/julienschmidt/httprouter"

// Handler is a group of HTTP routes mounted on the shared router by pkg/app.
type Handler interface {
	RegisterRoutes(*httprouter.Router)
}
