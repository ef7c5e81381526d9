package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
)

// routeAttributes are path parameters copied onto the transaction.
var routeAttributes = map[string]string{
	"id":        "resource.id",
	"requestId": "ride_request.id",
}

// NewRelicAttributes annotates the nrgin transaction with path parameters and
// reports errors handlers attached to the context. Without a transaction it
// is a no-op, so it must run after nrgin.Middleware.
func NewRelicAttributes() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		txn := nrgin.Transaction(c)
		if txn == nil {
			return
		}

		for param, attr := range routeAttributes {
			if v := c.Param(param); v != "" {
				txn.AddAttribute(attr, v)
			}
		}

		// Record error if present.
		for _, err := range c.Errors {
			txn.NoticeError(err.Err)
		}
	}
}
