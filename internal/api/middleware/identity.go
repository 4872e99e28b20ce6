package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// accountKey is the gin context key the caller's account id is stored under.
const accountKey = "account_id"

// AccountHeader names the header carrying the caller's ledger account.
// Authentication is an external collaborator: upstream infrastructure is
// expected to have verified the identity before it reaches this service.
const AccountHeader = "X-Account-ID"

// IdentityMiddleware extracts the caller's account id from the request
// header.  Requests without a well-formed account id are rejected — every
// write endpoint acts on behalf of a concrete ledger account.
func IdentityMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader(AccountHeader)
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"code":    "ERR_NO_ACCOUNT",
				"error":   "missing " + AccountHeader + " header",
			})
			return
		}
		id, err := uuid.Parse(raw)
		if err != nil || id == uuid.Nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"code":    "ERR_BAD_ACCOUNT",
				"error":   "malformed " + AccountHeader + " header",
			})
			return
		}
		c.Set(accountKey, id)
		c.Next()
	}
}

// GetAccountID returns the caller's account id stored by IdentityMiddleware.
// Returns uuid.Nil when the middleware did not run.
func GetAccountID(c *gin.Context) uuid.UUID {
	v, ok := c.Get(accountKey)
	if !ok {
		return uuid.Nil
	}
	id, ok := v.(uuid.UUID)
	if !ok {
		return uuid.Nil
	}
	return id
}
