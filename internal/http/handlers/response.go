package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// abortWith records err for the error boundary and stops the chain.
func abortWith(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

// render writes the named view. Page templates receive gin.H data.
func render(c *gin.Context, status int, name string, data gin.H) {
	c.HTML(status, name, data)
}

// seeOther redirects with 303 so the browser follows up with a GET whatever
// the original (possibly overridden) method was.
func seeOther(c *gin.Context, location string) {
	c.Redirect(http.StatusSeeOther, location)
}
