package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Confirmation pages for the emailed-link resolution channel. These are
// rendered for humans who clicked a hyperlink in a mail client, so the
// channel answers with HTML rather than the JSON envelope.

const pageTemplate = `<!DOCTYPE html>
<html>
<head><title>BloodConnect</title></head>
<body>
<div style="font-family: Arial, sans-serif; text-align: center; padding: 50px;">
  <h1 style="color: %s;">%s</h1>
  <p>%s</p>
</div>
</body>
</html>`

func renderPage(c *gin.Context, status int, color, title, body string) {
	html := fmt.Sprintf(pageTemplate, color, title, body)
	c.Data(status, "text/html; charset=utf-8", []byte(html))
}

func renderAcceptedPage(c *gin.Context) {
	renderPage(c, http.StatusOK, "#4CAF50", "Thank You for Accepting!", "The requester has been notified. You are a lifesaver!")
}

func renderRejectedPage(c *gin.Context) {
	renderPage(c, http.StatusOK, "#4CAF50", "Response Recorded", "We understand you cannot donate at this time. Thank you for responding.")
}

func renderAlreadyResolvedPage(c *gin.Context) {
	renderPage(c, http.StatusOK, "#555", "Response Already Recorded", "This request is no longer pending. Thank you.")
}

func renderNotFoundPage(c *gin.Context) {
	renderPage(c, http.StatusNotFound, "#d9534f", "Request Not Found", "This blood request does not exist.")
}

func renderInvalidLinkPage(c *gin.Context) {
	renderPage(c, http.StatusNotFound, "#d9534f", "Invalid Link", "This response link is not valid. Please use the link from your notification email.")
}

func renderInvalidActionPage(c *gin.Context) {
	renderPage(c, http.StatusBadRequest, "#d9534f", "Invalid Action", "The link you followed is not valid.")
}

func renderServerErrorPage(c *gin.Context) {
	renderPage(c, http.StatusInternalServerError, "#d9534f", "Server Error", "Something went wrong. Please try again later.")
}
