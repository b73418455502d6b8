package email

import (
	"fmt"
	"html"
	"strings"

	"digitalindian/pkg/site"
)

const accentColor = "#f97316"

type contentCopy struct {
	subjectPrefix string
	heading       string
	intro         string
	button        string
}

var contentCopies = map[site.ContentKind]contentCopy{
	site.KindPost: {
		subjectPrefix: "New Blog Post: ",
		heading:       "New Post on Digital Indian Blog",
		intro:         "We've just published a new article titled",
		button:        "Read Now",
	},
	site.KindUpdate: {
		subjectPrefix: "Company Update: ",
		heading:       "Company Update from Digital Indian",
		intro:         "We've just shared a new company update titled",
		button:        "View Updates",
	},
	site.KindJob: {
		subjectPrefix: "New Job Opening: ",
		heading:       "New Job Opening at Digital Indian",
		intro:         "We're hiring! A new position has just opened",
		button:        "View Openings",
	},
}

func copyFor(kind site.ContentKind) contentCopy {
	if c, ok := contentCopies[kind]; ok {
		return c
	}
	return contentCopies[site.KindPost]
}

// NewContentSubject returns the subject line announcing item.
func NewContentSubject(item site.ContentItem) string {
	return copyFor(item.Kind).subjectPrefix + item.Title
}

// FormatNewContentBody renders the announcement email for item. The body depends
// only on the item and link, so one rendering is shared by every recipient.
func FormatNewContentBody(item site.ContentItem, link string) string {
	c := copyFor(item.Kind)

	var b strings.Builder
	writeHead(&b)

	b.WriteString(fmt.Sprintf("<h1>%s</h1>\n", c.heading))
	b.WriteString(fmt.Sprintf("<p>%s \"<strong>%s</strong>\".</p>\n", c.intro, html.EscapeString(item.Title)))
	if item.Summary != "" {
		b.WriteString(fmt.Sprintf("<p class=\"summary\">%s</p>\n", html.EscapeString(item.Summary)))
	}
	b.WriteString("<p>We think you'll find it interesting!</p>\n")
	b.WriteString(fmt.Sprintf("<a href=\"%s\" class=\"button\">%s</a>\n", html.EscapeString(link), c.button))
	b.WriteString(fmt.Sprintf("<p class=\"footer\">Or copy and paste this link into your browser: %s</p>\n", html.EscapeString(link)))
	writeSignature(&b)

	b.WriteString("</body>\n</html>")
	return b.String()
}

func (s *Sender) formatWelcomeBody() string {
	var b strings.Builder
	writeHead(&b)

	b.WriteString("<h1>Welcome!</h1>\n")
	b.WriteString("<p>Thank you for subscribing to our newsletter.</p>\n")
	b.WriteString("<p>You'll be the first to know about our latest articles, insights, and company news.</p>\n")
	if s.baseURL != "" {
		b.WriteString(fmt.Sprintf("<a href=\"%s/blog\" class=\"button\">Visit the Blog</a>\n", html.EscapeString(s.baseURL)))
	}
	writeSignature(&b)

	b.WriteString("</body>\n</html>")
	return b.String()
}

func formatContactBody(form *ContactForm) string {
	var b strings.Builder
	writeHead(&b)

	b.WriteString("<h2>New Message from Your Website Contact Form</h2>\n")
	b.WriteString(fmt.Sprintf("<p><strong>Name:</strong> %s</p>\n", html.EscapeString(form.Name)))
	b.WriteString(fmt.Sprintf("<p><strong>Email:</strong> %s</p>\n", html.EscapeString(form.Email)))
	b.WriteString(fmt.Sprintf("<p><strong>Subject:</strong> %s</p>\n", html.EscapeString(form.Subject)))
	b.WriteString("<p><strong>Message:</strong></p>\n")
	b.WriteString(fmt.Sprintf("<p>%s</p>\n", multiline(form.Message)))

	b.WriteString("</body>\n</html>")
	return b.String()
}

func formatApplicationBody(app *Application) string {
	var b strings.Builder
	writeHead(&b)

	b.WriteString("<h2>New Job Application</h2>\n")
	b.WriteString(fmt.Sprintf("<p><strong>Position:</strong> %s</p>\n", html.EscapeString(app.JobTitle)))
	b.WriteString(fmt.Sprintf("<p><strong>Applicant Name:</strong> %s</p>\n", html.EscapeString(app.Name)))
	b.WriteString(fmt.Sprintf("<p><strong>Applicant Email:</strong> %s</p>\n", html.EscapeString(app.Email)))
	b.WriteString("<p><strong>Message:</strong></p>\n")
	b.WriteString(fmt.Sprintf("<p>%s</p>\n", multiline(app.Message)))

	b.WriteString("</body>\n</html>")
	return b.String()
}

func writeHead(b *strings.Builder) {
	b.WriteString("<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n")
	b.WriteString("<meta charset=\"utf-8\">\n")
	b.WriteString("<meta name=\"viewport\" content=\"width=device-width, initial-scale=1\">\n")
	b.WriteString("<style>\n")
	b.WriteString("body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; max-width: 640px; margin: 0 auto; padding: 20px; background: #fff; }\n")
	b.WriteString(fmt.Sprintf(".button { display: inline-block; padding: 10px 20px; color: white; background-color: %s; text-decoration: none; border-radius: 5px; }\n", accentColor))
	b.WriteString(".summary { color: #555; border-left: 3px solid #ddd; padding-left: 12px; }\n")
	b.WriteString(".footer { margin-top: 20px; color: #7f8c8d; font-size: 0.9em; }\n")
	b.WriteString("@media (prefers-color-scheme: dark) {\n")
	b.WriteString("body { background: #1a1a1a; color: #e0e0e0; }\n")
	b.WriteString(".summary { color: #b0b0b0; border-left-color: #444; }\n")
	b.WriteString(".footer { color: #a0a0a0; }\n")
	b.WriteString("}\n")
	b.WriteString("</style>\n</head>\n<body>\n")
}

func writeSignature(b *strings.Builder) {
	b.WriteString("<p>Best regards,<br>The Digital Indian Team</p>\n")
}

// multiline escapes s and converts newlines to <br>.
func multiline(s string) string {
	return strings.ReplaceAll(html.EscapeString(s), "\n", "<br>")
}
