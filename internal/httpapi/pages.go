package httpapi

import (
	"html/template"

	"NewsDigest/internal/usecase"
)

type messagePage struct {
	SiteName string
	SiteURL  string
	Title    string
	Message  string
}

type runPage struct {
	SiteName string
	Result   usecase.RunResult
}

func (s *Server) page(title, message string) messagePage {
	return messagePage{SiteName: s.deps.SiteName, SiteURL: s.deps.SiteURL, Title: title, Message: message}
}

var pages = template.Must(template.New("pages").Parse(`
{{define "head"}}<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.}}</title>
</head>
<body style="font-family:Helvetica,Arial,sans-serif;background:#f4f5f7;color:#1f2933;margin:0;">
<div style="max-width:560px;margin:48px auto;background:#ffffff;padding:32px;border-radius:8px;">
{{end}}

{{define "foot"}}</div>
</body>
</html>
{{end}}

{{define "message.html"}}{{template "head" .Title}}
<h1 style="color:#0b3d91;font-size:22px;">{{.Title}}</h1>
<p style="font-size:15px;line-height:1.5;">{{.Message}}</p>
{{if .SiteURL}}<p><a href="{{.SiteURL}}" style="color:#0b3d91;">Back to {{.SiteName}}</a></p>{{end}}
{{template "foot"}}{{end}}

{{define "run.html"}}{{template "head" "Newsletter run"}}
<h1 style="color:#0b3d91;font-size:22px;">{{.SiteName}}: newsletter run</h1>
<table style="font-size:15px;border-collapse:collapse;">
<tr><td style="padding:4px 12px 4px 0;">Status</td><td class="status">{{.Result.Status}}</td></tr>
<tr><td style="padding:4px 12px 4px 0;">Day of week</td><td>{{.Result.DayOfWeek}}</td></tr>
{{if .Result.SummaryID}}<tr><td style="padding:4px 12px 4px 0;">Summary</td><td>{{.Result.SummaryID}}</td></tr>{{end}}
{{if .Result.Subject}}<tr><td style="padding:4px 12px 4px 0;">Subject</td><td>{{.Result.Subject}}</td></tr>{{end}}
<tr><td style="padding:4px 12px 4px 0;">Emails sent</td><td>{{.Result.EmailsSent}} / {{.Result.TotalSubscribers}}</td></tr>
<tr><td style="padding:4px 12px 4px 0;">Timestamp</td><td>{{.Result.Timestamp.Format "2006-01-02 15:04:05 MST"}}</td></tr>
</table>
{{if .Result.Errors}}<h2 style="font-size:16px;">Errors</h2>
<ul>{{range .Result.Errors}}<li>{{.}}</li>{{end}}</ul>{{end}}
{{template "foot"}}{{end}}
`))
