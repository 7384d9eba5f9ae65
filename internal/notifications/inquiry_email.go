package notifications

import (
	"bytes"
	"html/template"
	"strings"

	"realty-backend/internal/inquiry"
)

const inquiryNotificationTemplate = `<!DOCTYPE html>
<html>
<body>
  <h3>New {{.Source}} inquiry</h3>
  <p><strong>Name:</strong> {{.Name}}</p>
  <p><strong>Phone:</strong> {{.Phone}}</p>
  {{if .Email}}<p><strong>Email:</strong> {{.Email}}</p>{{end}}
  {{if .PropertyName}}<p><strong>Property:</strong> {{.PropertyName}}</p>{{end}}
  {{with .Preferences}}
  <ul>
    {{if .Budget}}<li>Budget: {{.Budget}}</li>{{end}}
    {{if .Possession}}<li>Possession: {{.Possession}}</li>{{end}}
    {{if .Configuration}}<li>Configuration: {{.Configuration}}</li>{{end}}
    {{if .Locations}}<li>Locations: {{join .Locations ", "}}</li>{{end}}
  </ul>
  {{end}}
  {{if .Message}}<p><strong>Message:</strong><br/>{{.Message}}</p>{{end}}
  <p><strong>CRM synced:</strong> {{.CRMSynced}}</p>
  <p><strong>ID:</strong> {{.ID}}</p>
</body>
</html>`

var inquiryNotificationTmpl = template.Must(template.New("inquiry_notification").
	Funcs(template.FuncMap{"join": strings.Join}).
	Parse(inquiryNotificationTemplate))

func buildInquiryNotificationHTML(item inquiry.Inquiry) (string, error) {
	var buf bytes.Buffer
	if err := inquiryNotificationTmpl.Execute(&buf, item); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func inquirySubject(item inquiry.Inquiry) string {
	if item.PropertyName != "" {
		return "New inquiry: " + item.PropertyName + " - " + item.Name
	}
	return "New " + item.Source + " inquiry - " + item.Name
}
