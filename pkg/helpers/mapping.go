package helpers

import (
	"fmt"
	"strings"

	"github.com/oksasatya/go-media-identity/pkg/mailer"
	mailtpl "github.com/oksasatya/go-media-identity/pkg/mailer/templates"
)

func EnsureRecipientAndEmail(job *mailer.EmailJob) {
	if job.Data == nil {
		job.Data = map[string]any{}
	}
	if v, ok := job.Data["Email"]; !ok || fmt.Sprintf("%v", v) == "" {
		job.Data["Email"] = job.To
	}
	if v, ok := job.Data["RecipientEmail"]; !ok || fmt.Sprintf("%v", v) == "" {
		job.Data["RecipientEmail"] = job.To
	}
}

// MapTypedToUniversal rewrites a job addressed by notification type, e.g.
// Template "welcome", into a universal job carrying that Type.
func MapTypedToUniversal(job *mailer.EmailJob) {
	if !mailtpl.KnownType(job.Template) {
		return
	}
	if job.Data == nil {
		job.Data = map[string]any{}
	}
	if v, ok := job.Data["Type"]; !ok || fmt.Sprintf("%v", v) == "" {
		job.Data["Type"] = strings.ToLower(job.Template)
	}
	job.Template = mailtpl.Universal
}
