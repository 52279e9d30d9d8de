package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/oksasatya/go-media-identity/pkg/helpers"
	"github.com/oksasatya/go-media-identity/pkg/mailer"
	mailtpl "github.com/oksasatya/go-media-identity/pkg/mailer/templates"
)

var errNoBody = errors.New("email job has neither template nor body")

// renderJob resolves the subject, text and html bodies of job. Jobs without a
// template are sent as given.
func renderJob(ctx context.Context, resolver mailtpl.GeoResolver, job *mailer.EmailJob) (subject, text, html string, err error) {
	helpers.EnsureRecipientAndEmail(job)
	helpers.MapTypedToUniversal(job)

	if job.Template == "" {
		if job.Text == "" && job.HTML == "" {
			return "", "", "", errNoBody
		}
		return job.Subject, job.Text, job.HTML, nil
	}

	if resolver != nil {
		if ip, _ := job.Data["IP"].(string); ip != "" {
			if g, err := resolver.Lookup(ctx, ip); err == nil {
				helpers.ApplyGeo(job.Data, g)
			}
		}
	}

	subject, text, html, err = mailtpl.Render(strings.ToLower(job.Template), job.Data)
	if err != nil {
		return "", "", "", fmt.Errorf("render %s: %w", job.Template, err)
	}
	if job.Subject != "" {
		subject = job.Subject
	}
	return subject, text, html, nil
}
