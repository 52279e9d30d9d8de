package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/oksasatya/go-media-identity/config"
	"github.com/oksasatya/go-media-identity/internal/domain/entity"
	"github.com/oksasatya/go-media-identity/pkg/mailer"
	mailtpl "github.com/oksasatya/go-media-identity/pkg/mailer/templates"
)

// Publisher is satisfied by *helpers.RabbitPublisher.
type Publisher interface {
	PublishJSON(ctx context.Context, body any) error
}

// EmailNotifier turns account events into email jobs on the mail queue.
// The email worker renders and sends them.
type EmailNotifier struct {
	cfg *config.Config
	pub Publisher
}

func NewEmailNotifier(cfg *config.Config, pub Publisher) *EmailNotifier {
	return &EmailNotifier{cfg: cfg, pub: pub}
}

func (n *EmailNotifier) Notify(ctx context.Context, kind string, u *entity.User, data map[string]string) error {
	job, err := n.job(kind, u, data)
	if err != nil {
		return err
	}
	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return n.pub.PublishJSON(c, job)
}

func (n *EmailNotifier) job(kind string, u *entity.User, data map[string]string) (mailer.EmailJob, error) {
	name := u.Fullname
	if name == "" {
		name = u.Username
	}

	var payload map[string]any
	switch kind {
	case mailtpl.Welcome:
		payload = mailtpl.NewWelcomeData(n.cfg, name, u.Email)
	case mailtpl.LoginNotification:
		opts := []mailtpl.Option{mailtpl.WithIP(data["IP"]), mailtpl.WithUserAgent(data["UserAgent"])}
		if at, err := time.Parse(time.RFC3339, data["TimeAt"]); err == nil {
			opts = append(opts, mailtpl.WithTime(at))
		} else {
			opts = append(opts, mailtpl.WithTime(time.Now()))
		}
		payload = mailtpl.NewLoginNotificationData(n.cfg, name, u.Email, opts...)
	case mailtpl.PasswordChanged:
		payload = mailtpl.NewPasswordChangedData(n.cfg, name, u.Email, mailtpl.WithTime(time.Now()))
	case mailtpl.ProfileUpdated:
		payload = mailtpl.NewProfileUpdatedData(n.cfg, name, u.Email, data, mailtpl.WithTime(time.Now()))
	default:
		return mailer.EmailJob{}, fmt.Errorf("unknown notification kind %q", kind)
	}
	return mailer.EmailJob{To: u.Email, Template: mailtpl.Universal, Data: payload}, nil
}
