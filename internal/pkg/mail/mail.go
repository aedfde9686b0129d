package mail

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"net/smtp"
	"strings"
	"time"
)

// Config holds mail provider settings (matches AppConfig.Mail).
type Config struct {
	Enable    bool   `json:"enable"`
	Host      string `json:"host"`
	Port      int    `json:"port"`
	User      string `json:"user"`
	Pass      string `json:"pass"`
	From      string `json:"from"`
	ReplyTo   string `json:"reply_to"`
	UseResend bool   `json:"use_resend"`
	ResendKey string `json:"resend_key"`
}

// Message is a single email to send.
type Message struct {
	To      []string
	Subject string
	HTML    string
	Text    string
}

// Sender sends emails via SMTP or Resend.
type Sender struct {
	cfg Config
}

func New(cfg Config) *Sender {
	return &Sender{cfg: cfg}
}

// Send dispatches an email. Uses Resend if configured, otherwise SMTP.
func (s *Sender) Send(msg Message) error {
	if !s.cfg.Enable {
		return nil
	}
	if s.cfg.UseResend && s.cfg.ResendKey != "" {
		return s.sendResend(msg)
	}
	return s.sendSMTP(msg)
}

// sendSMTP sends via net/smtp.
func (s *Sender) sendSMTP(msg Message) error {
	host := s.cfg.Host
	port := s.cfg.Port
	if port == 0 {
		port = 587
	}
	addr := fmt.Sprintf("%s:%d", host, port)

	from := s.cfg.From
	if from == "" {
		from = s.cfg.User
	}

	var body bytes.Buffer
	body.WriteString("MIME-Version: 1.0\r\n")
	body.WriteString(fmt.Sprintf("From: %s\r\n", from))
	body.WriteString(fmt.Sprintf("To: %s\r\n", strings.Join(msg.To, ", ")))
	body.WriteString(fmt.Sprintf("Subject: %s\r\n", msg.Subject))
	body.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	if s.cfg.ReplyTo != "" {
		body.WriteString(fmt.Sprintf("Reply-To: %s\r\n", s.cfg.ReplyTo))
	}
	body.WriteString("\r\n")
	body.WriteString(msg.HTML)

	auth := smtp.PlainAuth("", s.cfg.User, s.cfg.Pass, host)
	return smtp.SendMail(addr, auth, from, msg.To, body.Bytes())
}

// sendResend sends via the Resend HTTP API.
func (s *Sender) sendResend(msg Message) error {
	from := s.cfg.From
	if from == "" {
		from = s.cfg.User
	}

	payload, _ := json.Marshal(map[string]interface{}{
		"from":    from,
		"to":      msg.To,
		"subject": msg.Subject,
		"html":    msg.HTML,
	})

	req, err := http.NewRequest("POST", "https://api.resend.com/emails", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+s.cfg.ResendKey)
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: 15 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		var errResp struct {
			Message string `json:"message"`
		}
		json.NewDecoder(resp.Body).Decode(&errResp)
		return fmt.Errorf("resend error %d: %s", resp.StatusCode, errResp.Message)
	}
	return nil
}

const decisionTpl = `<!DOCTYPE html>
<html lang="pl">
<head>
  <meta http-equiv="Content-Type" content="text/html; charset=UTF-8" />
</head>
<body style="background-color:#f5f5f5;margin:0 auto;font-family:ui-sans-serif,system-ui,-apple-system,BlinkMacSystemFont,Segoe UI,Roboto,Helvetica Neue,Arial,sans-serif;padding:20px">
  <table align="center" width="100%" role="presentation" cellspacing="0" cellpadding="0" border="0" style="max-width:100%;background:#fff;border-radius:8px;margin:40px auto;padding:24px;width:550px">
    <tbody>
      <tr><td>
        <h1 style="color:#111;font-size:18px;font-weight:600;margin:0 0 16px">{{.Headline}}</h1>
        <p style="font-size:14px;line-height:24px;margin:16px 0;color:#333">Cześć{{if .UserName}} {{.UserName}}{{end}},</p>
        <p style="font-size:14px;line-height:24px;margin:16px 0;color:#333">{{.Intro}} <strong>{{.PointTitle}}</strong>.</p>
        {{if .Reason}}
        <p style="font-size:14px;line-height:24px;margin:16px 0;color:#333">Uzasadnienie moderatora:</p>
        <table align="center" width="100%" role="presentation" border="0" cellpadding="0" cellspacing="0" style="background-color:#f3f4f6;border-radius:8px;padding:0 1rem">
          <tbody><tr><td><p style="font-size:13px;line-height:22px;margin:14px 0;color:#333">{{.Reason}}</p></td></tr></tbody>
        </table>
        {{end}}
        {{if .PointURL}}
        <table align="center" width="100%" role="presentation" border="0" cellpadding="0" cellspacing="0" style="text-align:center;margin:32px 0">
          <tbody><tr><td>
            <a href="{{.PointURL}}" target="_blank" style="line-height:100%;text-decoration:none;display:inline-block;padding:12px 20px;background-color:#16a34a;border-radius:4px;color:#fff;font-size:12px;font-weight:600">Zobacz na mapie</a>
          </td></tr></tbody>
        </table>
        {{end}}
        <hr style="width:100%;border:none;border-top:1px solid #eaeaea;margin:26px 0" />
        <p style="font-size:10px;line-height:20px;margin:16px 0;text-align:center;color:#9ca3af">Ta wiadomość została wysłana automatycznie, prosimy na nią nie odpowiadać.<br />©{{year}} {{.SiteName}}</p>
      </td></tr>
    </tbody>
  </table>
</body>
</html>`

const adminNotifyTpl = `<!DOCTYPE html>
<html lang="pl">
<body style="font-family:sans-serif;background:#f5f5f5;padding:20px">
<div style="max-width:600px;margin:0 auto;background:#fff;border-radius:8px;padding:24px">
  <h2 style="color:#111;font-size:17px">{{.Headline}}</h2>
  <p style="font-size:14px;color:#333">{{.Kind}}: <strong>{{.PointTitle}}</strong></p>
  {{if .Detail}}
  <div style="background:#f3f4f6;border-radius:8px;padding:12px 16px;font-size:13px;color:#333">{{.Detail}}</div>
  {{end}}
  <p style="margin-top:24px">
    <a href="{{.ModerationURL}}" style="background:#2563eb;color:#fff;padding:8px 16px;text-decoration:none;border-radius:4px;font-size:13px">Przejdź do moderacji</a>
  </p>
  <p style="color:#9ca3af;font-size:11px;margin-top:24px">©{{year}} {{.SiteName}} — wiadomość automatyczna.</p>
</div>
</body>
</html>`

// DecisionData is the data for moderation-decision emails sent to authors.
type DecisionData struct {
	UserName   string
	PointTitle string
	PointURL   string
	Reason     string
	SiteName   string

	// Filled in per decision kind before rendering.
	Headline string
	Intro    string
}

// AdminNotifyData is the data for new-submission emails sent to moderators.
type AdminNotifyData struct {
	Kind          string
	PointTitle    string
	Detail        string
	ModerationURL string
	SiteName      string

	Headline string
}

func renderTemplate(tpl string, data interface{}) (string, error) {
	t, err := template.New("").Funcs(template.FuncMap{
		"year": func() int {
			return time.Now().Year()
		},
	}).Parse(tpl)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (s *Sender) sendDecision(to, subject string, data DecisionData) error {
	if strings.TrimSpace(data.SiteName) == "" {
		data.SiteName = "Jadę gdzie chcę"
	}
	html, err := renderTemplate(decisionTpl, data)
	if err != nil {
		return err
	}
	return s.Send(Message{
		To:      []string{to},
		Subject: subject,
		HTML:    html,
	})
}

// SendPointApproved notifies an author that their submission was published.
func (s *Sender) SendPointApproved(to string, data DecisionData) error {
	data.Headline = "Twój punkt jest już na mapie!"
	data.Intro = "Dobra wiadomość! Moderator zatwierdził zgłoszony przez Ciebie punkt"
	return s.sendDecision(to, "Twój punkt został opublikowany", data)
}

// SendPointRejected notifies an author that their submission was declined.
func (s *Sender) SendPointRejected(to string, data DecisionData) error {
	data.Headline = "Punkt nie został opublikowany"
	data.Intro = "Niestety moderator odrzucił zgłoszony przez Ciebie punkt"
	data.PointURL = ""
	return s.sendDecision(to, "Twój punkt został odrzucony", data)
}

// SendEditApproved notifies an author that their proposed edit was applied.
func (s *Sender) SendEditApproved(to string, data DecisionData) error {
	data.Headline = "Twoja edycja została przyjęta"
	data.Intro = "Moderator zatwierdził zaproponowane przez Ciebie zmiany punktu"
	return s.sendDecision(to, "Edycja zatwierdzona", data)
}

// SendEditRejected notifies an author that their proposed edit was declined.
func (s *Sender) SendEditRejected(to string, data DecisionData) error {
	data.Headline = "Edycja nie została przyjęta"
	data.Intro = "Moderator odrzucił zaproponowane przez Ciebie zmiany punktu"
	return s.sendDecision(to, "Edycja odrzucona", data)
}

// SendDeletionApproved notifies the requester that a point was removed.
func (s *Sender) SendDeletionApproved(to string, data DecisionData) error {
	data.Headline = "Punkt został usunięty z mapy"
	data.Intro = "Moderator przychylił się do prośby o usunięcie punktu"
	data.PointURL = ""
	return s.sendDecision(to, "Prośba o usunięcie rozpatrzona", data)
}

// SendDeletionRejected notifies the requester that a point stays on the map.
func (s *Sender) SendDeletionRejected(to string, data DecisionData) error {
	data.Headline = "Punkt pozostaje na mapie"
	data.Intro = "Moderator odrzucił prośbę o usunięcie punktu"
	return s.sendDecision(to, "Prośba o usunięcie odrzucona", data)
}

// SendPendingExpiry warns an author that an unreviewed submission is about to
// be cleaned up.
func (s *Sender) SendPendingExpiry(to string, data DecisionData) error {
	data.Headline = "Twoje zgłoszenie wciąż czeka"
	data.Intro = "Od ponad miesiąca czeka na moderację zgłoszony przez Ciebie punkt"
	data.PointURL = ""
	return s.sendDecision(to, "Zgłoszenie oczekuje na moderację", data)
}

// SendAdminNotify tells moderators that something new awaits review.
func (s *Sender) SendAdminNotify(to string, data AdminNotifyData) error {
	if strings.TrimSpace(data.SiteName) == "" {
		data.SiteName = "Jadę gdzie chcę"
	}
	if strings.TrimSpace(data.Headline) == "" {
		data.Headline = "Nowe zgłoszenie czeka na moderację"
	}
	html, err := renderTemplate(adminNotifyTpl, data)
	if err != nil {
		return err
	}
	return s.Send(Message{
		To:      []string{to},
		Subject: fmt.Sprintf("[%s] %s", data.SiteName, data.Headline),
		HTML:    html,
	})
}
