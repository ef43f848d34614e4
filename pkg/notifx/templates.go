package notifx

import (
	"html/template"
	"strings"
)

var passwordResetTemplate = template.Must(template.New("password-reset").Parse(`<html>
<body style="font-family: sans-serif; color: #333;">
  <p>Hi {{.UserName}},</p>
  <p>We received a request to reset the password for your account.
     Click the button below to choose a new password. This link expires
     in {{.LinkExpiry}}.</p>
  <p><a href="{{.Link}}" style="background:#1a73e8;color:#fff;padding:10px 18px;border-radius:4px;text-decoration:none;">Reset password</a></p>
  <p>If you did not request this, you can safely ignore this email.</p>
</body>
</html>`))

var accountSetupTemplate = template.Must(template.New("account-setup").Parse(`<html>
<body style="font-family: sans-serif; color: #333;">
  <p>Hi {{.UserName}},</p>
  <p>An account has been created for you at {{.TenantName}}.
     Click the button below to set your password and finish setting up
     your account.</p>
  <p><a href="{{.Link}}" style="background:#1a73e8;color:#fff;padding:10px 18px;border-radius:4px;text-decoration:none;">Set up account</a></p>
</body>
</html>`))

// RenderPasswordReset renders the password-reset mail body.
func RenderPasswordReset(userName, linkExpiry, link string) (string, error) {
	var sb strings.Builder
	err := passwordResetTemplate.Execute(&sb, struct {
		UserName   string
		LinkExpiry string
		Link       string
	}{userName, linkExpiry, link})
	if err != nil {
		return "", ErrTemplateFailed().WithDetail("template", "password-reset")
	}
	return sb.String(), nil
}

// RenderAccountSetup renders the new-account mail body.
func RenderAccountSetup(userName, tenantName, link string) (string, error) {
	var sb strings.Builder
	err := accountSetupTemplate.Execute(&sb, struct {
		UserName   string
		TenantName string
		Link       string
	}{userName, tenantName, link})
	if err != nil {
		return "", ErrTemplateFailed().WithDetail("template", "account-setup")
	}
	return sb.String(), nil
}
