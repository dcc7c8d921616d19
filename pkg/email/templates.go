package email

import "fmt"

// MagicLinkTemplate renders the one-time sign-in email.
func MagicLinkTemplate(serviceName, link string) string {
	return fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <style>
    body { font-family: -apple-system, 'Segoe UI', Roboto, sans-serif; color: #1a1a2e; }
    .container { max-width: 560px; margin: 0 auto; padding: 32px 24px; }
    .button { display: inline-block; padding: 12px 28px; background: #4361ee; color: #ffffff;
              text-decoration: none; border-radius: 6px; font-weight: 600; }
    .footer { margin-top: 32px; font-size: 12px; color: #8d8d9e; }
  </style>
</head>
<body>
  <div class="container">
    <h2>Sign in to %s</h2>
    <p>Click the button below to sign in. This link can be used once and expires shortly.</p>
    <p><a class="button" href="%s">Sign in</a></p>
    <p>If the button does not work, copy this URL into your browser:</p>
    <p>%s</p>
    <div class="footer">
      <p>If you did not request this email, you can safely ignore it.</p>
    </div>
  </div>
</body>
</html>`, serviceName, link, link)
}
