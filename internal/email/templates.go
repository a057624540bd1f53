package email

import (
	"bytes"
	"html/template"
)

var passwordResetTemplate = template.Must(template.New("password_reset").Parse(`<!DOCTYPE html>
<html lang="es">
<body style="font-family: Arial, sans-serif; color: #1f2933;">
  <h2>Restablecer contraseña</h2>
  <p>Hemos recibido una solicitud para restablecer la contraseña de tu cuenta del portal de fábrica.</p>
  <p>
    <a href="{{.ResetURL}}" style="display: inline-block; padding: 10px 18px; background: #1d4ed8; color: #ffffff; text-decoration: none; border-radius: 4px;">
      Restablecer contraseña
    </a>
  </p>
  <p>Si no has solicitado este cambio, puedes ignorar este mensaje. El enlace caduca en una hora.</p>
</body>
</html>`))

func renderPasswordReset(resetURL string) (string, error) {
	var buf bytes.Buffer
	if err := passwordResetTemplate.Execute(&buf, struct{ ResetURL string }{ResetURL: resetURL}); err != nil {
		return "", err
	}
	return buf.String(), nil
}
