package otp

import (
	"bytes"
	"fmt"
	"html/template"
	"time"
)

var messageTmpl = template.Must(template.New("otp").Parse(`<div style="font-family: 'Segoe UI', Tahoma, Geneva, Verdana, sans-serif; background-color: #f4f7fb; padding: 20px; border-radius: 10px; color: #333;">
  <h2 style="color: #007bff;">Email Verification</h2>
  <p style="font-size: 16px;">{{.Message}}</p>
  <div style="margin: 20px 0; padding: 15px; background-color: #ffffff; border: 2px dashed #007bff; border-radius: 8px; text-align: center;">
    <h1 style="color: #007bff; letter-spacing: 5px;">{{.Code}}</h1>
  </div>
  <p style="font-size: 14px; color: #555;">This code will expire in <b>{{.Expiry}}</b>.</p>
  <p style="font-size: 14px; color: #777;">If you didn't request this, please ignore this email.</p>
  <hr style="border: none; border-top: 1px solid #ddd;">
  <p style="font-size: 12px; color: #999;">&copy; {{.Year}} {{.Brand}}</p>
</div>
`))

func renderMessage(message, code string, duration time.Duration, brand string, now time.Time) (string, error) {
	var buf bytes.Buffer
	err := messageTmpl.Execute(&buf, map[string]any{
		"Message": message,
		"Code":    code,
		"Expiry":  humanDuration(duration),
		"Year":    now.Year(),
		"Brand":   brand,
	})
	if err != nil {
		return "", fmt.Errorf("render code message: %w", err)
	}
	return buf.String(), nil
}

func humanDuration(d time.Duration) string {
	if d%time.Hour == 0 {
		hours := int(d / time.Hour)
		if hours == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", hours)
	}
	minutes := int(d.Round(time.Minute) / time.Minute)
	if minutes == 1 {
		return "1 minute"
	}
	return fmt.Sprintf("%d minutes", minutes)
}
