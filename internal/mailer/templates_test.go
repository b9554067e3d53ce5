package mailer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVerificationEmail(t *testing.T) {
	t.Parallel()

	html := VerificationEmail("Ada", "http://localhost:8080/api/v1/verify/abc/tok")
	assert.Contains(t, html, "Hello Ada")
	assert.Contains(t, html, `href="http://localhost:8080/api/v1/verify/abc/tok"`)

	text := VerificationEmailText("Ada", "http://localhost:8080/api/v1/verify/abc/tok")
	assert.Contains(t, text, "Ada")
	assert.Contains(t, text, "http://localhost:8080/api/v1/verify/abc/tok")
}

func TestResetEmail(t *testing.T) {
	t.Parallel()

	html := ResetEmail("Ada", "http://localhost:8080/api/v1/reset/abc")
	assert.Contains(t, html, "Hello Ada")
	assert.Contains(t, html, `href="http://localhost:8080/api/v1/reset/abc"`)
}

func TestResetPage(t *testing.T) {
	t.Parallel()

	page := ResetPage("650c2f1e8f1b2c3d4e5f6a7b")
	assert.True(t, strings.HasPrefix(strings.TrimSpace(page), "<!DOCTYPE html>"))
	assert.Contains(t, page, `action="/api/v1/reset-user/650c2f1e8f1b2c3d4e5f6a7b"`)
	assert.Contains(t, page, `name="password"`)
}
