package mailer

import "fmt"

// VerificationEmail renders the HTML body of the account verification email.
func VerificationEmail(firstName, link string) string {
	return fmt.Sprintf(`<p>Hello %s,</p>
                             <p>Welcome! Please confirm your email address to activate your account.</p>
                             <p><a href="%s">Click here to verify your account</a></p>
                             <p>The link expires shortly. If it has already expired, following it will send you a fresh one.</p>
                             <p>If you did not sign up, please ignore this email.</p>`, firstName, link)
}

// VerificationEmailText is the plain-text alternative of VerificationEmail.
func VerificationEmailText(firstName, link string) string {
	return fmt.Sprintf(`Hello %s,
                           Welcome! Please confirm your email address to activate your account.
                           Verification link: %s
                           If you did not sign up, please ignore this email.`, firstName, link)
}

// ResetEmail renders the HTML body of the password-reset email.
func ResetEmail(firstName, link string) string {
	return fmt.Sprintf(`<p>Hello %s,</p>
                             <p>We received a request to reset your password.</p>
                             <p><a href="%s">Click here to reset your password</a></p>
                             <p>If you did not request this, please ignore this email.</p>`, firstName, link)
}

// ResetEmailText is the plain-text alternative of ResetEmail.
func ResetEmailText(firstName, link string) string {
	return fmt.Sprintf(`Hello %s,
                           We received a request to reset your password.
                           Reset link: %s
                           If you did not request this, please ignore this email.`, firstName, link)
}

// ResetPage renders the standalone HTML form served at the reset link. The
// form posts the new password back to the reset endpoint for the given user.
func ResetPage(userID string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html lang="en">
<head>
            <meta charset="UTF-8">
            <meta name="viewport" content="width=device-width, initial-scale=1.0">
            <title>Password Reset</title>
        </head>
        <body>
            <h1>Password Reset</h1>
            <form id="resetForm" action="/api/v1/reset-user/%s" method="post" enctype="application/x-www-form-urlencoded">
                <label for="password">New Password:</label>
                <input type="password" id="password" name="password" required>
                <button type="submit">Submit</button>
            </form>
</body>
</html>`, userID)
}
