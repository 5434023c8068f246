package mail

import "fmt"

func verificationBody(link string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
  <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
    <h2>Welcome!</h2>
    <p>Thank you for registering. Please verify your email address to complete your registration.</p>
    <p><a href="%[1]s" style="display: inline-block; padding: 12px 24px; background-color: #007bff; color: white; text-decoration: none; border-radius: 4px;">Verify Email Address</a></p>
    <p>Or copy and paste this link into your browser:</p>
    <p><a href="%[1]s">%[1]s</a></p>
    <p>This link will expire in 24 hours.</p>
    <p style="margin-top: 30px; font-size: 12px; color: #666;">If you didn't create an account, you can safely ignore this email.</p>
  </div>
</body>
</html>`, link)
}

func resetBody(link string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
  <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
    <h2>Password Reset Request</h2>
    <p>We received a request to reset the password for your account.</p>
    <p><a href="%[1]s" style="display: inline-block; padding: 12px 24px; background-color: #dc3545; color: white; text-decoration: none; border-radius: 4px;">Reset Password</a></p>
    <p>Or copy and paste this link into your browser:</p>
    <p><a href="%[1]s">%[1]s</a></p>
    <p><strong>Security note:</strong> this link expires in 1 hour. After resetting your password, all your active sessions will be signed out.</p>
    <p style="margin-top: 30px; font-size: 12px; color: #666;">If you didn't request a password reset, you can safely ignore this email. Your password will remain unchanged.</p>
  </div>
</body>
</html>`, link)
}
