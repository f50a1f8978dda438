package email

import "fmt"

// VerificationMessage builds the email-verification mail for a new
// account.
func VerificationMessage(to, username, verifyURL string) Message {
	return Message{
		To:      to,
		Subject: "Verify your email address",
		Body: fmt.Sprintf(
			"Hi %s,\n\nWelcome! Please confirm your email address by visiting:\n\n%s\n\nIf you did not create this account, you can ignore this message.\n",
			username, verifyURL),
	}
}

// WelcomeMessage builds the mail sent once an account is verified.
func WelcomeMessage(to, username string) Message {
	return Message{
		To:      to,
		Subject: "Welcome aboard",
		Body: fmt.Sprintf(
			"Hi %s,\n\nYour email address is verified and your account is ready.\nHappy bug hunting!\n",
			username),
	}
}
