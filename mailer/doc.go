// Package mailer provides authcore.CodeSender implementations: SMTP delivery
// through gomail and a zerolog-backed sender for development.
package mailer
