package onboarding

import (
	"fmt"
	"strings"

	"arc-onboarding/internal/model"
)

const (
	msgAskEmailRetry = "Hmm, that doesn't look like a valid email address. Please send the email you used in your application (for example, name@example.com)."

	msgLedgerTrouble = "I'm having a little trouble accessing our records right now. Please send your email again in a few minutes."

	msgStartTrouble = "Sorry, something went wrong on my side while preparing your test. Please send me a message again in a few minutes."

	msgAskScreenshot = "Please send me your screenshot to continue, or ask a question if you're stuck!"

	msgAskUsername = "Thanks! I've received your screenshot. 🙌\n\nOne last step: please reply with your Telegram username (it starts with @) so we can add you to the private ARC channel once your review is verified."

	msgUsernamePlainText = "Please reply with your Telegram username as plain text, for example @yourname."

	msgUsernameInvalid = "That doesn't look like a valid Telegram username. Please make sure that it:\n" +
		"• starts with @\n" +
		"• contains no uppercase letters\n" +
		"• is at least 6 characters long, including the @"

	msgScreenshotThanks = "Thanks! I've received your screenshot. I will personally review it shortly. I'll get back to you right here as soon as it's verified. This usually takes just a few hours."

	msgVerificationQueued = "I've received your submission and it's in the queue for review. I'll get back to you here. Thanks for your patience!"

	msgGuideMissing = "I'm sorry, I can't seem to find the guide document right now. Please ask my colleague for it in the main group later."
)

func welcomeAskEmail(name string) string {
	return fmt.Sprintf(`Hi %s, I'm Luciano, Review Manager for the ARC Team. Welcome!

Great news, you've passed the initial screening to join our ARC team! Before we continue, please reply with the email address you used in your application so I can find your file.`, name)
}

func testInstructions(name, link string, window string) string {
	return fmt.Sprintf(`Hi %s, thanks! You're all set for the last step.

To be added to our private Telegram channel (where you'll receive early copies of upcoming titles), we first need to confirm that your Amazon account can leave reviews.

Here's what to do:
1. Click this link: %s
2. Leave a 5-star, positive, empowering review on the page. It doesn't have to be long, just a few positive sentences.
3. Take a screenshot showing your submitted review.
4. Reply to this message with your screenshot.

You have %s to complete this test. After that, your application spot may be given to another candidate to ensure fairness for everyone.

I'm here to help if you have any questions. Looking forward to having you on board!`, name, link, window)
}

func reminderText(name string, left string) string {
	return fmt.Sprintf("Hi %s, just a friendly reminder that you have about %s left to submit your review screenshot to secure your spot in the ARC program. You've got this! 👍", name, left)
}

func expiredText(name string) string {
	return fmt.Sprintf("Hi %s, unfortunately, the window for the eligibility test has expired, and your spot has been allocated to another applicant. Thank you for your interest in the ARC Team.", name)
}

func verificationThanks(username string) string {
	return fmt.Sprintf("Perfect, thank you! I've noted %s as your Telegram username. I'll personally review your screenshot and get back to you right here as soon as it's verified. This usually takes just a few hours.", username)
}

func operatorScreenshotNotice(a *model.Applicant, handle string) string {
	return fmt.Sprintf("📸 Screenshot received from %s (%s, ID: %d). Waiting for username confirmation.", a.DisplayName(), orDash(handle), a.TelegramID)
}

func operatorVerificationNotice(a *model.Applicant) string {
	var b strings.Builder
	b.WriteString("✅ Applicant ready for verification\n")
	fmt.Fprintf(&b, "• Name: %s\n", a.DisplayName())
	fmt.Fprintf(&b, "• Telegram ID: %d\n", a.TelegramID)
	fmt.Fprintf(&b, "• Username: %s\n", orDash(a.TelegramUsername))
	fmt.Fprintf(&b, "• Email: %s\n", orDash(a.Email))
	fmt.Fprintf(&b, "• Test link: %s\n", orDash(a.AssignedLink))
	if a.SheetRow != nil {
		fmt.Fprintf(&b, "• Ledger row: %d\n", *a.SheetRow)
	}
	b.WriteString("The screenshot follows.")
	return b.String()
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "—"
	}
	return s
}

// humanDuration renders whole hours the way the bot talks to applicants.
func humanDuration(hours int) string {
	switch {
	case hours == 1:
		return "1 hour"
	case hours > 1:
		return fmt.Sprintf("%d hours", hours)
	default:
		return "less than an hour"
	}
}
