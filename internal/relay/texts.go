package relay

const (
	textGreeting        = "Hello again! You are verified. Messages you send here will be forwarded to the admin."
	textVerified        = "✅ Verified! You can now send messages to the admin."
	textAlreadyVerified = "You are already verified."
	textWrongAnswer     = "❌ Wrong, try again."
	textExpired         = "Session expired or invalid. Send /start to get a new challenge."
	textBlocked         = "🚫 Message blocked by filter."
	textInternalError   = "⚠️ Something went wrong. Please try again later."

	textUserHelp = "Send any message here and it will be forwarded to the admin anonymously.\n\n" +
		"/start - verify yourself or check your status\n" +
		"/help - show this message"

	textOperatorHelp = "Reply to a forwarded message or an info card to answer the user.\n\n" +
		"/ban <user_id> - ban a user (or reply to their message)\n" +
		"/unban <user_id> - lift a ban (alias /allow)\n" +
		"/banlist - list banned users\n" +
		"/help - show this message"

	textOperatorStart = "RelayCat is running. User messages will appear here."
	textReplyHint     = "ℹ️ Reply to a forwarded message or an info card to answer a user."
	textRouteNotFound = "⚠️ Route not found. Cannot reply to this message."
	textBlockedHint   = "The user has probably blocked the bot."
)
