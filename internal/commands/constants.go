package commands

// TelegramCommands contains all commands for the Telegram bot
const (
	// Main commands
	Start  = "/start"
	Link   = "/link"
	Cancel = "Cancel"

	// Navigation commands
	ReturnToMainMenu = "Return to Main Menu"

	// Guest commands
	LinkAccount = "Link Account"
	About       = "About"
	Help        = "Help"

	// Member commands
	Balance      = "Balance"
	BuyTokens    = "Buy Tokens"
	Transactions = "Transactions"
	StartSharing = "Start Sharing"
	StopSharing  = "Stop Sharing"
	JoinSession  = "Join Session"
	MySessions   = "My Sessions"

	// Administrator commands
	PlatformStats = "Platform Stats"
	TopSharers    = "Top Sharers"

	// Confirmation commands
	Confirm = "Confirm"
)
