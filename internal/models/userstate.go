package models

// ConversationState represents the state of a conversation with a user
type ConversationState int

const (
	// Default is the initial state
	Default ConversationState = iota
	// AwaitingLinkEmail is the state when a guest is inputting their account email
	AwaitingLinkEmail
	// AwaitingLinkPassword is the state when a guest is inputting their account password
	AwaitingLinkPassword
	// AwaitingPackage is the state when the user is selecting a token package
	AwaitingPackage
	// AwaitingConfirmPurchase is the state when the user is confirming a purchase
	AwaitingConfirmPurchase
	// AwaitingConnectionToken is the state when a buyer is inputting a connection token
	AwaitingConnectionToken
	// AwaitingStopSelection is the state when a sharer is selecting a session to stop
	AwaitingStopSelection
)

// UserState represents the state of a user's conversation
type UserState struct {
	State   ConversationState
	Payload *string
}
