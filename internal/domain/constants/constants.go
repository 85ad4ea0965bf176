package constants

// Pub/Sub providers accepted by pubsub.provider.
const (
	PubSubProviderLocal  = "local"
	PubSubProviderGoogle = "google"
)

// Account event types published on the account topic.
const (
	EventUserRegistered = "user.registered"
)

// GitHubNoReplyDomain builds placeholder emails for GitHub accounts without a public email.
const GitHubNoReplyDomain = "users.noreply.github.com"
