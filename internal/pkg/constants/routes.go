package constants

// Static route constants
const (
	PublicRoute           = "/"
	APIRoute              = "/api"
	APIStripeWebhookRoute = "/api/stripe/webhook"
)
