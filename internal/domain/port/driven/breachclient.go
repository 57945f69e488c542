package driven

import "context"

// PasswordBreach is the outcome of a k-anonymity password check. Count is
// the number of times the exact password hash appears in the breach corpus.
type PasswordBreach struct {
	Breached bool
	Count    int
}

// EmailBreach is the outcome of a breached-account lookup for an email
// address. Breaches holds the names of the breaches the address appears in.
type EmailBreach struct {
	Breached bool
	Breaches []string
}

// BreachClient defines the driven port for the external breach-intelligence
// provider.
type BreachClient interface {
	// CheckPassword checks a plaintext password against the breach corpus
	// using k-anonymity: the password is hashed locally and only a 5-character
	// hash prefix is sent to the provider.
	CheckPassword(ctx context.Context, password string) (PasswordBreach, error)

	// CheckEmail looks up an email address in the provider's breached-account
	// index. Unlike CheckPassword this discloses the address to the provider
	// and requires an API key.
	CheckEmail(ctx context.Context, email string) (EmailBreach, error)
}
