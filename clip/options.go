package clip

// Policy decides what Play does when the channel under the cursor is busy
type Policy uint8

const (
	// PolicyGrow adds a fresh channel so overlapping plays never cut each other off
	PolicyGrow Policy = iota
	// PolicyRestart rewinds the busy channel, the pool never grows
	PolicyRestart
)

func (p Policy) String() string {
	if p == PolicyRestart {
		return "restart"
	}
	return "grow"
}

type options struct {
	strict bool
	policy Policy
	warmer *warmer // nil skips the warm-up
}

func defaultOptions() options {
	return options{policy: PolicyGrow, warmer: global}
}

// Option configures a Pool
type Option func(*options)

// WithStrictLoad makes any channel decode failure fail construction
func WithStrictLoad(strict bool) Option {
	return func(o *options) {
		o.strict = strict
	}
}

// WithPolicy selects the busy-channel behavior
func WithPolicy(p Policy) Option {
	return func(o *options) {
		o.policy = p
	}
}

// WithoutWarmup skips the process-wide warm-up on construction
func WithoutWarmup() Option {
	return func(o *options) {
		o.warmer = nil
	}
}
