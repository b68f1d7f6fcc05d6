//go:generate go tool stringer -type=SignalKind

package identity

// SignalKind orders identity signals. When a request carries more than one,
// the highest kind wins.
type SignalKind int

const (
	SDK_PROFILE SignalKind = iota
	DEEP_LINK
	LOGIN_RESULT
	LOGIN_CODE
)

type Signal interface {
	Kind() SignalKind
	isEmpty() bool
}

// LoginCodeSignal is an authorization code handed back by the LINE Login
// redirect. It still has to be exchanged.
type LoginCodeSignal struct {
	Code  string
	State string
}

func (s LoginCodeSignal) Kind() SignalKind {
	return LOGIN_CODE
}

// A login redirect is never ignored, a missing code is reported as an error.
func (s LoginCodeSignal) isEmpty() bool {
	return false
}

// LoginResultSignal is a completed login whose profile was forwarded to the
// form as navigation params.
type LoginResultSignal struct {
	User ExternalUser
}

func (s LoginResultSignal) Kind() SignalKind {
	return LOGIN_RESULT
}

func (s LoginResultSignal) isEmpty() bool {
	return s.User.IsAnonymous()
}

// DeepLinkSignal is a bare user ID taken from a link the bot sent.
type DeepLinkSignal struct {
	UserID string
}

func (s DeepLinkSignal) Kind() SignalKind {
	return DEEP_LINK
}

func (s DeepLinkSignal) isEmpty() bool {
	return s.UserID == ""
}

// SDKProfileSignal is the profile reported by the client side LINE SDK.
type SDKProfileSignal struct {
	User ExternalUser
}

func (s SDKProfileSignal) Kind() SignalKind {
	return SDK_PROFILE
}

func (s SDKProfileSignal) isEmpty() bool {
	return s.User.IsAnonymous()
}

// Strongest returns the highest ranked non-empty signal. The first one wins
// between signals of the same kind.
func Strongest(signals ...Signal) (Signal, bool) {
	var best Signal
	for _, s := range signals {
		if s == nil || s.isEmpty() {
			continue
		}
		if best == nil || s.Kind() > best.Kind() {
			best = s
		}
	}
	return best, best != nil
}
