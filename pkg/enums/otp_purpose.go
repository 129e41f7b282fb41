package enums

// OTPPurpose namespaces one-time codes so a signup code cannot reset a password.
type OTPPurpose string

const (
	OTPPurposeSignup        OTPPurpose = "signup"
	OTPPurposePasswordReset OTPPurpose = "reset"
)

func (p OTPPurpose) IsValid() bool {
	return p == OTPPurposeSignup || p == OTPPurposePasswordReset
}
