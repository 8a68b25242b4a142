package identitypool

// Callbacks is the handler record passed into every authentication entry
// point (spec.md §6 "Callback record shapes"). Exactly one field is
// invoked, exactly once, per operation (spec.md §5). Some outcomes are
// delivered synchronously, before the triggering operation returns: an
// unrecognised flow type, a missing new password, GetSession finding a
// valid session or no cached tokens, and the failure to obtain a session
// in operations that require one (these block while any needed refresh
// runs). All other outcomes are delivered from a separate goroutine.
//
// Only OnSuccess and OnFailure are required; a nil optional field for a
// challenge that the IdP happens to return is a programmer error on the
// caller's part, not something this library works around.
type Callbacks struct {
	// OnSuccess is invoked on terminal authentication success.
	// userConfirmationNecessary is true only when device confirmation
	// (spec.md §4.3.d) reported UserConfirmationNecessary=true.
	OnSuccess func(session *Session, userConfirmationNecessary bool)

	// OnFailure is invoked exactly once for any failure on this operation.
	OnFailure func(err error)

	// MFARequired is invoked for ChallengeName=SMS_MFA.
	MFARequired func(challengeName string, challengeParameters map[string]string)

	// MFASetup is invoked for ChallengeName=MFA_SETUP.
	MFASetup func(challengeName string, challengeParameters map[string]string)

	// TOTPRequired is invoked for ChallengeName=SOFTWARE_TOKEN_MFA.
	TOTPRequired func(challengeName string, challengeParameters map[string]string)

	// SelectMFAType is invoked for ChallengeName=SELECT_MFA_TYPE.
	SelectMFAType func(challengeName string, challengeParameters map[string]string)

	// CustomChallenge is invoked for ChallengeName=CUSTOM_CHALLENGE.
	CustomChallenge func(challengeParameters map[string]string)

	// NewPasswordRequired is invoked for ChallengeName=NEW_PASSWORD_REQUIRED.
	// userAttributes and requiredAttributes have had the server's
	// "userAttributes." prefix stripped.
	NewPasswordRequired func(userAttributes map[string]string, requiredAttributes []string)

	// InputVerificationCode is invoked by operations that ask the user to
	// supply a verification code delivered out of band (forgotPassword,
	// getAttributeVerificationCode).
	InputVerificationCode func(data map[string]string)

	// AssociateSecretCode is invoked by associateSoftwareToken with the
	// TOTP secret code the user must enrol in an authenticator app
	// (RenderTOTPQRCode turns it into a QR code).
	AssociateSecretCode func(secretCode string)
}

func (cb *Callbacks) fail(err error) {
	if cb != nil && cb.OnFailure != nil {
		cb.OnFailure(err)
	}
}

func (cb *Callbacks) succeed(session *Session, userConfirmationNecessary bool) {
	if cb != nil && cb.OnSuccess != nil {
		cb.OnSuccess(session, userConfirmationNecessary)
	}
}
