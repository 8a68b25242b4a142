package identitypool

import (
	"context"
	"fmt"
	"net/url"

	"github.com/skip2/go-qrcode"
)

// sendGenericChallengeAnswer responds to whatever challenge is currently
// pending with a single ChallengeResponses value under key, then routes
// the result through the common challenge router.
func (u *User) sendGenericChallengeAnswer(ctx context.Context, challengeName, key, value string, clientMetadata map[string]string, cb *Callbacks) {
	go func() {
		params := map[string]string{
			"USERNAME": u.Username,
			key:        value,
		}
		if hash := u.Pool.secretHash(u.Username); hash != "" {
			params["SECRET_HASH"] = hash
		}
		resp, err := u.respondToAuthChallenge(ctx, challengeName, u.Session, params, clientMetadata)
		if err != nil {
			cb.fail(err)
			return
		}
		u.routeChallenge(ctx, resp, clientMetadata, cb)
	}()
}

// SendMFACode answers an SMS_MFA or SOFTWARE_TOKEN_MFA challenge
// (spec.md §4.3 "sendMFACode"). mfaType defaults to SMS_MFA.
func (u *User) SendMFACode(ctx context.Context, code string, mfaType string, clientMetadata map[string]string, cb *Callbacks) {
	challengeName := mfaType
	key := "SMS_MFA_CODE"
	if challengeName == "" {
		challengeName = "SMS_MFA"
	}
	if challengeName == "SOFTWARE_TOKEN_MFA" {
		key = "SOFTWARE_TOKEN_MFA_CODE"
	}
	u.sendGenericChallengeAnswer(ctx, challengeName, key, code, clientMetadata, cb)
}

// SendCustomChallengeAnswer answers a CUSTOM_CHALLENGE (spec.md §4.3).
func (u *User) SendCustomChallengeAnswer(ctx context.Context, answer string, clientMetadata map[string]string, cb *Callbacks) {
	u.sendGenericChallengeAnswer(ctx, "CUSTOM_CHALLENGE", "ANSWER", answer, clientMetadata, cb)
}

// SendMFASelectionAnswer answers a SELECT_MFA_TYPE challenge, then routes
// the follow-up challenge (which will be SMS_MFA or SOFTWARE_TOKEN_MFA)
// through the normal router, which in turn invokes MFARequired or
// TOTPRequired (spec.md §4.3 "sendMFASelectionAnswer").
func (u *User) SendMFASelectionAnswer(ctx context.Context, mfaType string, cb *Callbacks) {
	u.sendGenericChallengeAnswer(ctx, "SELECT_MFA_TYPE", "ANSWER", mfaType, nil, cb)
}

// CompleteNewPasswordChallenge answers NEW_PASSWORD_REQUIRED, prefixing
// requiredAttrs with the server's "userAttributes." key prefix
// (spec.md §4.3 "completeNewPasswordChallenge").
func (u *User) CompleteNewPasswordChallenge(ctx context.Context, newPassword string, requiredAttrs map[string]string, clientMetadata map[string]string, cb *Callbacks) {
	if newPassword == "" {
		cb.fail(newError(ErrInvalidParameter, "new password is required"))
		return
	}
	go func() {
		params := map[string]string{
			"USERNAME":     u.Username,
			"NEW_PASSWORD": newPassword,
		}
		for name, value := range requiredAttrs {
			params["userAttributes."+name] = value
		}
		if hash := u.Pool.secretHash(u.Username); hash != "" {
			params["SECRET_HASH"] = hash
		}
		resp, err := u.respondToAuthChallenge(ctx, "NEW_PASSWORD_REQUIRED", u.Session, params, clientMetadata)
		if err != nil {
			cb.fail(err)
			return
		}
		u.routeChallenge(ctx, resp, clientMetadata, cb)
	}()
}

// AssociateSoftwareToken starts TOTP enrolment (spec.md §4.3
// "associateSoftwareToken"). It invokes cb.AssociateSecretCode with the
// secret the caller should render for the user (as text, or as a QR code
// via RenderTOTPQRCode).
func (u *User) AssociateSoftwareToken(ctx context.Context, cb *Callbacks) {
	go func() {
		req := map[string]any{}
		if u.SignInUserSession.IsValid() {
			req["AccessToken"] = u.SignInUserSession.AccessToken.String()
		} else {
			req["Session"] = u.Session
		}

		var resp struct {
			SecretCode string `json:"SecretCode"`
			Session    string `json:"Session"`
		}
		if err := u.Pool.dispatcher().Invoke(ctx, "AssociateSoftwareToken", req, &resp); err != nil {
			cb.fail(translateIdPError(err))
			return
		}
		if resp.Session != "" {
			u.Session = resp.Session
		}
		if cb != nil && cb.AssociateSecretCode != nil {
			cb.AssociateSecretCode(resp.SecretCode)
		}
	}()
}

// VerifySoftwareToken completes TOTP enrolment (spec.md §4.3
// "verifySoftwareToken"). When the user is not yet signed in, success
// chains into RespondToAuthChallenge(MFA_SETUP); when already signed in
// (a settings-page enrolment, not part of the login flow), that last step
// is skipped.
func (u *User) VerifySoftwareToken(ctx context.Context, code, friendlyName string, clientMetadata map[string]string, cb *Callbacks) {
	go func() {
		req := map[string]any{
			"UserCode": code,
		}
		if friendlyName != "" {
			req["FriendlyDeviceName"] = friendlyName
		}
		signedIn := u.SignInUserSession.IsValid()
		if signedIn {
			req["AccessToken"] = u.SignInUserSession.AccessToken.String()
		} else {
			req["Session"] = u.Session
		}

		var resp struct {
			Status  string `json:"Status"`
			Session string `json:"Session"`
		}
		if err := u.Pool.dispatcher().Invoke(ctx, "VerifySoftwareToken", req, &resp); err != nil {
			cb.fail(translateIdPError(err))
			return
		}
		if resp.Session != "" {
			u.Session = resp.Session
		}

		if signedIn {
			cb.succeed(u.SignInUserSession, false)
			return
		}

		params := map[string]string{"USERNAME": u.Username}
		mfaResp, err := u.respondToAuthChallenge(ctx, "MFA_SETUP", u.Session, params, clientMetadata)
		if err != nil {
			cb.fail(err)
			return
		}
		u.routeChallenge(ctx, mfaResp, clientMetadata, cb)
	}()
}

// TOTPURI builds the otpauth:// URI an authenticator app scans, in the
// conventional format used by every TOTP-compatible IdP.
func TOTPURI(issuer, accountName, secret string) string {
	label := url.PathEscape(issuer) + ":" + url.PathEscape(accountName)
	return fmt.Sprintf("otpauth://totp/%s?secret=%s&issuer=%s", label, url.QueryEscape(secret), url.QueryEscape(issuer))
}

// RenderTOTPQRCode renders the otpauth:// URI for secret as a PNG QR code
// at size pixels square, for display during MFA_SETUP.
func RenderTOTPQRCode(issuer, accountName, secret string, size int) ([]byte, error) {
	png, err := qrcode.Encode(TOTPURI(issuer, accountName, secret), qrcode.Medium, size)
	if err != nil {
		return nil, wrapError(ErrInvalidParameter, "could not render TOTP QR code", err)
	}
	return png, nil
}
