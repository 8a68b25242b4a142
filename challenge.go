package identitypool

import (
	"context"
	"encoding/json"
	"strings"
)

// routeChallenge implements spec.md §4.3's challenge router, shared by
// every InitiateAuth/RespondToAuthChallenge return. All branches that
// save Session also record ChallengeName/ChallengeParameters on the user.
func (u *User) routeChallenge(ctx context.Context, resp *authChallengeResponse, clientMetadata map[string]string, cb *Callbacks) {
	if resp.ChallengeName != "" {
		u.Session = resp.Session
		u.ChallengeName = resp.ChallengeName
		u.ChallengeParameters = resp.ChallengeParameters
	}

	switch resp.ChallengeName {
	case "SMS_MFA":
		if cb != nil && cb.MFARequired != nil {
			cb.MFARequired(resp.ChallengeName, resp.ChallengeParameters)
		}
	case "SELECT_MFA_TYPE":
		if cb != nil && cb.SelectMFAType != nil {
			cb.SelectMFAType(resp.ChallengeName, resp.ChallengeParameters)
		}
	case "MFA_SETUP":
		if cb != nil && cb.MFASetup != nil {
			cb.MFASetup(resp.ChallengeName, resp.ChallengeParameters)
		}
	case "SOFTWARE_TOKEN_MFA":
		if cb != nil && cb.TOTPRequired != nil {
			cb.TOTPRequired(resp.ChallengeName, resp.ChallengeParameters)
		}
	case "CUSTOM_CHALLENGE":
		if cb != nil && cb.CustomChallenge != nil {
			cb.CustomChallenge(resp.ChallengeParameters)
		}
	case "NEW_PASSWORD_REQUIRED":
		userAttrs, required := parseNewPasswordRequiredParams(resp.ChallengeParameters)
		if cb != nil && cb.NewPasswordRequired != nil {
			cb.NewPasswordRequired(userAttrs, required)
		}
	case "DEVICE_SRP_AUTH":
		u.authenticateDeviceSRP(ctx, clientMetadata, cb)
	case "":
		u.handleTerminalSuccess(ctx, resp, cb)
	default:
		cb.fail(newError(ErrIdP, "unrecognized challenge name "+resp.ChallengeName))
	}
}

// parseNewPasswordRequiredParams extracts userAttributes/requiredAttributes
// JSON blobs from challenge parameters and strips the server-supplied
// "userAttributes." key prefix (spec.md §4.3 NEW_PASSWORD_REQUIRED row).
func parseNewPasswordRequiredParams(params map[string]string) (map[string]string, []string) {
	userAttrs := map[string]string{}
	if raw, ok := params["userAttributes"]; ok {
		var decoded map[string]string
		if json.Unmarshal([]byte(raw), &decoded) == nil {
			for k, v := range decoded {
				userAttrs[strings.TrimPrefix(k, "userAttributes.")] = v
			}
		}
	}

	var required []string
	if raw, ok := params["requiredAttributes"]; ok {
		var decoded []string
		if json.Unmarshal([]byte(raw), &decoded) == nil {
			for _, attr := range decoded {
				required = append(required, strings.TrimPrefix(attr, "userAttributes."))
			}
		}
	}
	return userAttrs, required
}

// handleTerminalSuccess implements spec.md §4.3's "(absent)" row: build
// the Session, run device confirmation if new device metadata is
// present, then report success.
func (u *User) handleTerminalSuccess(ctx context.Context, resp *authChallengeResponse, cb *Callbacks) {
	if resp.AuthenticationResult == nil {
		cb.fail(newError(ErrIdP, "terminal response carried no AuthenticationResult"))
		return
	}
	ar := resp.AuthenticationResult

	session := newSession(ar.IDToken, ar.AccessToken, ar.RefreshToken)
	u.SignInUserSession = session
	u.cacheTokens()

	if ar.NewDeviceMetadata != nil {
		u.confirmDevice(ctx, ar.NewDeviceMetadata, cb)
		return
	}
	cb.succeed(session, false)
}
