package identitypool

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/solidauth/identitypool/internal/srp"
)

// AuthenticationDetails carries the credentials and metadata for one
// authentication attempt (spec.md §3).
type AuthenticationDetails struct {
	Username       string
	Password       string
	ValidationData map[string]string
	ClientMetadata map[string]string
	AuthParameters map[string]string
}

// authChallengeResponse is the common shape returned by both InitiateAuth
// and RespondToAuthChallenge (spec.md §4.3).
type authChallengeResponse struct {
	ChallengeName       string            `json:"ChallengeName"`
	Session             string            `json:"Session"`
	ChallengeParameters map[string]string `json:"ChallengeParameters"`
	AuthenticationResult *authenticationResult `json:"AuthenticationResult"`
}

type authenticationResult struct {
	IDToken          string            `json:"IdToken"`
	AccessToken      string            `json:"AccessToken"`
	RefreshToken     string            `json:"RefreshToken"`
	NewDeviceMetadata *newDeviceMetadata `json:"NewDeviceMetadata"`
}

type newDeviceMetadata struct {
	DeviceKey      string `json:"DeviceKey"`
	DeviceGroupKey string `json:"DeviceGroupKey"`
}

// AuthenticateUser dispatches by u.AuthenticationFlowType (spec.md §4.3):
// USER_PASSWORD_AUTH drives the plain flow, USER_SRP_AUTH/CUSTOM_AUTH
// drive the SRP flow, anything else fails with
// ErrInvalidAuthenticationFlowType (spec.md §8 scenario S2).
func (u *User) AuthenticateUser(ctx context.Context, details AuthenticationDetails, cb *Callbacks) {
	switch u.AuthenticationFlowType {
	case UserPasswordAuth:
		go u.authenticatePlain(ctx, details, cb)
	case UserSRPAuth, CustomAuth:
		go u.authenticateSRP(ctx, details, cb)
	default:
		cb.fail(newError(ErrInvalidAuthenticationFlowType, fmt.Sprintf("unrecognized authentication flow type %q", u.AuthenticationFlowType)))
	}
}

func (u *User) authParametersBase(username string) map[string]string {
	params := map[string]string{"USERNAME": username}
	u.loadCachedDevice()
	if u.DeviceKey != "" {
		params["DEVICE_KEY"] = u.DeviceKey
	}
	if hash := u.Pool.secretHash(username); hash != "" {
		params["SECRET_HASH"] = hash
	}
	return params
}

// authenticatePlain implements spec.md §4.3.a.
func (u *User) authenticatePlain(ctx context.Context, details AuthenticationDetails, cb *Callbacks) {
	if details.Password == "" {
		cb.fail(newError(ErrInvalidParameter, "password is required for USER_PASSWORD_AUTH"))
		return
	}
	params := u.authParametersBase(u.Username)
	params["PASSWORD"] = details.Password

	resp, err := u.initiateAuth(ctx, string(UserPasswordAuth), params, details.ClientMetadata)
	if err != nil {
		cb.fail(err)
		return
	}
	u.routeChallenge(ctx, resp, details.ClientMetadata, cb)
}

// authenticateSRP implements spec.md §4.3.b.
func (u *User) authenticateSRP(ctx context.Context, details AuthenticationDetails, cb *Callbacks) {
	ephemeral, err := srp.GetLargeAValue()
	if err != nil {
		cb.fail(wrapError(ErrCryptoInvariant, "could not generate SRP ephemeral", err))
		return
	}

	flow := string(u.AuthenticationFlowType)
	params := u.authParametersBase(u.Username)
	params["SRP_A"] = ephemeral.AHex()
	if u.AuthenticationFlowType == CustomAuth {
		params["CHALLENGE_NAME"] = "SRP_A"
	}

	resp, err := u.initiateAuth(ctx, flow, params, details.ClientMetadata)
	if err != nil {
		cb.fail(err)
		return
	}

	if resp.ChallengeName != "PASSWORD_VERIFIER" {
		u.routeChallenge(ctx, resp, details.ClientMetadata, cb)
		return
	}

	respondParams, userIDForSRP, err := u.buildPasswordVerifierResponse(
		ephemeral, resp.ChallengeParameters, u.Username, details.Password,
	)
	if err != nil {
		cb.fail(err)
		return
	}
	// USER_ID_FOR_SRP replaces the local username for the remainder of
	// this exchange (spec.md §8 invariant 1's only permitted rewrite).
	u.Username = userIDForSRP

	verifierResp, err := u.respondToAuthChallenge(ctx, "PASSWORD_VERIFIER", resp.Session, respondParams, details.ClientMetadata)
	if err != nil {
		cb.fail(err)
		return
	}
	u.routeChallenge(ctx, verifierResp, details.ClientMetadata, cb)
}

// buildPasswordVerifierResponse computes the PASSWORD_CLAIM_SIGNATURE
// response to a PASSWORD_VERIFIER challenge (spec.md §4.3.b step 3).
func (u *User) buildPasswordVerifierResponse(ephemeral *srp.ClientEphemeral, challengeParams map[string]string, username, password string) (map[string]string, string, error) {
	userIDForSRP := challengeParams["USER_ID_FOR_SRP"]
	if userIDForSRP == "" {
		userIDForSRP = username
	}
	saltHex := challengeParams["SALT"]
	bHex := challengeParams["SRP_B"]
	secretBlock := challengeParams["SECRET_BLOCK"]

	authKey, err := srp.GetPasswordAuthenticationKey(ephemeral, u.poolShortID(), userIDForSRP, password, bHex, saltHex)
	if err != nil {
		return nil, "", wrapError(ErrCryptoInvariant, "SRP password authentication key derivation failed", err)
	}

	params, err := u.passwordClaimSignatureParams(authKey.HKDFKey, u.poolShortID(), userIDForSRP, secretBlock)
	if err != nil {
		return nil, "", err
	}
	return params, userIDForSRP, nil
}

// passwordClaimSignatureParams builds the PASSWORD_CLAIM_SIGNATURE
// RespondToAuthChallenge parameters from an already-derived HKDF MAC key
// (spec.md §4.3.b step 3; shared by the user-SRP and device-SRP flows,
// which differ only in what "group identifier" and "subject identifier"
// feed the MAC — poolShortId/USER_ID_FOR_SRP for user SRP,
// deviceGroupKey/deviceKey for device SRP).
func (u *User) passwordClaimSignatureParams(hkdfKey []byte, groupID, subjectID, secretBlock string) (map[string]string, error) {
	secretBlockBytes, err := base64.StdEncoding.DecodeString(secretBlock)
	if err != nil {
		return nil, wrapError(ErrInvalidParameter, "invalid SECRET_BLOCK from server", err)
	}

	timestamp := srpTimestamp(time.Now().UTC())

	mac := hmac.New(sha256.New, hkdfKey)
	mac.Write([]byte(groupID))
	mac.Write([]byte(subjectID))
	mac.Write(secretBlockBytes)
	mac.Write([]byte(timestamp))
	signature := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	params := map[string]string{
		"USERNAME":                    subjectID,
		"PASSWORD_CLAIM_SECRET_BLOCK": secretBlock,
		"PASSWORD_CLAIM_SIGNATURE":    signature,
		"TIMESTAMP":                   timestamp,
	}
	u.loadCachedDevice()
	if u.DeviceKey != "" {
		params["DEVICE_KEY"] = u.DeviceKey
	}
	if hash := u.Pool.secretHash(subjectID); hash != "" {
		params["SECRET_HASH"] = hash
	}
	return params, nil
}

// srpTimestamp formats t per spec.md §4.3.b / §8 invariant 5: "Www MMM D
// HH:MM:SS UTC YYYY", POSIX C locale, no zero-pad on day-of-month.
func srpTimestamp(t time.Time) string {
	const weekday = "Mon"
	const month = "Jan"
	return fmt.Sprintf("%s %s %d %02d:%02d:%02d UTC %d",
		t.Format(weekday), t.Format(month), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Year())
}

// refreshSession drives InitiateAuth AuthFlow=REFRESH_TOKEN_AUTH (spec.md
// §4.5). When the server returns no RefreshToken (spec.md §8 scenario
// S6), the existing refresh token is preserved instead of being
// overwritten with an empty value.
func (u *User) refreshSession(ctx context.Context, refreshToken string, clientMetadata map[string]string, cb *Callbacks) {
	go func() {
		params := map[string]string{
			"REFRESH_TOKEN": refreshToken,
		}
		if u.DeviceKey != "" {
			params["DEVICE_KEY"] = u.DeviceKey
		}
		if hash := u.Pool.secretHash(u.Username); hash != "" {
			params["SECRET_HASH"] = hash
		}

		resp, err := u.initiateAuth(ctx, string(RefreshTokenAuth), params, clientMetadata)
		if err != nil {
			cb.fail(err)
			return
		}
		if resp.AuthenticationResult == nil {
			cb.fail(newError(ErrNotAuthorized, "refresh did not return an authentication result"))
			return
		}

		returnedRefresh := resp.AuthenticationResult.RefreshToken
		if returnedRefresh == "" {
			returnedRefresh = refreshToken
		}
		session := newSession(resp.AuthenticationResult.IDToken, resp.AuthenticationResult.AccessToken, returnedRefresh)
		u.SignInUserSession = session
		u.cacheTokens()
		cb.succeed(session, false)
	}()
}

func (u *User) initiateAuth(ctx context.Context, flow string, params map[string]string, clientMetadata map[string]string) (*authChallengeResponse, error) {
	req := map[string]any{
		"ClientId":       u.Pool.ClientID,
		"AuthFlow":       flow,
		"AuthParameters": params,
	}
	if len(clientMetadata) > 0 {
		req["ClientMetadata"] = clientMetadata
	}
	if ctxData := u.Pool.userContextData(u.Username); ctxData != "" {
		req["UserContextData"] = map[string]string{"EncodedData": ctxData}
	}

	var resp authChallengeResponse
	if err := u.Pool.dispatcher().Invoke(ctx, "InitiateAuth", req, &resp); err != nil {
		return nil, translateIdPError(err)
	}
	return &resp, nil
}

func (u *User) respondToAuthChallenge(ctx context.Context, challengeName, session string, challengeResponses map[string]string, clientMetadata map[string]string) (*authChallengeResponse, error) {
	req := map[string]any{
		"ClientId":           u.Pool.ClientID,
		"ChallengeName":      challengeName,
		"Session":            session,
		"ChallengeResponses": challengeResponses,
	}
	if len(clientMetadata) > 0 {
		req["ClientMetadata"] = clientMetadata
	}
	if ctxData := u.Pool.userContextData(u.Username); ctxData != "" {
		req["UserContextData"] = map[string]string{"EncodedData": ctxData}
	}

	var resp authChallengeResponse
	if err := u.Pool.dispatcher().Invoke(ctx, "RespondToAuthChallenge", req, &resp); err != nil {
		return nil, translateIdPError(err)
	}
	return &resp, nil
}
