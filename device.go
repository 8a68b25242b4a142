package identitypool

import (
	"context"
	"os"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/solidauth/identitypool/internal/srp"
)

// authenticateDeviceSRP implements spec.md §4.3.c: a second SRP round
// keyed on the registered device's secret, let a device bypass MFA.
func (u *User) authenticateDeviceSRP(ctx context.Context, clientMetadata map[string]string, cb *Callbacks) {
	go func() {
		u.loadCachedDevice()
		if u.DeviceKey == "" || u.DeviceGroupKey == "" || u.RandomPassword == "" {
			cb.fail(newError(ErrNotAuthorized, "no cached device credentials for DEVICE_SRP_AUTH"))
			return
		}

		ephemeral, err := srp.GetLargeAValue()
		if err != nil {
			cb.fail(wrapError(ErrCryptoInvariant, "could not generate device SRP ephemeral", err))
			return
		}

		params := map[string]string{
			"USERNAME":   u.Username,
			"DEVICE_KEY": u.DeviceKey,
			"SRP_A":      ephemeral.AHex(),
		}
		if hash := u.Pool.secretHash(u.Username); hash != "" {
			params["SECRET_HASH"] = hash
		}

		resp, err := u.respondToAuthChallenge(ctx, "DEVICE_SRP_AUTH", u.Session, params, clientMetadata)
		if err != nil {
			cb.fail(err)
			return
		}
		if resp.ChallengeName != "DEVICE_PASSWORD_VERIFIER" {
			u.routeChallenge(ctx, resp, clientMetadata, cb)
			return
		}

		saltHex := resp.ChallengeParameters["SALT"]
		bHex := resp.ChallengeParameters["SRP_B"]
		secretBlock := resp.ChallengeParameters["SECRET_BLOCK"]

		authKey, err := srp.GetPasswordAuthenticationKey(ephemeral, u.DeviceGroupKey, u.DeviceKey, u.RandomPassword, bHex, saltHex)
		if err != nil {
			cb.fail(wrapError(ErrCryptoInvariant, "device SRP password authentication key derivation failed", err))
			return
		}

		respondParams, err := u.passwordClaimSignatureParams(authKey.HKDFKey, u.DeviceGroupKey, u.DeviceKey, secretBlock)
		if err != nil {
			cb.fail(err)
			return
		}

		verifierResp, err := u.respondToAuthChallenge(ctx, "DEVICE_PASSWORD_VERIFIER", resp.Session, respondParams, clientMetadata)
		if err != nil {
			cb.fail(err)
			return
		}
		u.routeChallenge(ctx, verifierResp, clientMetadata, cb)
	}()
}

// confirmDevice implements spec.md §4.3.d: compute (salt, verifier,
// randomPassword), register the device with the IdP, cache the triple,
// and report success (carrying UserConfirmationNecessary through).
func (u *User) confirmDevice(ctx context.Context, meta *newDeviceMetadata, cb *Callbacks) {
	randomPassword, err := srp.RandomPassword()
	if err != nil {
		cb.fail(wrapError(ErrCryptoInvariant, "could not generate device random password", err))
		return
	}
	verifier, err := srp.GenerateHashDevice(meta.DeviceGroupKey, meta.DeviceKey, randomPassword)
	if err != nil {
		cb.fail(wrapError(ErrCryptoInvariant, "could not generate device verifier", err))
		return
	}

	deviceName := u.deviceName()

	req := map[string]any{
		"AccessToken": u.SignInUserSession.AccessToken.String(),
		"DeviceKey":   meta.DeviceKey,
		"DeviceSecretVerifierConfig": map[string]string{
			"PasswordVerifier": verifier.VerifierHex,
			"Salt":             verifier.SaltHex,
		},
		"DeviceName": deviceName,
	}

	var resp struct {
		UserConfirmationNecessary bool `json:"UserConfirmationNecessary"`
	}
	if err := u.Pool.dispatcher().Invoke(ctx, "ConfirmDevice", req, &resp); err != nil {
		cb.fail(translateIdPError(err))
		return
	}

	u.cacheDevice(meta.DeviceKey, meta.DeviceGroupKey, verifier.RandomPassword)

	cb.succeed(u.SignInUserSession, resp.UserConfirmationNecessary)
}

func (u *User) deviceName() string {
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "default-device"
}

// RememberDevice marks the current device as remembered for future SRP
// bypass (spec.md §4.8 — a thin wrapper, no new server action).
func (u *User) RememberDevice(ctx context.Context, cb *Callbacks) {
	u.setDeviceStatus(ctx, "remembered", cb)
}

// DontRememberDevice marks the current device as not remembered
// (spec.md §4.8).
func (u *User) DontRememberDevice(ctx context.Context, cb *Callbacks) {
	u.setDeviceStatus(ctx, "not_remembered", cb)
}

func (u *User) setDeviceStatus(ctx context.Context, status string, cb *Callbacks) {
	session, err := u.getSessionSync(ctx)
	if err != nil {
		cb.fail(err)
		return
	}
	go func() {
		deviceRememberedStatus := "remembered"
		if status == "not_remembered" {
			deviceRememberedStatus = "not_remembered"
		}
		req := map[string]any{
			"AccessToken":            session.AccessToken.String(),
			"DeviceKey":              u.DeviceKey,
			"DeviceRememberedStatus": deviceRememberedStatus,
		}
		if err := u.Pool.dispatcher().Invoke(ctx, "UpdateDeviceStatus", req, nil); err != nil {
			cb.fail(translateIdPError(err))
			return
		}
		cb.succeed(session, false)
	}()
}

// ListDevices issues ListDevices for the user's account. The device list
// in the response is not passed to the callback; OnSuccess receives the
// current session.
func (u *User) ListDevices(ctx context.Context, limit int, paginationToken string, cb *Callbacks) {
	session, err := u.getSessionSync(ctx)
	if err != nil {
		cb.fail(err)
		return
	}
	go func() {
		req := map[string]any{
			"AccessToken": session.AccessToken.String(),
			"Limit":       limit,
		}
		if paginationToken != "" {
			req["PaginationToken"] = paginationToken
		}
		var resp struct {
			Devices []map[string]any `json:"Devices"`
		}
		if err := u.Pool.dispatcher().Invoke(ctx, "ListDevices", req, &resp); err != nil {
			cb.fail(translateIdPError(err))
			return
		}
		cb.succeed(session, false)
	}()
}

// GetDevice fetches details of the current device.
func (u *User) GetDevice(ctx context.Context, cb *Callbacks) {
	session, err := u.getSessionSync(ctx)
	if err != nil {
		cb.fail(err)
		return
	}
	go func() {
		req := map[string]any{"AccessToken": session.AccessToken.String(), "DeviceKey": u.DeviceKey}
		if err := u.Pool.dispatcher().Invoke(ctx, "GetDevice", req, nil); err != nil {
			cb.fail(translateIdPError(err))
			return
		}
		cb.succeed(session, false)
	}()
}

// ForgetDevice forgets the current device and clears its cached
// credentials.
func (u *User) ForgetDevice(ctx context.Context, cb *Callbacks) {
	u.ForgetSpecificDevice(ctx, u.DeviceKey, cb)
}

// ForgetSpecificDevice forgets deviceKey, clearing cached credentials
// only when it matches the device currently cached for this user.
func (u *User) ForgetSpecificDevice(ctx context.Context, deviceKey string, cb *Callbacks) {
	session, err := u.getSessionSync(ctx)
	if err != nil {
		cb.fail(err)
		return
	}
	go func() {
		req := map[string]any{"AccessToken": session.AccessToken.String(), "DeviceKey": deviceKey}
		if err := u.Pool.dispatcher().Invoke(ctx, "ForgetDevice", req, nil); err != nil {
			cb.fail(translateIdPError(err))
			return
		}
		if deviceKey == u.DeviceKey {
			u.DeviceKey, u.DeviceGroupKey, u.RandomPassword = "", "", ""
			u.cache.ClearDevice(u.Username)
		}
		cb.succeed(session, false)
	}()
}

// localDevicePINKey namespaces the optional local PIN-unlock record
// (supplemented feature: gate using a remembered device on a local PIN,
// entirely client-side, no IdP round trip).
func localDevicePINKey(clientID, username string) string {
	return "CognitoIdentityServiceProvider." + clientID + "." + username + ".devicePin"
}

// SetDevicePIN hashes pin with bcrypt and stores it locally so a future
// call to VerifyDevicePIN can gate use of the remembered device without
// any network call. id is an opaque local record identifier, freshly
// generated with uuid.NewString() on every call.
func (u *User) SetDevicePIN(pin string) (id string, err error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return "", wrapError(ErrInvalidParameter, "could not hash device PIN", err)
	}
	id = uuid.NewString()
	u.storage.SetItem(localDevicePINKey(u.Pool.ClientID, u.Username), id+"$"+string(hash))
	return id, nil
}

// VerifyDevicePIN checks pin against the locally stored hash set by
// SetDevicePIN.
func (u *User) VerifyDevicePIN(pin string) bool {
	stored, ok := u.storage.GetItem(localDevicePINKey(u.Pool.ClientID, u.Username))
	if !ok {
		return false
	}
	idx := strings.IndexByte(stored, '$')
	if idx < 0 {
		return false
	}
	hash := stored[idx+1:]
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pin)) == nil
}
